package paystack

import (
	"errors"
	"strings"
)

// TransactionInitParams contains the fields required to open a hosted checkout session.
// Amounts are expressed in the currency's smallest subunit (kobo for NGN).
type TransactionInitParams struct {
	Reference         string
	AmountSubunits    int64
	Currency          string
	Email             string
	SubaccountCode    string
	TransactionCharge int64
	Bearer            string
	CallbackURL       string
	Metadata          map[string]any
}

func (p TransactionInitParams) validate() error {
	if strings.TrimSpace(p.Reference) == "" {
		return errors.New("reference is required")
	}
	if p.AmountSubunits <= 0 {
		return errors.New("amount must be positive")
	}
	if strings.TrimSpace(p.Email) == "" {
		return errors.New("customer email is required")
	}
	if p.TransactionCharge < 0 {
		return errors.New("transaction charge cannot be negative")
	}
	if p.TransactionCharge > 0 && strings.TrimSpace(p.SubaccountCode) == "" {
		return errors.New("transaction charge requires a subaccount")
	}
	return nil
}

func (p TransactionInitParams) toRequestBody() map[string]any {
	body := map[string]any{
		"reference": strings.TrimSpace(p.Reference),
		"amount":    p.AmountSubunits,
		"email":     strings.TrimSpace(p.Email),
	}
	if trimmed := strings.ToUpper(strings.TrimSpace(p.Currency)); trimmed != "" {
		body["currency"] = trimmed
	}
	if trimmed := strings.TrimSpace(p.SubaccountCode); trimmed != "" {
		body["subaccount"] = trimmed
		if p.TransactionCharge > 0 {
			body["transaction_charge"] = p.TransactionCharge
		}
		bearer := strings.TrimSpace(p.Bearer)
		if bearer == "" {
			bearer = "subaccount"
		}
		body["bearer"] = bearer
	}
	if trimmed := strings.TrimSpace(p.CallbackURL); trimmed != "" {
		body["callback_url"] = trimmed
	}
	if len(p.Metadata) > 0 {
		body["metadata"] = p.Metadata
	}
	return body
}

// SubaccountCreateParams registers a settlement destination for a wholesaler.
type SubaccountCreateParams struct {
	BusinessName     string
	BankCode         string
	AccountNumber    string
	PercentageCharge float64
	Description      string
}

func (p SubaccountCreateParams) validate() error {
	if strings.TrimSpace(p.BusinessName) == "" {
		return errors.New("business name is required")
	}
	if strings.TrimSpace(p.BankCode) == "" {
		return errors.New("bank code is required")
	}
	if strings.TrimSpace(p.AccountNumber) == "" {
		return errors.New("account number is required")
	}
	if p.PercentageCharge < 0 || p.PercentageCharge > 100 {
		return errors.New("percentage charge must be between 0 and 100")
	}
	return nil
}

func (p SubaccountCreateParams) toRequestBody() map[string]any {
	body := map[string]any{
		"business_name":     strings.TrimSpace(p.BusinessName),
		"settlement_bank":   strings.TrimSpace(p.BankCode),
		"account_number":    strings.TrimSpace(p.AccountNumber),
		"percentage_charge": p.PercentageCharge,
	}
	if trimmed := strings.TrimSpace(p.Description); trimmed != "" {
		body["description"] = trimmed
	}
	return body
}
