package paystack

import "encoding/json"

// TransactionInit is the payload returned when a checkout session is opened.
type TransactionInit struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Transaction is the authoritative charge record returned by verify.
type Transaction struct {
	ID              int64          `json:"id"`
	Status          string         `json:"status"`
	Reference       string         `json:"reference"`
	AmountSubunits  int64          `json:"amount"`
	Currency        string         `json:"currency"`
	GatewayResponse string         `json:"gateway_response"`
	PaidAt          string         `json:"paid_at"`
	Channel         string         `json:"channel"`
	Metadata        map[string]any `json:"metadata"`
}

// Subaccount is a registered settlement destination.
type Subaccount struct {
	ID               int64   `json:"id"`
	SubaccountCode   string  `json:"subaccount_code"`
	BusinessName     string  `json:"business_name"`
	AccountNumber    string  `json:"account_number"`
	PercentageCharge float64 `json:"percentage_charge"`
	Active           bool    `json:"active"`
}

// Event is the outer webhook envelope. Data is kept raw because each event
// type carries a different payload shape.
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// ChargeData is the payload of charge.success and related charge events.
type ChargeData struct {
	ID              int64          `json:"id"`
	Status          string         `json:"status"`
	Reference       string         `json:"reference"`
	AmountSubunits  int64          `json:"amount"`
	Currency        string         `json:"currency"`
	GatewayResponse string         `json:"gateway_response"`
	PaidAt          string         `json:"paid_at"`
	Channel         string         `json:"channel"`
	Metadata        map[string]any `json:"metadata"`
}

// ParseEvent decodes the outer webhook envelope.
func ParseEvent(body []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// Charge decodes the event payload as charge data.
func (e *Event) Charge() (*ChargeData, error) {
	var data ChargeData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
