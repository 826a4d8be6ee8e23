package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tobiaseke/bulkroom-backend/pkg/config"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
)

const defaultTimeout = 15 * time.Second

var (
	errSecretKeyRequired     = errors.New("paystack secret key is required")
	errWebhookSecretRequired = errors.New("paystack webhook secret is required")
	errLoggerRequired        = errors.New("paystack logger is required")
)

// Client wraps the Paystack REST API with centralized auth, logging, and error mapping.
type Client struct {
	httpClient    *http.Client
	secretKey     string
	webhookSecret string
	baseURL       string
	logger        *logger.Logger
}

// NewClient initializes the Paystack wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	webhookSecret := strings.TrimSpace(cfg.WebhookSecret)
	if webhookSecret == "" {
		return nil, errWebhookSecretRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		logger:        logg,
	}

	logg.Info(ctx, "paystack client initialized")
	return c, nil
}

// SigningSecret returns the Paystack webhook secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.webhookSecret
}

// ValidateSignature verifies the x-paystack-signature header against the raw request body.
// Paystack signs the body with HMAC-SHA512 keyed by the webhook secret.
func (c *Client) ValidateSignature(body []byte, signature string) bool {
	if c == nil || strings.TrimSpace(signature) == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// InitializeTransaction starts a hosted checkout session. When SubaccountCode is set the
// charge settles to the wholesaler's subaccount with the platform fee held back via
// TransactionCharge (split settlement).
func (c *Client) InitializeTransaction(ctx context.Context, params TransactionInitParams) (*TransactionInit, error) {
	if err := params.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "paystack initialize transaction rejected")
	}

	c.log(ctx, "request", "initialize_transaction", map[string]any{
		"reference":  params.Reference,
		"amount":     params.AmountSubunits,
		"currency":   params.Currency,
		"subaccount": params.SubaccountCode,
	})

	var resp envelope[TransactionInit]
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", params.toRequestBody(), &resp); err != nil {
		c.log(ctx, "error", "initialize_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "initialize_transaction", map[string]any{
		"reference":   resp.Data.Reference,
		"access_code": resp.Data.AccessCode,
	})
	return &resp.Data, nil
}

// VerifyTransaction fetches the authoritative state of a transaction by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	c.log(ctx, "request", "verify_transaction", map[string]any{"reference": ref})

	var resp envelope[Transaction]
	path := "/transaction/verify/" + url.PathEscape(ref)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		c.log(ctx, "error", "verify_transaction", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "verify_transaction", map[string]any{
		"reference": resp.Data.Reference,
		"status":    resp.Data.Status,
	})
	return &resp.Data, nil
}

// CreateSubaccount registers a wholesaler settlement account with Paystack.
func (c *Client) CreateSubaccount(ctx context.Context, params SubaccountCreateParams) (*Subaccount, error) {
	if err := params.validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "paystack create subaccount rejected")
	}

	c.log(ctx, "request", "create_subaccount", map[string]any{
		"business_name": params.BusinessName,
		"bank_code":     params.BankCode,
	})

	var resp envelope[Subaccount]
	if err := c.do(ctx, http.MethodPost, "/subaccount", params.toRequestBody(), &resp); err != nil {
		c.log(ctx, "error", "create_subaccount", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_subaccount", map[string]any{"subaccount_code": resp.Data.SubaccountCode})
	return &resp.Data, nil
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding paystack request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building paystack request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling paystack")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading paystack response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.mapAPIError(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding paystack response")
		}
	}
	return nil
}

func (c *Client) mapAPIError(status int, raw []byte) error {
	message := "paystack request failed"
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		message = payload.Message
	}

	err := fmt.Errorf("paystack responded %d: %s", status, message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "paystack rejected credentials")
	case status == http.StatusNotFound:
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "paystack resource not found")
	case status >= 400 && status < 500:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "paystack rejected request")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "paystack unavailable")
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("paystack %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("paystack %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "authorization", "email", "phone", "account_number"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
