package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tobiaseke/bulkroom-backend/pkg/config"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
)

const sendTimeout = 10 * time.Second

var (
	errAPIKeyRequired = errors.New("termii api key is required")
	errLoggerRequired = errors.New("messaging logger is required")
)

// Sender pushes SMS/WhatsApp messages through the Termii messaging API.
type Sender struct {
	httpClient *http.Client
	apiKey     string
	senderID   string
	baseURL    string
	logger     *logger.Logger
}

// New validates the Termii credentials and returns a Sender.
func New(cfg config.TermiiConfig, logg *logger.Logger) (*Sender, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.ng.termii.com"
	}
	senderID := strings.TrimSpace(cfg.SenderID)
	if senderID == "" {
		senderID = "Bulkroom"
	}

	return &Sender{
		httpClient: &http.Client{Timeout: sendTimeout},
		apiKey:     apiKey,
		senderID:   senderID,
		baseURL:    baseURL,
		logger:     logg,
	}, nil
}

// SendText delivers a plain text message to a phone number in international format.
// Failures are best-effort; callers must not roll back business state on error.
func (s *Sender) SendText(ctx context.Context, phone, text string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient phone is required")
	}
	if strings.TrimSpace(text) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "message text is required")
	}

	body := map[string]any{
		"to":      phone,
		"from":    s.senderID,
		"sms":     text,
		"type":    "plain",
		"channel": "generic",
		"api_key": s.apiKey,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding termii request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/sms/send", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building termii request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling termii")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("termii responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "termii rejected message")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "termii unavailable")
	}

	s.logger.Info(s.logger.WithField(ctx, "channel", "sms"), "message dispatched")
	return nil
}
