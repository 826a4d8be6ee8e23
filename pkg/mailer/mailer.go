package mailer

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

const (
	sendgridBaseURL = "https://api.sendgrid.com"
	sendTimeout     = 10 * time.Second
)

var (
	errAPIKeyRequired = errors.New("sendgrid api key is required")
	errFromRequired   = errors.New("sendgrid default from address is required")
	errLoggerRequired = errors.New("mailer logger is required")
)

// Message is a single transactional email.
type Message struct {
	To        string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Mailer sends transactional email through the SendGrid v3 API.
type Mailer struct {
	httpClient *http.Client
	apiKey     string
	from       string
	baseURL    string
	logger     *logger.Logger
}

// New validates the SendGrid credentials and returns a Mailer.
func New(cfg config.SendgridConfig, logg *logger.Logger) (*Mailer, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	from := strings.TrimSpace(cfg.DefaultFrom)
	if from == "" {
		return nil, errFromRequired
	}

	return &Mailer{
		httpClient: &http.Client{Timeout: sendTimeout},
		apiKey:     apiKey,
		from:       from,
		baseURL:    sendgridBaseURL,
		logger:     logg,
	}, nil
}

// Send delivers one email. Callers treat failures as best-effort and must not
// roll back business state when delivery fails.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient address is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	payload, err := json.Marshal(m.buildRequest(msg))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding sendgrid request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building sendgrid request")
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling sendgrid")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "sendgrid rejected message")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sendgrid unavailable")
	}

	m.logger.Info(m.logger.WithField(ctx, "subject", msg.Subject), "email dispatched")
	return nil
}

func (m *Mailer) buildRequest(msg Message) map[string]any {
	content := []map[string]string{}
	if body := strings.TrimSpace(msg.PlainBody); body != "" {
		content = append(content, map[string]string{"type": "text/plain", "value": body})
	}
	if body := strings.TrimSpace(msg.HTMLBody); body != "" {
		content = append(content, map[string]string{"type": "text/html", "value": body})
	}

	return map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": strings.TrimSpace(msg.To)}}},
		},
		"from":    map[string]string{"email": m.from},
		"subject": strings.TrimSpace(msg.Subject),
		"content": content,
	}
}
