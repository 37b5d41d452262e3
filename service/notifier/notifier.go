package notifier

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/pandodao/safe-pay/core"
)

const (
	HeaderSignature = "X-Safepay-Signature"
	HeaderID        = "X-Safepay-Notification"

	EventConfirmed = "payment.confirmed"
)

type Config struct {
	// WebhookURL receives confirmed payments; empty means log only.
	WebhookURL string `valid:"url"`
	// Secret signs webhook bodies with HMAC-SHA256.
	Secret  string
	Timeout time.Duration
}

type Event struct {
	ID      string        `json:"id"`
	Type    string        `json:"type"`
	Payment *core.Payment `json:"payment"`
}

func New(logger *slog.Logger, cfg Config) core.Notifier {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	logger = logger.With("service", "notifier")
	if cfg.WebhookURL == "" {
		return &logNotifier{logger: logger}
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &webhook{
		logger: logger,
		client: resty.New().SetTimeout(cfg.Timeout),
		url:    cfg.WebhookURL,
		secret: []byte(cfg.Secret),
	}
}

type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) OnConfirmed(_ context.Context, payment *core.Payment) error {
	n.logger.Info("payment confirmed",
		"reference", payment.Reference,
		"recipient", payment.Recipient,
		"total", payment.TotalAmountDue,
		"signature", payment.Signature,
	)

	return nil
}

type webhook struct {
	logger *slog.Logger
	client *resty.Client
	url    string
	secret []byte
}

func (n *webhook) OnConfirmed(ctx context.Context, payment *core.Payment) error {
	event := Event{
		ID:      uuid.NewString(),
		Type:    EventConfirmed,
		Payment: payment,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader(HeaderID, event.ID).
		SetHeader(HeaderSignature, Sign(n.secret, body)).
		SetBody(body).
		Post(n.url)
	if err != nil {
		return err
	}

	if resp.IsError() {
		return fmt.Errorf("webhook %s responded %s", n.url, resp.Status())
	}

	n.logger.Debug("webhook delivered", "reference", payment.Reference, "id", event.ID)
	return nil
}

// Sign returns the hex HMAC-SHA256 of body, as sent in HeaderSignature.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
