package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/config"
	"github.com/lumamail/backend/internal/payment/domain"
)

// SignatureHeader carries the gateway's hex HMAC-SHA256 of the raw
// request body, keyed with the shared webhook secret.
const SignatureHeader = "X-Webhook-Signature"

type Verifier struct {
	secret []byte
}

func NewVerifier(cfg config.Config) *Verifier {
	return &Verifier{secret: []byte(cfg.Webhook.Secret)}
}

// Verify checks the signature against the raw payload. It must run before
// any parsing or state mutation.
func (v *Verifier) Verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if len(v.secret) == 0 || signature == "" {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

type eventEnvelope struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		UserID              string  `json:"user_id"`
		PackageID           string  `json:"package_id"`
		OriginalAmountCents int64   `json:"original_amount_cents"`
		OriginalCurrency    string  `json:"original_currency"`
		AmountCents         int64   `json:"amount_cents"`
		Currency            string  `json:"currency"`
		ExchangeRate        float64 `json:"exchange_rate"`
	} `json:"data"`
}

// ParseEvent decodes a verified webhook body into a PaymentEvent.
func ParseEvent(payload []byte) (*domain.PaymentEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, domain.ErrInvalidEvent
	}

	event := &domain.PaymentEvent{
		Provider:            "gateway",
		ProviderEventID:     strings.TrimSpace(envelope.ID),
		Type:                strings.TrimSpace(envelope.Type),
		OriginalAmountCents: envelope.Data.OriginalAmountCents,
		OriginalCurrency:    strings.ToUpper(strings.TrimSpace(envelope.Data.OriginalCurrency)),
		ChargedAmountCents:  envelope.Data.AmountCents,
		ChargedCurrency:     strings.ToUpper(strings.TrimSpace(envelope.Data.Currency)),
		ExchangeRate:        envelope.Data.ExchangeRate,
		OccurredAt:          envelope.CreatedAt,
	}

	if userID := strings.TrimSpace(envelope.Data.UserID); userID != "" {
		id, err := snowflake.ParseString(userID)
		if err != nil {
			return nil, domain.ErrInvalidEvent
		}
		event.UserID = id
	}
	if packageID := strings.TrimSpace(envelope.Data.PackageID); packageID != "" {
		id, err := snowflake.ParseString(packageID)
		if err != nil {
			return nil, domain.ErrInvalidEvent
		}
		event.PackageID = id
	}

	return event, nil
}
