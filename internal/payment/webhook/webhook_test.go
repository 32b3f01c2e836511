package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/lumamail/backend/internal/config"
	"github.com/lumamail/backend/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func testVerifier(secret string) *Verifier {
	cfg := config.Config{}
	cfg.Webhook.Secret = secret
	return NewVerifier(cfg)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	v := testVerifier("topsecret")

	assert.NoError(t, v.Verify(payload, sign("topsecret", payload)))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	v := testVerifier("topsecret")
	signature := sign("topsecret", payload)

	err := v.Verify([]byte(`{"id":"evt_2"}`), signature)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	v := testVerifier("topsecret")

	err := v.Verify(payload, sign("othersecret", payload))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsMissingSignatureOrSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	err := testVerifier("topsecret").Verify(payload, "")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	err = testVerifier("").Verify(payload, sign("", payload))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestParseEvent(t *testing.T) {
	payload := []byte(`{
		"id": "evt_42",
		"type": "payment.succeeded",
		"created_at": "2025-06-01T12:00:00Z",
		"data": {
			"user_id": "1001",
			"package_id": "2002",
			"original_amount_cents": 999,
			"original_currency": "eur",
			"amount_cents": 1080,
			"currency": "usd",
			"exchange_rate": 1.08
		}
	}`)

	event, err := ParseEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "gateway", event.Provider)
	assert.Equal(t, "evt_42", event.ProviderEventID)
	assert.Equal(t, domain.EventTypePaymentSucceeded, event.Type)
	assert.Equal(t, int64(1001), event.UserID.Int64())
	assert.Equal(t, int64(2002), event.PackageID.Int64())
	assert.Equal(t, int64(999), event.OriginalAmountCents)
	assert.Equal(t, "EUR", event.OriginalCurrency)
	assert.Equal(t, int64(1080), event.ChargedAmountCents)
	assert.Equal(t, "USD", event.ChargedCurrency)
	assert.InDelta(t, 1.08, event.ExchangeRate, 1e-9)
}

func TestParseEventRejectsGarbage(t *testing.T) {
	_, err := ParseEvent([]byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	_, err = ParseEvent([]byte(`{"type":"payment.succeeded"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	_, err = ParseEvent([]byte(`{"id":"evt_1","data":{"user_id":"abc"}}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)
}
