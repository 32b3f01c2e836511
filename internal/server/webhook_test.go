package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lumamail/backend/internal/config"
	paymentdomain "github.com/lumamail/backend/internal/payment/domain"
	paymentwebhook "github.com/lumamail/backend/internal/payment/webhook"
)

type fakePaymentService struct {
	reconcileCalls int
	lastEvent      *paymentdomain.PaymentEvent
}

func (f *fakePaymentService) Reconcile(ctx context.Context, event *paymentdomain.PaymentEvent, payload []byte) error {
	f.reconcileCalls++
	f.lastEvent = event
	_ = ctx
	_ = payload
	return nil
}

func (f *fakePaymentService) ListHistory(ctx context.Context, userID snowflake.ID) ([]paymentdomain.PaymentHistory, error) {
	_ = ctx
	_ = userID
	return nil, nil
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookTestServer(paymentSvc paymentdomain.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := config.Config{}
	cfg.Webhook.Secret = "topsecret"

	srv := &Server{
		cfg:             cfg,
		paymentSvc:      paymentSvc,
		webhookVerifier: paymentwebhook.NewVerifier(cfg),
	}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/api/payment-webhook", srv.HandlePaymentWebhook)
	return router
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	paymentSvc := &fakePaymentService{}
	router := newWebhookTestServer(paymentSvc)

	body := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"user_id":"1001","package_id":"2002","amount_cents":999,"currency":"USD"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment-webhook", bytes.NewBuffer(body))
	req.Header.Set(paymentwebhook.SignatureHeader, "deadbeef")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if paymentSvc.reconcileCalls != 0 {
		t.Fatal("expected reconcile not to be called on a bad signature")
	}
}

func TestPaymentWebhookRejectsMissingSignature(t *testing.T) {
	paymentSvc := &fakePaymentService{}
	router := newWebhookTestServer(paymentSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/payment-webhook", bytes.NewBufferString(`{"id":"evt_1"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
	if paymentSvc.reconcileCalls != 0 {
		t.Fatal("expected reconcile not to be called without a signature")
	}
}

func TestPaymentWebhookRejectsOversizedBody(t *testing.T) {
	paymentSvc := &fakePaymentService{}
	router := newWebhookTestServer(paymentSvc)

	body := bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/api/payment-webhook", bytes.NewBuffer(body))
	req.Header.Set(paymentwebhook.SignatureHeader, signBody("topsecret", body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
	if paymentSvc.reconcileCalls != 0 {
		t.Fatal("expected reconcile not to be called for an oversized body")
	}
}

func TestPaymentWebhookAcceptsSignedDelivery(t *testing.T) {
	paymentSvc := &fakePaymentService{}
	router := newWebhookTestServer(paymentSvc)

	body := []byte(`{"id":"evt_1","type":"payment.succeeded","data":{"user_id":"1001","package_id":"2002","amount_cents":999,"currency":"USD"}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payment-webhook", bytes.NewBuffer(body))
	req.Header.Set(paymentwebhook.SignatureHeader, signBody("topsecret", body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if paymentSvc.reconcileCalls != 1 {
		t.Fatalf("expected 1 reconcile call, got %d", paymentSvc.reconcileCalls)
	}
	if paymentSvc.lastEvent == nil || paymentSvc.lastEvent.ProviderEventID != "evt_1" {
		t.Fatalf("unexpected event: %+v", paymentSvc.lastEvent)
	}
}
