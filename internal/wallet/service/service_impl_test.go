package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lumamail/backend/internal/clock"
	"github.com/lumamail/backend/internal/wallet/domain"
	"github.com/lumamail/backend/internal/wallet/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupWalletService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&domain.Wallet{}, &domain.WalletTransaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService(db, zap.NewNop(), repository.Provide(), node, clk)
	return svc, db, node
}

func TestEnsureIsIdempotent(t *testing.T) {
	svc, _, node := setupWalletService(t)
	ctx := context.Background()
	userID := node.Generate()

	first, err := svc.Ensure(ctx, userID, "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.BalanceCents)
	assert.Equal(t, "USD", first.Currency)

	second, err := svc.Ensure(ctx, userID, "eur")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "USD", second.Currency)
}

func TestDeductInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	svc, db, node := setupWalletService(t)
	ctx := context.Background()
	userID := node.Generate()

	_, err := svc.Ensure(ctx, userID, "USD")
	require.NoError(t, err)
	require.NoError(t, svc.Credit(ctx, domain.CreditRequest{UserID: userID, AmountCents: 500, Reason: "test_topup"}))

	err = svc.Deduct(ctx, domain.DeductRequest{UserID: userID, AmountCents: 700, Action: "send", Note: "x"})
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	wallet, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), wallet.BalanceCents)

	var count int64
	require.NoError(t, db.Model(&domain.WalletTransaction{}).Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count, "only the credit row should exist")
}

func TestDeductWritesLedgerAndBalanceTogether(t *testing.T) {
	svc, db, node := setupWalletService(t)
	ctx := context.Background()
	userID := node.Generate()

	_, err := svc.Ensure(ctx, userID, "USD")
	require.NoError(t, err)
	require.NoError(t, svc.Credit(ctx, domain.CreditRequest{UserID: userID, AmountCents: 1000, Reason: "test_topup"}))
	require.NoError(t, svc.Deduct(ctx, domain.DeductRequest{UserID: userID, AmountCents: 300, Action: "generation"}))
	require.NoError(t, svc.Deduct(ctx, domain.DeductRequest{UserID: userID, AmountCents: 200, Action: "send"}))

	wallet, err := svc.GetBalance(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), wallet.BalanceCents)

	var sum int64
	require.NoError(t, db.Model(&domain.WalletTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount_cents), 0)").
		Scan(&sum).Error)
	assert.Equal(t, wallet.BalanceCents, sum, "ledger must sum to the balance")
}

func TestDeductRejectsNonPositiveAmount(t *testing.T) {
	svc, _, node := setupWalletService(t)
	ctx := context.Background()
	userID := node.Generate()

	err := svc.Deduct(ctx, domain.DeductRequest{UserID: userID, AmountCents: 0, Action: "send"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	err = svc.Deduct(ctx, domain.DeductRequest{UserID: userID, AmountCents: -5, Action: "send"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDeductWithoutWallet(t *testing.T) {
	svc, _, node := setupWalletService(t)
	ctx := context.Background()

	err := svc.Deduct(ctx, domain.DeductRequest{UserID: node.Generate(), AmountCents: 100, Action: "send"})
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestListTransactionsNewestFirst(t *testing.T) {
	svc, _, node := setupWalletService(t)
	ctx := context.Background()
	userID := node.Generate()

	_, err := svc.Ensure(ctx, userID, "USD")
	require.NoError(t, err)
	require.NoError(t, svc.Credit(ctx, domain.CreditRequest{UserID: userID, AmountCents: 1000, Reason: "test_topup"}))
	require.NoError(t, svc.Deduct(ctx, domain.DeductRequest{UserID: userID, AmountCents: 250, Action: "generation"}))

	txs, err := svc.ListTransactions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(-250), txs[0].AmountCents)
	assert.Equal(t, "generation", txs[0].Reason)
	assert.Equal(t, int64(1000), txs[1].AmountCents)
}
