package signup

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/lumamail/backend/internal/auth/domain"
	authrepository "github.com/lumamail/backend/internal/auth/repository"
	authservice "github.com/lumamail/backend/internal/auth/service"
	"github.com/lumamail/backend/internal/clock"
	"github.com/lumamail/backend/internal/signup/domain"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	subscriptionrepository "github.com/lumamail/backend/internal/subscription/repository"
	subscriptionservice "github.com/lumamail/backend/internal/subscription/service"
	usagedomain "github.com/lumamail/backend/internal/usage/domain"
	usagerepository "github.com/lumamail/backend/internal/usage/repository"
	verificationdomain "github.com/lumamail/backend/internal/verification/domain"
	verificationrepository "github.com/lumamail/backend/internal/verification/repository"
	verificationservice "github.com/lumamail/backend/internal/verification/service"
	walletdomain "github.com/lumamail/backend/internal/wallet/domain"
	walletrepository "github.com/lumamail/backend/internal/wallet/repository"
	walletservice "github.com/lumamail/backend/internal/wallet/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var sentCodePattern = regexp.MustCompile(`(\d{6})`)

type recordingMailer struct {
	bodies []string
}

func (m *recordingMailer) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	m.bodies = append(m.bodies, htmlBody)
	return nil
}

func (m *recordingMailer) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.bodies)
	match := sentCodePattern.FindStringSubmatch(m.bodies[len(m.bodies)-1])
	require.Len(t, match, 2)
	return match[1]
}

type signupFixture struct {
	svc             domain.Service
	authSvc         authdomain.Service
	subscriptionSvc subscriptiondomain.Service
	walletSvc       walletdomain.Service
	mailer          *recordingMailer
}

func setupSignupFixture(t *testing.T) *signupFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&verificationdomain.VerificationCode{},
		&subscriptiondomain.SubscriptionPlan{},
		&subscriptiondomain.UserSubscription{},
		&usagedomain.UsagePeriod{},
		&walletdomain.Wallet{},
		&walletdomain.WalletTransaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	freePlan := subscriptiondomain.SubscriptionPlan{
		ID: node.Generate(), Code: subscriptiondomain.PlanFree, Name: "Free",
		Currency: "USD", GenerationLimit: 10, SendsPerEmail: 1, HasBranding: true,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Create(&freePlan).Error)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	mailer := &recordingMailer{}

	authSvc := authservice.New(db, log, authrepository.ProvideUserRepository(), authrepository.ProvideSessionRepository(), node, clk)
	verificationSvc := verificationservice.NewService(verificationservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  verificationrepository.Provide(),
		Email: mailer,
		Clock: clk,
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      subscriptionrepository.Provide(),
		UsageRepo: usagerepository.Provide(),
		Clock:     clk,
	})
	walletSvc := walletservice.NewService(db, log, walletrepository.Provide(), node, clk)

	svc := NewService(log, authSvc, verificationSvc, NewAccountProvisioner(subscriptionSvc, walletSvc))
	return &signupFixture{
		svc:             svc,
		authSvc:         authSvc,
		subscriptionSvc: subscriptionSvc,
		walletSvc:       walletSvc,
		mailer:          mailer,
	}
}

func TestRegistrationFlowProvisionsAccount(t *testing.T) {
	f := setupSignupFixture(t)
	ctx := context.Background()

	err := f.svc.Register(ctx, domain.RegisterRequest{
		Email:    "Alice@Example.com",
		Name:     "Alice",
		Company:  "Acme",
		JobTitle: "Founder",
	})
	require.NoError(t, err)

	// No user row exists until the address is proven.
	_, err = f.authSvc.GetUserByEmail(ctx, "alice@example.com")
	assert.ErrorIs(t, err, authdomain.ErrUserNotFound)

	result, err := f.svc.VerifyRegistration(ctx, "alice@example.com", f.mailer.lastCode(t))
	require.NoError(t, err)
	require.NotEmpty(t, result.RawToken)
	assert.Equal(t, "alice@example.com", result.User.Email)
	assert.Equal(t, "Alice", result.User.Name)
	assert.Equal(t, "Acme", result.User.Company)
	assert.True(t, result.User.EmailVerified)

	// The session is live.
	resolved, err := f.authSvc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, resolved.ID)

	// Free plan and wallet are provisioned.
	current, err := f.subscriptionSvc.GetCurrent(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.PlanFree, current.Plan.Code)

	wallet, err := f.walletSvc.GetBalance(ctx, result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.BalanceCents)
}

func TestRegisterRejectsExistingUser(t *testing.T) {
	f := setupSignupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, domain.RegisterRequest{Email: "bob@example.com", Name: "Bob"}))
	_, err := f.svc.VerifyRegistration(ctx, "bob@example.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	err = f.svc.Register(ctx, domain.RegisterRequest{Email: "bob@example.com", Name: "Bob Again"})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)
}

func TestLoginFlow(t *testing.T) {
	f := setupSignupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, domain.RegisterRequest{Email: "carol@example.com", Name: "Carol"}))
	registered, err := f.svc.VerifyRegistration(ctx, "carol@example.com", f.mailer.lastCode(t))
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestLogin(ctx, "carol@example.com"))
	result, err := f.svc.VerifyLogin(ctx, "carol@example.com", f.mailer.lastCode(t))
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, result.User.ID)
	assert.NotEqual(t, registered.RawToken, result.RawToken)
}

func TestRequestLoginForUnknownUser(t *testing.T) {
	f := setupSignupFixture(t)

	err := f.svc.RequestLogin(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, authdomain.ErrUserNotFound)
}

func TestVerifyRegistrationWithWrongCode(t *testing.T) {
	f := setupSignupFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Register(ctx, domain.RegisterRequest{Email: "dave@example.com", Name: "Dave"}))

	_, err := f.svc.VerifyRegistration(ctx, "dave@example.com", "000000")
	if err == nil {
		t.Fatal("expected wrong code to fail")
	}
	assert.ErrorIs(t, err, verificationdomain.ErrInvalidCode)

	// The real code still works afterwards.
	_, err = f.svc.VerifyRegistration(ctx, "dave@example.com", f.mailer.lastCode(t))
	assert.NoError(t, err)
}
