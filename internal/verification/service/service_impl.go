package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/clock"
	"github.com/lumamail/backend/internal/providers/email"
	"github.com/lumamail/backend/internal/ratelimit"
	"github.com/lumamail/backend/internal/verification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	codeLength  = 6
	codeTTL     = 10 * time.Minute
	maxAttempts = 5
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Email   email.Provider
	Clock   clock.Clock
	Limiter *ratelimit.IssueLimiter `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	email   email.Provider
	clock   clock.Clock
	limiter *ratelimit.IssueLimiter
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("verification.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		email:   p.Email,
		clock:   p.Clock,
		limiter: p.Limiter,
	}
}

func (s *Service) Issue(ctx context.Context, req domain.IssueRequest) error {
	addr, err := NormalizeEmail(req.Email)
	if err != nil {
		return domain.ErrInvalidEmail
	}
	if !req.Purpose.Valid() {
		return domain.ErrInvalidPurpose
	}

	allowed, err := s.limiter.Allow(ctx, addr)
	if err != nil {
		// Limiter outage must not take down login. Fail open, loudly.
		s.log.Warn("issue limiter unavailable", zap.Error(err))
	} else if !allowed {
		return domain.ErrIssueRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return err
	}

	now := s.clock.Now()
	record := &domain.VerificationCode{
		ID:             s.genID.Generate(),
		Email:          addr,
		Purpose:        req.Purpose,
		CodeHash:       HashCode(code),
		PendingPayload: req.Payload,
		Attempts:       0,
		ExpiresAt:      now.Add(codeTTL),
		CreatedAt:      now,
	}

	if err := s.repo.Replace(ctx, s.db, record); err != nil {
		return err
	}

	if err := s.sendCode(ctx, addr, req.Purpose, code); err != nil {
		// A code the user can never read must not stay valid.
		if _, delErr := s.repo.Delete(ctx, s.db, record.ID); delErr != nil {
			s.log.Error("failed to invalidate undelivered code",
				zap.String("email", addr),
				zap.Error(delErr),
			)
		}
		s.log.Warn("verification email delivery failed",
			zap.String("email", addr),
			zap.String("purpose", string(req.Purpose)),
			zap.Error(err),
		)
		return domain.ErrDeliveryFailed
	}

	return nil
}

func (s *Service) Verify(ctx context.Context, req domain.VerifyRequest) (map[string]any, error) {
	addr, err := NormalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCode
	}
	if !req.Purpose.Valid() {
		return nil, domain.ErrInvalidCode
	}

	record, err := s.repo.FindByEmailPurpose(ctx, s.db, addr, req.Purpose)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrInvalidCode
	}
	if s.clock.Now().After(record.ExpiresAt) {
		return nil, domain.ErrInvalidCode
	}
	if record.Attempts >= maxAttempts {
		return nil, domain.ErrTooManyAttempts
	}

	candidate := HashCode(strings.TrimSpace(req.Code))
	if subtle.ConstantTimeCompare([]byte(candidate), []byte(record.CodeHash)) != 1 {
		if err := s.repo.IncrementAttempts(ctx, s.db, record.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrInvalidCode
	}

	// Single use: the delete is the consume. Zero rows means a concurrent
	// verify already won the row; this caller must not succeed too.
	consumed, err := s.repo.Delete(ctx, s.db, record.ID)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, domain.ErrInvalidCode
	}

	return record.PendingPayload, nil
}

func (s *Service) IncrementAttempts(ctx context.Context, rawEmail string, purpose domain.Purpose) error {
	addr, err := NormalizeEmail(rawEmail)
	if err != nil {
		return domain.ErrInvalidEmail
	}
	record, err := s.repo.FindByEmailPurpose(ctx, s.db, addr, purpose)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}
	return s.repo.IncrementAttempts(ctx, s.db, record.ID)
}

func (s *Service) sendCode(ctx context.Context, addr string, purpose domain.Purpose, code string) error {
	subject := "Your Lumamail login code"
	if purpose == domain.PurposeRegistration {
		subject = "Confirm your Lumamail account"
	}
	body := fmt.Sprintf(
		`<p>Your verification code is:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>It expires in %d minutes.</p>`,
		code,
		int(codeTTL.Minutes()),
	)
	return s.email.Send(ctx, []string{addr}, subject, body)
}

// NormalizeEmail lowercases and validates an email address.
func NormalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

// HashCode hashes a code value for at-rest storage.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func generateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}
