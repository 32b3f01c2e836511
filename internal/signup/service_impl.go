package signup

import (
	"context"
	"errors"

	authdomain "github.com/lumamail/backend/internal/auth/domain"
	"github.com/lumamail/backend/internal/signup/domain"
	verificationdomain "github.com/lumamail/backend/internal/verification/domain"
	verificationservice "github.com/lumamail/backend/internal/verification/service"
	"go.uber.org/zap"
)

type service struct {
	log             *zap.Logger
	authSvc         authdomain.Service
	verificationSvc verificationdomain.Service
	provisioner     domain.Provisioner
}

func NewService(log *zap.Logger, authSvc authdomain.Service, verificationSvc verificationdomain.Service, provisioner domain.Provisioner) domain.Service {
	return &service{
		log:             log.Named("signup.service"),
		authSvc:         authSvc,
		verificationSvc: verificationSvc,
		provisioner:     provisioner,
	}
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) error {
	email, err := verificationservice.NormalizeEmail(req.Email)
	if err != nil {
		return err
	}

	existing, err := s.authSvc.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, authdomain.ErrUserNotFound) {
		return err
	}
	if existing != nil {
		return authdomain.ErrUserExists
	}

	return s.verificationSvc.Issue(ctx, verificationdomain.IssueRequest{
		Email:   email,
		Purpose: verificationdomain.PurposeRegistration,
		Payload: map[string]any{
			"name":      req.Name,
			"company":   req.Company,
			"job_title": req.JobTitle,
		},
	})
}

func (s *service) RequestLogin(ctx context.Context, rawEmail string) error {
	email, err := verificationservice.NormalizeEmail(rawEmail)
	if err != nil {
		return err
	}

	user, err := s.authSvc.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !user.EmailVerified {
		return authdomain.ErrEmailNotVerified
	}

	return s.verificationSvc.Issue(ctx, verificationdomain.IssueRequest{
		Email:   email,
		Purpose: verificationdomain.PurposeLogin,
	})
}

func (s *service) VerifyRegistration(ctx context.Context, rawEmail, code string) (*domain.Result, error) {
	email, err := verificationservice.NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	payload, err := s.verificationSvc.Verify(ctx, verificationdomain.VerifyRequest{
		Email:   email,
		Code:    code,
		Purpose: verificationdomain.PurposeRegistration,
	})
	if err != nil {
		return nil, err
	}

	user, err := s.authSvc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    email,
		Name:     payloadString(payload, "name"),
		Company:  payloadString(payload, "company"),
		JobTitle: payloadString(payload, "job_title"),
		Verified: true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.provisioner.Provision(ctx, user.ID); err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.Int64("user_id", user.ID.Int64()))
	return s.openSession(ctx, user)
}

func (s *service) VerifyLogin(ctx context.Context, rawEmail, code string) (*domain.Result, error) {
	email, err := verificationservice.NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	user, err := s.authSvc.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if _, err := s.verificationSvc.Verify(ctx, verificationdomain.VerifyRequest{
		Email:   email,
		Code:    code,
		Purpose: verificationdomain.PurposeLogin,
	}); err != nil {
		return nil, err
	}

	return s.openSession(ctx, user)
}

func (s *service) openSession(ctx context.Context, user *authdomain.User) (*domain.Result, error) {
	session, err := s.authSvc.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Result{
		User:      user,
		RawToken:  session.RawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}
