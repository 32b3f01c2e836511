package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	authdomain "github.com/lumamail/backend/internal/auth/domain"
	signupdomain "github.com/lumamail/backend/internal/signup/domain"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	JobTitle string `json:"job_title"`
}

type LoginRequest struct {
	Email string `json:"email"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ValidateSessionRequest struct {
	SessionToken string `json:"sessionToken"`
}

type userView struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Company       string    `json:"company,omitempty"`
	JobTitle      string    `json:"job_title,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func newUserView(user *authdomain.User) userView {
	return userView{
		ID:            user.ID.String(),
		Email:         user.Email,
		Name:          user.Name,
		Company:       user.Company,
		JobTitle:      user.JobTitle,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

func (s *Server) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		AbortWithError(c, newValidationError("name", "required", "name is required"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	err := s.signupSvc.Register(c.Request.Context(), signupdomain.RegisterRequest{
		Email:    req.Email,
		Name:     strings.TrimSpace(req.Name),
		Company:  strings.TrimSpace(req.Company),
		JobTitle: strings.TrimSpace(req.JobTitle),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}

	if err := s.signupSvc.RequestLogin(c.Request.Context(), req.Email); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) VerifyRegistration(c *gin.Context) {
	s.verify(c, s.signupSvc.VerifyRegistration)
}

func (s *Server) VerifyLogin(c *gin.Context) {
	s.verify(c, s.signupSvc.VerifyLogin)
}

func (s *Server) verify(c *gin.Context, verify func(ctx context.Context, email, code string) (*signupdomain.Result, error)) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := verify(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{
		"user":       newUserView(result.User),
		"expires_at": result.ExpiresAt,
	})
}

func (s *Server) ValidateSession(c *gin.Context) {
	var req ValidateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	token := strings.TrimSpace(req.SessionToken)
	if token == "" {
		if cookieToken, ok := s.sessions.ReadToken(c); ok {
			token = cookieToken
		}
	}
	if token == "" {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	user, err := s.authSvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, authdomain.ErrInvalidSession) {
			c.JSON(http.StatusOK, gin.H{"valid": false})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": true, "user": newUserView(user)})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		err := s.authSvc.Logout(c.Request.Context(), token)
		// An expired or unknown token is already logged out; the cookie
		// still has to go.
		if err != nil && !errors.Is(err, authdomain.ErrInvalidSession) {
			AbortWithError(c, err)
			return
		}
	}
	s.sessions.Clear(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
