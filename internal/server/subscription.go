package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
)

const timeLayout = time.RFC3339

type CreateSubscriptionRequest struct {
	PlanID string `json:"plan_id"`
}

type subscriptionView struct {
	ID                 string `json:"id"`
	PlanID             string `json:"plan_id"`
	PlanCode           string `json:"plan_code"`
	PlanName           string `json:"plan_name"`
	Status             string `json:"status"`
	State              string `json:"state"`
	CurrentPeriodStart string `json:"current_period_start"`
	CurrentPeriodEnd   string `json:"current_period_end"`
	GrantGenerations   int    `json:"grant_generations_remaining"`
	GrantSendsPerEmail int    `json:"grant_sends_per_email"`
}

func newSubscriptionView(view *subscriptiondomain.View) subscriptionView {
	sub := view.Subscription
	return subscriptionView{
		ID:                 sub.ID.String(),
		PlanID:             view.Plan.ID.String(),
		PlanCode:           string(view.Plan.Code),
		PlanName:           view.Plan.Name,
		Status:             string(sub.Status),
		State:              string(view.State),
		CurrentPeriodStart: sub.CurrentPeriodStart.Format(timeLayout),
		CurrentPeriodEnd:   sub.CurrentPeriodEnd.Format(timeLayout),
		GrantGenerations:   sub.GrantGenerationsRemaining,
		GrantSendsPerEmail: sub.GrantSendsPerEmail,
	}
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.subscriptionSvc.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (s *Server) GetCurrentSubscription(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.subscriptionSvc.GetCurrent(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionView(view))
}

func (s *Server) CreateSubscription(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil {
		AbortWithError(c, newValidationError("plan_id", "invalid_plan_id", "invalid plan id"))
		return
	}

	plan, err := s.subscriptionSvc.GetPlanByID(c.Request.Context(), planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	view, err := s.subscriptionSvc.Assign(c.Request.Context(), subscriptiondomain.AssignRequest{
		UserID:   userID,
		PlanCode: plan.Code,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionView(view))
}

func (s *Server) CancelSubscription(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	view, err := s.subscriptionSvc.Cancel(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSubscriptionView(view))
}
