package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	creditpackagedomain "github.com/lumamail/backend/internal/creditpackage/domain"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
)

type PurchasePackageRequest struct {
	PackageID string `json:"package_id"`
}

func (s *Server) ListPackages(c *gin.Context) {
	packages, err := s.packageSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": packages})
}

func (s *Server) PurchasePackage(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req PurchasePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	packageID, err := snowflake.ParseString(strings.TrimSpace(req.PackageID))
	if err != nil {
		AbortWithError(c, newValidationError("package_id", "invalid_package_id", "invalid package id"))
		return
	}

	// The purchase operation itself does not gate on plan; the HTTP path
	// does, since the trusted reconciliation path establishes eligibility
	// out of band.
	view, err := s.subscriptionSvc.GetCurrent(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if view.Plan.Code != subscriptiondomain.PlanPro {
		AbortWithError(c, creditpackagedomain.ErrProPlanRequired)
		return
	}

	pkg, err := s.packageSvc.Purchase(c.Request.Context(), userID, packageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"package": pkg})
}

func (s *Server) ListPaymentHistory(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	history, err := s.paymentSvc.ListHistory(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
