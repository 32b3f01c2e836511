package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) WalletBalance(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	wallet, err := s.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance_cents": wallet.BalanceCents,
		"currency":      wallet.Currency,
	})
}

func (s *Server) WalletTransactions(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	transactions, err := s.walletSvc.ListTransactions(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": transactions})
}
