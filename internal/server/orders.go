package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/NzeStan/Material-Wear-sub002/internal/order"
)

type createBulkOrderRequest struct {
	Title          string `json:"title"`
	UnitAmountKobo int64  `json:"unit_amount_kobo"`
}

func (s *Server) handleCreateBulkOrder(c *gin.Context) {
	var req createBulkOrderRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	bo, err := s.orders.CreateBulkOrder(c.Request.Context(), req.Title, req.UnitAmountKobo)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bo)
}

type seedCouponsRequest struct {
	Codes []string `json:"codes"`
}

func (s *Server) handleSeedCoupons(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bulk order id"})
		return
	}

	var req seedCouponsRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.orders.SeedCoupons(c.Request.Context(), id, req.Codes); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"seeded": len(req.Codes)})
}

func (s *Server) handleSubmitEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bulk order id"})
		return
	}

	var in order.SubmitEntryInput
	if err := c.BindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := s.orders.SubmitEntry(c.Request.Context(), id, in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
