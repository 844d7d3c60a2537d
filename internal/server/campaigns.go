package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NzeStan/Material-Wear-sub002/internal/campaign"
)

func (s *Server) handleCreateCampaign(c *gin.Context) {
	var in campaign.CreateInput
	if err := c.BindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	camp, err := s.campaigns.Create(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, camp)
}

type attachRosterRequest struct {
	SheetURL string `json:"sheet_url"`
}

func (s *Server) handleAttachRoster(c *gin.Context) {
	var req attachRosterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	camp, err := s.campaigns.AttachRoster(c.Request.Context(), c.Param("code"), req.SheetURL)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, camp)
}

func (s *Server) handleInitializePayment(c *gin.Context) {
	link, err := s.campaigns.InitializePayment(c.Request.Context(), c.Param("code"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}
