package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NzeStan/Material-Wear-sub002/internal/paystack"
	"github.com/NzeStan/Material-Wear-sub002/internal/reconcile"
)

// handleWebhook receives provider deliveries. The body is read raw and
// passed through untouched; the engine verifies the signature over these
// exact bytes before anything is parsed.
func (s *Server) handleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		s.log.Error().Err(err).Msg("read webhook body failed")
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "unreadable body"})
		return
	}

	signature := c.GetHeader(paystack.SignatureHeader)

	res, err := s.engine.HandleWebhook(c.Request.Context(), body, signature)
	if err != nil {
		switch {
		case errors.Is(err, reconcile.ErrBadSignature):
			c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "invalid signature"})
		case errors.Is(err, reconcile.ErrMalformedPayload):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "rejected payload"})
		case errors.Is(err, reconcile.ErrUnknownReference):
			c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "unknown reference"})
		case errors.Is(err, reconcile.ErrSideEffects):
			// The transition committed; only the follow-up work failed. The
			// provider retries, hits the replay path, and the sweep repairs
			// the rest.
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "payment recorded, processing incomplete"})
		default:
			s.log.Error().Err(err).Msg("webhook processing failed")
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "internal error"})
		}
		return
	}

	switch res.Outcome {
	case reconcile.OutcomeReplay:
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "already processed"})
	case reconcile.OutcomeIgnored:
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

const thankYouPage = `<!DOCTYPE html>
<html>
  <head><title>Payment received</title></head>
  <body>
    <h1>Payment received</h1>
    <p>Thank you! Your payment is being confirmed and a receipt will reach your email shortly.</p>
  </body>
</html>
`

func (s *Server) handleThankYou(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(thankYouPage))
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}
