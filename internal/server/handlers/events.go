package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/domain"
	"github.com/tuncanbit/recon/internal/reconcile"
)

// signatureHeader carries the hex HMAC-SHA256 of the raw request body.
const signatureHeader = "X-Webhook-Signature"

// EventHandler receives processor deliveries. The status code is the
// contract with the processor's retry loop: 2xx stops redelivery, 4xx
// rejects the payload outright, 5xx requests another attempt.
type EventHandler struct {
	engine     *reconcile.Engine
	testEngine *reconcile.Engine
	logger     zerolog.Logger
}

func NewEventHandler(engine, testEngine *reconcile.Engine, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		engine:     engine,
		testEngine: testEngine,
		logger:     logger.With().Str("component", "event_handler").Logger(),
	}
}

// HandleEvent is the production delivery endpoint; signatures are
// mandatory.
func (h *EventHandler) HandleEvent(c *gin.Context) {
	h.process(c, h.engine)
}

// HandleTestEvent injects simulated events without a signature. The
// route sits behind the API key middleware.
func (h *EventHandler) HandleTestEvent(c *gin.Context) {
	h.process(c, h.testEngine)
}

func (h *EventHandler) process(c *gin.Context, engine *reconcile.Engine) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	err = engine.Process(c.Request.Context(), body, c.GetHeader(signatureHeader))
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var authErr *domain.AuthenticationError
	var malformedErr *domain.MalformedEventError
	switch {
	case errors.As(err, &authErr):
		h.logger.Warn().Err(err).Str("client_ip", c.ClientIP()).Msg("Rejected unauthenticated event")
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error()})
	case errors.As(err, &malformedErr):
		h.logger.Warn().Err(err).Msg("Rejected malformed event")
		c.JSON(http.StatusBadRequest, gin.H{"error": malformedErr.Error()})
	default:
		// Retryable: a 5xx tells the processor to redeliver.
		h.logger.Error().Err(err).Msg("Event processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
	}
}
