package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/domain"
	"github.com/tuncanbit/recon/internal/intake"
)

// Engine is the top of the processing pipeline: authenticate, record,
// route, classify. The HTTP layer maps the returned error to a status
// code; a nil return means the event is durably accounted for and the
// processor must not redeliver it.
type Engine struct {
	auth              *intake.Authenticator
	guard             *Guard
	service           *Service
	processingTimeout time.Duration
	storeTimeout      time.Duration
	logger            zerolog.Logger
}

func NewEngine(auth *intake.Authenticator, guard *Guard, service *Service, processingTimeout, storeTimeout time.Duration, logger zerolog.Logger) *Engine {
	if processingTimeout <= 0 {
		processingTimeout = 30 * time.Second
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Engine{
		auth:              auth,
		guard:             guard,
		service:           service,
		processingTimeout: processingTimeout,
		storeTimeout:      storeTimeout,
		logger:            logger.With().Str("component", "engine").Logger(),
	}
}

// Process runs one delivery end to end. Authentication and parse errors
// return before any state is touched. After the audit entry exists the
// event is processed on a context detached from the caller's cancelation
// so a dropped connection cannot leave a half-applied transition.
func (e *Engine) Process(ctx context.Context, body []byte, signature string) error {
	event, err := e.auth.Parse(body, signature)
	if err != nil {
		return err
	}

	// The audit insert is a single row write; a hung store should fail
	// the delivery fast instead of holding the processor's connection.
	beginCtx, beginCancel := context.WithTimeout(ctx, e.storeTimeout)
	proceed, err := e.guard.Begin(beginCtx, event)
	beginCancel()
	if err != nil {
		return err
	}
	if !proceed {
		return nil
	}

	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.processingTimeout)
	defer cancel()

	dispatchErr := e.service.Dispatch(procCtx, event)
	switch {
	case dispatchErr == nil:
		return e.guard.Finish(procCtx, event.ID, domain.AuditOutcomeSucceeded, "")
	case domain.IsTerminal(dispatchErr):
		e.logger.Warn().
			Err(dispatchErr).
			Str("event_id", event.ID).
			Str("event_type", event.RawType).
			Msg("Event unresolvable, skipping permanently")
		return e.guard.Finish(procCtx, event.ID, domain.AuditOutcomeSkipped, dispatchErr.Error())
	default:
		if markErr := e.guard.Finish(procCtx, event.ID, domain.AuditOutcomeFailed, dispatchErr.Error()); markErr != nil {
			e.logger.Error().Err(markErr).Str("event_id", event.ID).Msg("Failed to record event failure")
		}
		return dispatchErr
	}
}
