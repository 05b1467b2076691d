package session

import (
	"context"
	"time"

	"github.com/rite2rise/web-bff/internal/domain"
	"github.com/rite2rise/web-bff/internal/downstream"
	"github.com/rite2rise/web-bff/internal/logger"
	"github.com/rite2rise/web-bff/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Action string

const (
	ActionRegister   Action = "register"
	ActionUnregister Action = "unregister"
)

// Strategy decides what happens to the optimistic entry after a successful
// action.
type Strategy string

const (
	// StrategyTrust keeps the optimistic entry as truth until the next refresh.
	StrategyTrust Strategy = "trust"
	// StrategyRefresh clears the entry and re-fetches the event list.
	StrategyRefresh Strategy = "refresh"
)

const (
	NotificationSuccess = "success"
	NotificationError   = "error"
)

const (
	msgRegistered       = "Successfully registered for the event!"
	msgUnregistered     = "Successfully unregistered from the event."
	msgRegisterFailed   = "Failed to register for event. Please try again."
	msgUnregisterFailed = "Failed to unregister from event. Please try again."
)

// EventsAPI is the part of the Rite2Rise API the coordinator needs.
type EventsAPI interface {
	AllEvents(ctx context.Context, token string) ([]domain.Event, error)
	JoinEvent(ctx context.Context, token, eventID string) error
	LeaveEvent(ctx context.Context, token, eventID string) error
}

type Notification struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Outcome is the settled result of one action, ready to show to the user.
type Outcome struct {
	Action       Action                  `json:"action"`
	EventID      string                  `json:"event_id"`
	Success      bool                    `json:"success"`
	Notification Notification            `json:"notification"`
	View         domain.RegistrationView `json:"registration"`
}

// Coordinator runs register and unregister actions against the API with
// optimistic feedback. It is the only writer of session overlays.
type Coordinator struct {
	api      EventsAPI
	strategy Strategy
	now      func() time.Time
}

func NewCoordinator(api EventsAPI, strategy Strategy) *Coordinator {
	if strategy != StrategyRefresh {
		strategy = StrategyTrust
	}
	return &Coordinator{api: api, strategy: strategy, now: time.Now}
}

func (c *Coordinator) Strategy() Strategy {
	return c.strategy
}

// Refresh fetches the event list and swaps in the derived snapshot. A fetch
// that completes after a newer one was applied is discarded.
func (c *Coordinator) Refresh(ctx context.Context, sess *Session) error {
	seq := sess.beginFetch()
	events, err := c.api.AllEvents(ctx, sess.Token())
	if err != nil {
		return err
	}
	if !sess.apply(seq, events) {
		logger.Ctx(ctx).Debug().Uint64("seq", seq).Msg("stale event snapshot discarded")
	}
	return nil
}

// EnsureLoaded fetches the event list once per session.
func (c *Coordinator) EnsureLoaded(ctx context.Context, sess *Session) error {
	if sess.Loaded() {
		return nil
	}
	return c.Refresh(ctx, sess)
}

func (c *Coordinator) Register(ctx context.Context, sess *Session, eventID string) (Outcome, error) {
	return c.run(ctx, sess, eventID, ActionRegister)
}

func (c *Coordinator) Unregister(ctx context.Context, sess *Session, eventID string) (Outcome, error) {
	return c.run(ctx, sess, eventID, ActionUnregister)
}

// run takes one action from dispatch to settlement. Only pre-condition
// rejections come back as errors; a failed API call is a settled outcome.
func (c *Coordinator) run(ctx context.Context, sess *Session, eventID string, action Action) (Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "registration."+string(action),
		trace.WithAttributes(
			attribute.String("event.id", eventID),
			attribute.String("registration.strategy", string(c.strategy)),
		),
	)
	defer span.End()

	log := logger.Ctx(ctx).With().Str("action", string(action)).Str("event_id", eventID).Logger()

	before, err := sess.begin(eventID, action, c.now())
	if err != nil {
		actionsTotal.WithLabelValues(string(action), "rejected").Inc()
		span.SetAttributes(attribute.String("registration.rejected", err.Error()))
		log.Debug().Err(err).Msg("registration action rejected")
		return Outcome{}, err
	}
	defer sess.finish(eventID)

	start := time.Now()
	err = c.dispatch(ctx, sess.Token(), eventID, action)
	actionDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())

	out := Outcome{Action: action, EventID: eventID}
	if err != nil {
		sess.rollback(eventID)
		actionsTotal.WithLabelValues(string(action), "failure").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		out.Notification = Notification{
			Type: NotificationError,
			Text: downstream.UserMessage(err, failureText(action)),
		}
		log.Warn().Err(err).Bool("transport", downstream.IsTransport(err)).
			Int("count_before", before.Count).Msg("registration action failed, rolled back")
	} else {
		if c.strategy == StrategyRefresh {
			c.refreshAfter(ctx, sess, eventID)
		}
		actionsTotal.WithLabelValues(string(action), "success").Inc()

		out.Success = true
		out.Notification = Notification{Type: NotificationSuccess, Text: successText(action)}
		log.Info().Msg("registration action succeeded")
	}

	// settled before the view is read; the deferred finish covers panics
	sess.finish(eventID)
	out.View = sess.View(eventID, c.now())
	return out, nil
}

func (c *Coordinator) dispatch(ctx context.Context, token, eventID string, action Action) error {
	if action == ActionRegister {
		return c.api.JoinEvent(ctx, token, eventID)
	}
	return c.api.LeaveEvent(ctx, token, eventID)
}

// refreshAfter re-fetches after a successful action. When the fetch fails the
// optimistic entry stays as the best known state until the next refresh.
func (c *Coordinator) refreshAfter(ctx context.Context, sess *Session, eventID string) {
	seq := sess.beginFetch()
	events, err := c.api.AllEvents(ctx, sess.Token())
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("event_id", eventID).
			Msg("refresh after registration action failed, keeping optimistic state")
		return
	}
	sess.settle(eventID, seq, events)
}

func successText(action Action) string {
	if action == ActionRegister {
		return msgRegistered
	}
	return msgUnregistered
}

func failureText(action Action) string {
	if action == ActionRegister {
		return msgRegisterFailed
	}
	return msgUnregisterFailed
}
