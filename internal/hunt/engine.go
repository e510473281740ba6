package hunt

import (
	"context"
	"errors"
	"log"
	"time"

	"trailhunt.dev/internal/protocol"
)

// Config carries the engine's tunables (see internal/config for the YAML
// form).
type Config struct {
	// LockTTL is the edit lock's time to live between renewals.
	LockTTL time.Duration
	// PenalizeFailedLocation marks failed location attempts with the penalty
	// flag (grading is external; the flag only travels on the record).
	PenalizeFailedLocation bool
}

// Error is a typed domain condition. It maps 1:1 onto a protocol error code
// so the boundary layer can render it uniformly.
type Error struct {
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Code + ": " + e.Msg }

func (e *Error) Status() protocol.Status { return protocol.Error(e.Code, e.Msg) }

// Engine executes the play and authoring operations against the durable
// store. Each call is an independent request-response unit; the engine keeps
// no per-session state.
type Engine struct {
	store      Store
	cfg        Config
	completion CompletionOracle
	events     EventSink
	notify     func(protocol.FeedMsg)
	log        *log.Logger
	clock      func() time.Time
}

func NewEngine(store Store, cfg Config, completion CompletionOracle, events EventSink, logger *log.Logger) *Engine {
	if completion == nil {
		completion = nopOracle{}
	}
	if events == nil {
		events = nopSink{}
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[hunt] ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Engine{
		store:      store,
		cfg:        cfg,
		completion: completion,
		events:     events,
		log:        logger,
		clock:      time.Now,
	}
}

// SetNotifier installs the push channel for the live attempt feed. Optional:
// polling stays the source of truth.
func (e *Engine) SetNotifier(fn func(protocol.FeedMsg)) { e.notify = fn }

// SetClock overrides the engine clock (tests).
func (e *Engine) SetClock(fn func() time.Time) { e.clock = fn }

func (e *Engine) now() int64 { return e.clock().UnixMilli() }

func (e *Engine) record(ev Event) {
	ev.Time = e.now()
	e.events.Record(ev)
}

func (e *Engine) push(msg protocol.FeedMsg) {
	if e.notify == nil {
		return
	}
	msg.ProtocolVersion = protocol.Version
	e.notify(msg)
}

// storeStatus maps a store read failure onto the status convention.
func (e *Engine) storeStatus(err error, notFoundMsg string) protocol.Status {
	if errors.Is(err, ErrNotFound) {
		return protocol.Error(protocol.ErrNotFound, notFoundMsg)
	}
	e.log.Printf("store: %v", err)
	return protocol.Error(protocol.ErrPersistence, "persistence failure")
}

type nopSink struct{}

func (nopSink) Record(Event) {}

type nopOracle struct{}

func (nopOracle) Completed(context.Context, int64, int64) (bool, error) { return false, nil }
