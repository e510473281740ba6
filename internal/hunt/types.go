// Package hunt implements the scavenger-hunt progress engine: riddle
// sequencing, attempt recording, group-shared success propagation, and the
// cooperative edit lock that gates authoring.
package hunt

import "context"

// Timestamps are unix milliseconds throughout. Clients echo them opaquely.

type Hunt struct {
	ID                int64
	Name              string
	GroupMode         bool
	PlayWithoutMoving bool
	TimeCreated       int64
	TimeModified      int64
}

// Road is an ordered path of riddles. It is bound to exactly one group, one
// grouping, or neither (applies to everyone).
type Road struct {
	ID           int64
	HuntID       int64
	Name         string
	GroupID      int64
	GroupingID   int64
	Validated    bool
	TimeCreated  int64
	TimeModified int64
}

type Riddle struct {
	ID           int64
	RoadID       int64
	Number       int // 1-based position on the road
	Name         string
	Description  string
	QuestionText string
	// ActivityToEnd references an external activity that must be completed
	// before this riddle counts as overcome. Zero means no completion gate.
	ActivityToEnd int64
	// Geometry is the target area as a GeoJSON geometry document.
	Geometry     []byte
	TimeCreated  int64
	TimeModified int64
}

type Answer struct {
	ID       int64
	RiddleID int64
	Text     string
	Correct  bool
}

type AttemptType string

const (
	AttemptLocation AttemptType = "location"
	AttemptQuestion AttemptType = "question"
)

// Attempt is an immutable fact: one location or answer submission outcome.
// Rows are never deleted; only the two gate flags are ever updated, and only
// on the newest pending location success.
type Attempt struct {
	ID       int64
	RiddleID int64
	UserID   int64
	// GroupID is the sharing scope in group mode, zero for individual play.
	GroupID int64
	Type    AttemptType
	Success bool
	Penalty bool
	// Gate flags. They start true when the corresponding gate is absent, so
	// GatesSatisfied is a plain conjunction.
	QuestionSolved   bool
	CompletionSolved bool
	GeometrySolved   bool
	// Location is the submitted point as a GeoJSON geometry document, nil
	// for question attempts.
	Location    []byte
	TimeCreated int64
}

// GatesSatisfied reports whether this success fully overcomes its riddle.
func (a Attempt) GatesSatisfied() bool {
	return a.QuestionSolved && a.CompletionSolved
}

// AttemptRecord is an Attempt joined with the display fields the delta feed
// needs.
type AttemptRecord struct {
	Attempt
	RiddleNumber int
	RiddleName   string
	UserName     string
}

// EditLock is the cooperative TTL token guarding authoring. At most one
// valid (non-expired) lock exists per hunt; abandonment is handled purely by
// expiry.
type EditLock struct {
	HuntID    int64
	UserID    int64
	LockID    string
	IssuedAt  int64
	ExpiresAt int64
}

func (l EditLock) Expired(nowMillis int64) bool { return nowMillis >= l.ExpiresAt }

// Event is a fire-and-forget notification consumed by the event sink after a
// successful mutation.
type Event struct {
	Time     int64  `json:"ts"`
	Kind     string `json:"kind"`
	HuntID   int64  `json:"huntid"`
	RoadID   int64  `json:"roadid,omitempty"`
	ObjectID int64  `json:"objectid,omitempty"`
	UserID   int64  `json:"userid,omitempty"`
}

const (
	EventRiddleUpdated  = "riddle_updated"
	EventRiddleDeleted  = "riddle_deleted"
	EventRoadDeleted    = "road_deleted"
	EventAttemptCreated = "attempt_created"
	EventLockAcquired   = "lock_acquired"
)

// EventSink receives mutation events. Implementations must not block the
// play flow; errors are the sink's own problem.
type EventSink interface {
	Record(ev Event)
}

// CompletionOracle answers whether a participant has completed the external
// activity a riddle's completion gate references.
type CompletionOracle interface {
	Completed(ctx context.Context, activityRef, userID int64) (bool, error)
}
