package hunt

import (
	"context"
	"errors"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Store is the narrow persistence surface the engine consumes. InTx runs fn
// against a store view whose calls all land in one transaction; the engine
// relies on it for the check-then-append units (first success wins, lock
// compare-and-swap). Appends visible to reads issued after InTx returns.
type Store interface {
	InTx(ctx context.Context, fn func(tx Store) error) error

	HuntByID(ctx context.Context, id int64) (Hunt, error)
	Road(ctx context.Context, id int64) (Road, error)
	RoadsByHunt(ctx context.Context, huntID int64) ([]Road, error)
	// TouchRoad bumps the road's modification time; every authoring mutation
	// goes through it so in-flight play submissions turn stale.
	TouchRoad(ctx context.Context, roadID, now int64) error
	DeleteRoad(ctx context.Context, roadID int64) error

	Riddle(ctx context.Context, id int64) (Riddle, error)
	// RiddlesByRoad returns the road's riddles ordered by number.
	RiddlesByRoad(ctx context.Context, roadID int64) ([]Riddle, error)
	RiddlesByHunt(ctx context.Context, huntID int64) ([]Riddle, error)
	UpdateRiddleGeometry(ctx context.Context, riddleID int64, geom []byte, now int64) error
	DeleteRiddle(ctx context.Context, riddleID int64) error

	Answer(ctx context.Context, id int64) (Answer, error)
	AnswersByRiddle(ctx context.Context, riddleID int64) ([]Answer, error)

	// Ledger. Scope is (road, group) in group mode and (road, user)
	// otherwise; the groupMode/groupID/userID triple selects it.
	AppendAttempt(ctx context.Context, a *Attempt) error
	AttemptsSince(ctx context.Context, roadID, since int64, groupMode bool, groupID, userID int64) ([]AttemptRecord, error)
	LastSuccessfulLocation(ctx context.Context, roadID int64, groupMode bool, groupID, userID int64) (*AttemptRecord, error)
	RoadHasAttempts(ctx context.Context, roadID int64) (bool, error)
	SetQuestionSolved(ctx context.Context, attemptID int64) error
	SetCompletionSolved(ctx context.Context, attemptID int64) error

	EditLockByHunt(ctx context.Context, huntID int64) (*EditLock, error)
	PutEditLock(ctx context.Context, l *EditLock) error

	// Membership data for participant resolution.
	GroupsOf(ctx context.Context, userID int64) ([]int64, error)
	GroupsInGrouping(ctx context.Context, groupingID int64) ([]int64, error)
	UserName(ctx context.Context, userID int64) (string, error)
}
