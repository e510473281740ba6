package protocol

const (
	// Play flow.
	ErrStaleRoad       = "E_STALE_ROAD"
	ErrAlreadyResolved = "E_ALREADY_RESOLVED"
	ErrRiddleLocked    = "E_RIDDLE_LOCKED"

	// Participant resolution.
	ErrNoGroup           = "E_NO_GROUP"
	ErrNoRoad            = "E_NO_ROAD"
	ErrMultipleRoads     = "E_MULTIPLE_ROADS"
	ErrAmbiguousGrouping = "E_AMBIGUOUS_GROUPING"
	ErrRoadNotValidated  = "E_ROAD_NOT_VALIDATED"

	// Authoring/lock layer.
	ErrLockHeld        = "E_LOCK_HELD"
	ErrLockInvalid     = "E_LOCK_INVALID"
	ErrLockExpired     = "E_LOCK_EXPIRED"
	ErrRoadHasAttempts = "E_ROAD_HAS_ATTEMPTS"

	// Input/infrastructure.
	ErrBadRequest  = "E_BAD_REQUEST"
	ErrBadGeometry = "E_BAD_GEOMETRY"
	ErrNotFound    = "E_NOT_FOUND"
	ErrPersistence = "E_PERSISTENCE"
)

var knownCodes = map[string]struct{}{
	ErrStaleRoad:         {},
	ErrAlreadyResolved:   {},
	ErrRiddleLocked:      {},
	ErrNoGroup:           {},
	ErrNoRoad:            {},
	ErrMultipleRoads:     {},
	ErrAmbiguousGrouping: {},
	ErrRoadNotValidated:  {},
	ErrLockHeld:          {},
	ErrLockInvalid:       {},
	ErrLockExpired:       {},
	ErrRoadHasAttempts:   {},
	ErrBadRequest:        {},
	ErrBadGeometry:       {},
	ErrNotFound:          {},
	ErrPersistence:       {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
