package hunt

import (
	"context"

	"trailhunt.dev/internal/protocol"
)

// resolveParticipant maps a user to the single road (and, in group mode,
// group) they play on. Every ambiguity is a distinct reported condition,
// never a silent guess.
func (e *Engine) resolveParticipant(ctx context.Context, h Hunt, userID int64) (Road, int64, *Error) {
	roads, err := e.store.RoadsByHunt(ctx, h.ID)
	if err != nil {
		return Road{}, 0, &Error{Code: protocol.ErrPersistence, Msg: "could not load roads"}
	}
	if len(roads) == 0 {
		return Road{}, 0, &Error{Code: protocol.ErrNoRoad, Msg: msgNoRoad}
	}
	if h.GroupMode {
		return e.resolveGroupRoad(ctx, roads, userID)
	}
	return e.resolveUserRoad(ctx, roads, userID)
}

func (e *Engine) resolveGroupRoad(ctx context.Context, roads []Road, userID int64) (Road, int64, *Error) {
	groups, err := e.store.GroupsOf(ctx, userID)
	if err != nil {
		return Road{}, 0, &Error{Code: protocol.ErrPersistence, Msg: "could not load groups"}
	}
	if len(groups) == 0 {
		return Road{}, 0, &Error{Code: protocol.ErrNoGroup, Msg: msgNoGroup}
	}
	inGroups := func(id int64) bool {
		for _, g := range groups {
			if g == id {
				return true
			}
		}
		return false
	}

	type match struct {
		road    Road
		groupID int64
	}
	var matches []match
	for _, r := range roads {
		switch {
		case r.GroupID != 0:
			if inGroups(r.GroupID) {
				matches = append(matches, match{r, r.GroupID})
			}
		case r.GroupingID != 0:
			members, err := e.store.GroupsInGrouping(ctx, r.GroupingID)
			if err != nil {
				return Road{}, 0, &Error{Code: protocol.ErrPersistence, Msg: "could not load grouping"}
			}
			var mine []int64
			for _, g := range members {
				if inGroups(g) {
					mine = append(mine, g)
				}
			}
			if len(mine) > 1 {
				// Member of more than one group on the same road.
				return Road{}, 0, &Error{Code: protocol.ErrAmbiguousGrouping, Msg: msgAmbiguousGrouping}
			}
			if len(mine) == 1 {
				matches = append(matches, match{r, mine[0]})
			}
		default:
			// Road applies to everyone; the attempt scope is still the
			// participant's group.
			if len(groups) > 1 {
				return Road{}, 0, &Error{Code: protocol.ErrAmbiguousGrouping, Msg: msgAmbiguousGrouping}
			}
			matches = append(matches, match{r, groups[0]})
		}
	}
	if len(matches) == 0 {
		return Road{}, 0, &Error{Code: protocol.ErrNoRoad, Msg: msgNoGroupRoad}
	}
	if len(matches) > 1 {
		return Road{}, 0, &Error{Code: protocol.ErrMultipleRoads, Msg: msgMultipleGroupRoads}
	}
	return matches[0].road, matches[0].groupID, nil
}

func (e *Engine) resolveUserRoad(ctx context.Context, roads []Road, userID int64) (Road, int64, *Error) {
	groups, err := e.store.GroupsOf(ctx, userID)
	if err != nil {
		return Road{}, 0, &Error{Code: protocol.ErrPersistence, Msg: "could not load groups"}
	}
	inGroups := func(id int64) bool {
		for _, g := range groups {
			if g == id {
				return true
			}
		}
		return false
	}

	var matches []Road
	for _, r := range roads {
		switch {
		case r.GroupID != 0:
			if inGroups(r.GroupID) {
				matches = append(matches, r)
			}
		case r.GroupingID != 0:
			members, err := e.store.GroupsInGrouping(ctx, r.GroupingID)
			if err != nil {
				return Road{}, 0, &Error{Code: protocol.ErrPersistence, Msg: "could not load grouping"}
			}
			for _, g := range members {
				if inGroups(g) {
					matches = append(matches, r)
					break
				}
			}
		default:
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return Road{}, 0, &Error{Code: protocol.ErrNoRoad, Msg: msgNoRoad}
	}
	if len(matches) > 1 {
		return Road{}, 0, &Error{Code: protocol.ErrMultipleRoads, Msg: msgMultipleRoads}
	}
	// Individual play: attempts are private to the user regardless of how
	// the road was matched.
	return matches[0], 0, nil
}
