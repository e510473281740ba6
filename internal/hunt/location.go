package hunt

import (
	"context"

	"github.com/paulmach/orb"

	"trailhunt.dev/internal/geo"
	"trailhunt.dev/internal/protocol"
)

type locationOutcome struct {
	status       protocol.Status
	attempt      *AttemptRecord
	roadFinished bool
}

// checkLocation evaluates one location submission against the current
// unresolved riddle. The duplicate-success check and the append run in one
// transaction so two near-simultaneous submissions by members of the same
// group cannot both be recorded as the first success.
func (e *Engine) checkLocation(ctx context.Context, h Hunt, road Road, groupID, userID int64, pt orb.Point) (locationOutcome, error) {
	var out locationOutcome
	scope := int64(0)
	if h.GroupMode {
		scope = groupID
	}
	err := e.store.InTx(ctx, func(tx Store) error {
		riddles, err := tx.RiddlesByRoad(ctx, road.ID)
		if err != nil {
			return err
		}
		if len(riddles) == 0 {
			out.status = protocol.Error(protocol.ErrNotFound, "the road has no riddles")
			return nil
		}
		last, err := tx.LastSuccessfulLocation(ctx, road.ID, h.GroupMode, groupID, userID)
		if err != nil {
			return err
		}

		var target Riddle
		if last == nil {
			target = riddles[0]
		} else {
			// The submission may have been aimed at the riddle a teammate
			// solved between this client's poll and now. When the point
			// lands in the solved riddle's geometry, record the success for
			// the audit trail; it does not advance anything (progress
			// derives from the highest riddle, not the row count).
			if prev := riddleByID(riddles, last.RiddleID); prev != nil {
				pg, perr := geo.DecodeGeometry(prev.Geometry)
				if perr == nil && geo.Contains(pg, pt) {
					loc, lerr := geo.EncodeGeometry(pt)
					if lerr != nil {
						return lerr
					}
					userName, _ := tx.UserName(ctx, userID)
					a := &Attempt{
						RiddleID:         prev.ID,
						UserID:           userID,
						GroupID:          scope,
						Type:             AttemptLocation,
						Success:          true,
						GeometrySolved:   true,
						QuestionSolved:   prev.QuestionText == "",
						CompletionSolved: prev.ActivityToEnd == 0,
						Location:         loc,
						TimeCreated:      e.now(),
					}
					if err := tx.AppendAttempt(ctx, a); err != nil {
						return err
					}
					out.attempt = &AttemptRecord{Attempt: *a, RiddleNumber: prev.Number, RiddleName: prev.Name, UserName: userName}
					out.status = protocol.Info(protocol.ErrAlreadyResolved, msgAlreadyFound)
					return nil
				}
			}
			if !last.GatesSatisfied() {
				out.status = protocol.Info(protocol.ErrRiddleLocked, msgRiddleLocked)
				return nil
			}
			idx := -1
			for i, r := range riddles {
				if r.ID == last.RiddleID {
					idx = i
					break
				}
			}
			if idx < 0 || idx+1 >= len(riddles) {
				out.roadFinished = true
				out.status = protocol.OK(msgRoadDone)
				return nil
			}
			target = riddles[idx+1]
		}

		g, gerr := geo.DecodeGeometry(target.Geometry)
		if gerr != nil {
			out.status = protocol.Error(protocol.ErrBadGeometry, "the riddle has no valid geometry")
			return nil
		}
		loc, lerr := geo.EncodeGeometry(pt)
		if lerr != nil {
			return lerr
		}
		userName, _ := tx.UserName(ctx, userID)

		if geo.Contains(g, pt) {
			a := &Attempt{
				RiddleID:         target.ID,
				UserID:           userID,
				GroupID:          scope,
				Type:             AttemptLocation,
				Success:          true,
				GeometrySolved:   true,
				QuestionSolved:   target.QuestionText == "",
				CompletionSolved: target.ActivityToEnd == 0,
				Location:         loc,
				TimeCreated:      e.now(),
			}
			if err := tx.AppendAttempt(ctx, a); err != nil {
				return err
			}
			out.attempt = &AttemptRecord{Attempt: *a, RiddleNumber: target.Number, RiddleName: target.Name, UserName: userName}
			if a.GatesSatisfied() && target.Number == riddles[len(riddles)-1].Number {
				out.roadFinished = true
				out.status = protocol.OK(msgRoadFinished)
			} else {
				out.status = protocol.OK(msgSuccessLocation)
			}
			return nil
		}

		a := &Attempt{
			RiddleID:    target.ID,
			UserID:      userID,
			GroupID:     scope,
			Type:        AttemptLocation,
			Success:     false,
			Penalty:     e.cfg.PenalizeFailedLocation,
			Location:    loc,
			TimeCreated: e.now(),
		}
		if err := tx.AppendAttempt(ctx, a); err != nil {
			return err
		}
		out.attempt = &AttemptRecord{Attempt: *a, RiddleNumber: target.Number, RiddleName: target.Name, UserName: userName}
		msg := msgFailLocation
		if last == nil {
			msg = msgFirstRiddle
		}
		out.status = protocol.OK(msg)
		return nil
	})
	return out, err
}
