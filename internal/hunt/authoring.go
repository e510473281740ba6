package hunt

import (
	"context"
	"errors"
	"fmt"

	"trailhunt.dev/internal/geo"
	"trailhunt.dev/internal/protocol"
)

// errRollback aborts a transaction whose outcome status has already been
// captured; it never escapes the calling operation.
var errRollback = errors.New("rollback")

// UpdateRiddles replaces the geometry of every riddle named by a feature id
// in the request collection. All-or-nothing: one bad feature rolls the whole
// batch back. New riddles cannot be introduced here; geometry edits bump the
// road timestamp so in-flight submissions are rejected as stale.
func (e *Engine) UpdateRiddles(ctx context.Context, req protocol.UpdateRiddlesRequest) protocol.StatusResponse {
	if derr := e.validateLock(ctx, req.HuntID, req.LockID); derr != nil {
		return protocol.StatusResponse{Status: derr.Status()}
	}
	feats, err := geo.ParseFeatureCollection(req.Riddles)
	if err != nil {
		return protocol.StatusResponse{Status: protocol.Error(protocol.ErrBadGeometry, "riddles payload is not a valid feature collection")}
	}
	if len(feats) == 0 {
		return protocol.StatusResponse{Status: protocol.OK(msgRiddlesUpdated)}
	}

	now := e.now()
	var touched []int64
	var failed *protocol.Status
	err = e.store.InTx(ctx, func(tx Store) error {
		roads := map[int64]struct{}{}
		for _, f := range feats {
			r, rerr := tx.Riddle(ctx, f.ID)
			if rerr != nil {
				s := protocol.Error(protocol.ErrNotFound, fmt.Sprintf("riddle %d not found", f.ID))
				failed = &s
				return errRollback
			}
			road, rerr := tx.Road(ctx, r.RoadID)
			if rerr != nil || road.HuntID != req.HuntID {
				s := protocol.Error(protocol.ErrBadRequest, fmt.Sprintf("riddle %d does not belong to this hunt", f.ID))
				failed = &s
				return errRollback
			}
			roads[r.RoadID] = struct{}{}
			geom, gerr := geo.EncodeGeometry(f.Geometry)
			if gerr != nil {
				s := protocol.Error(protocol.ErrBadGeometry, fmt.Sprintf("riddle %d has invalid geometry", f.ID))
				failed = &s
				return errRollback
			}
			if err := tx.UpdateRiddleGeometry(ctx, f.ID, geom, now); err != nil {
				return err
			}
		}
		for roadID := range roads {
			if err := tx.TouchRoad(ctx, roadID, now); err != nil {
				return err
			}
			touched = append(touched, roadID)
		}
		return nil
	})
	if failed != nil {
		return protocol.StatusResponse{Status: *failed}
	}
	if err != nil {
		e.log.Printf("update riddles hunt=%d: %v", req.HuntID, err)
		return protocol.StatusResponse{Status: protocol.Error(protocol.ErrPersistence, "could not persist the riddles")}
	}
	for _, f := range feats {
		e.record(Event{Kind: EventRiddleUpdated, HuntID: req.HuntID, ObjectID: f.ID, UserID: req.UserID})
	}
	for _, roadID := range touched {
		e.push(protocol.FeedMsg{Type: protocol.FeedTypeRoad, RoadID: roadID, RoadTimestamp: now, Msg: msgLockReload})
	}
	return protocol.StatusResponse{Status: protocol.OK(msgRiddlesUpdated)}
}

// DeleteRiddle removes one riddle and renumbers nothing: numbers stay sparse
// and ordering by number remains correct. Roads with attempts are frozen.
func (e *Engine) DeleteRiddle(ctx context.Context, req protocol.DeleteRiddleRequest) protocol.StatusResponse {
	if derr := e.validateLock(ctx, req.HuntID, req.LockID); derr != nil {
		return protocol.StatusResponse{Status: derr.Status()}
	}
	now := e.now()
	var failed *protocol.Status
	var roadID int64
	err := e.store.InTx(ctx, func(tx Store) error {
		r, rerr := tx.Riddle(ctx, req.RiddleID)
		if rerr != nil {
			s := e.storeStatus(rerr, "riddle not found")
			failed = &s
			return errRollback
		}
		road, rerr := tx.Road(ctx, r.RoadID)
		if rerr != nil || road.HuntID != req.HuntID {
			s := protocol.Error(protocol.ErrBadRequest, "the riddle does not belong to this hunt")
			failed = &s
			return errRollback
		}
		has, herr := tx.RoadHasAttempts(ctx, r.RoadID)
		if herr != nil {
			return herr
		}
		if has {
			s := protocol.Error(protocol.ErrRoadHasAttempts, msgNoNewRiddles)
			failed = &s
			return errRollback
		}
		if err := tx.DeleteRiddle(ctx, req.RiddleID); err != nil {
			return err
		}
		roadID = r.RoadID
		return tx.TouchRoad(ctx, r.RoadID, now)
	})
	if failed != nil {
		return protocol.StatusResponse{Status: *failed}
	}
	if err != nil {
		e.log.Printf("delete riddle hunt=%d riddle=%d: %v", req.HuntID, req.RiddleID, err)
		return protocol.StatusResponse{Status: protocol.Error(protocol.ErrPersistence, "could not delete the riddle")}
	}
	e.record(Event{Kind: EventRiddleDeleted, HuntID: req.HuntID, RoadID: roadID, ObjectID: req.RiddleID, UserID: req.UserID})
	e.push(protocol.FeedMsg{Type: protocol.FeedTypeRoad, RoadID: roadID, RoadTimestamp: now, Msg: msgLockReload})
	return protocol.StatusResponse{Status: protocol.OK(msgRiddleDeleted)}
}

// DeleteRoad removes a road with its riddles, answers and attempts.
func (e *Engine) DeleteRoad(ctx context.Context, req protocol.DeleteRoadRequest) protocol.StatusResponse {
	if derr := e.validateLock(ctx, req.HuntID, req.LockID); derr != nil {
		return protocol.StatusResponse{Status: derr.Status()}
	}
	var failed *protocol.Status
	err := e.store.InTx(ctx, func(tx Store) error {
		road, rerr := tx.Road(ctx, req.RoadID)
		if rerr != nil {
			s := e.storeStatus(rerr, "road not found")
			failed = &s
			return errRollback
		}
		if road.HuntID != req.HuntID {
			s := protocol.Error(protocol.ErrBadRequest, "the road does not belong to this hunt")
			failed = &s
			return errRollback
		}
		return tx.DeleteRoad(ctx, req.RoadID)
	})
	if failed != nil {
		return protocol.StatusResponse{Status: *failed}
	}
	if err != nil {
		e.log.Printf("delete road hunt=%d road=%d: %v", req.HuntID, req.RoadID, err)
		return protocol.StatusResponse{Status: protocol.Error(protocol.ErrPersistence, "could not delete the road")}
	}
	e.record(Event{Kind: EventRoadDeleted, HuntID: req.HuntID, RoadID: req.RoadID, UserID: req.UserID})
	e.push(protocol.FeedMsg{Type: protocol.FeedTypeRoad, RoadID: req.RoadID, RoadTimestamp: e.now(), Msg: msgRoadDeleted})
	return protocol.StatusResponse{Status: protocol.OK(msgRoadDeleted)}
}
