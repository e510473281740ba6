package hunt

import (
	"context"

	"github.com/google/uuid"

	"trailhunt.dev/internal/protocol"
)

// RenewLock acquires or renews the hunt's edit lock. An empty LockID asks for
// a fresh lock; a known LockID extends it. There is no release call: an
// abandoned lock simply runs out and the next acquire supersedes it.
func (e *Engine) RenewLock(ctx context.Context, req protocol.RenewLockRequest) protocol.RenewLockResponse {
	var resp protocol.RenewLockResponse
	if _, err := e.store.HuntByID(ctx, req.HuntID); err != nil {
		resp.Status = e.storeStatus(err, "hunt not found")
		return resp
	}
	now := e.now()
	acquired := false
	err := e.store.InTx(ctx, func(tx Store) error {
		cur, err := tx.EditLockByHunt(ctx, req.HuntID)
		if err != nil {
			return err
		}
		if req.LockID != "" {
			if cur == nil || cur.LockID != req.LockID {
				resp.Status = protocol.Error(protocol.ErrLockInvalid, msgLockReload)
				return nil
			}
			if cur.Expired(now) {
				resp.Status = protocol.Error(protocol.ErrLockExpired, msgLockReload)
				return nil
			}
			cur.ExpiresAt = now + e.cfg.LockTTL.Milliseconds()
			if err := tx.PutEditLock(ctx, cur); err != nil {
				return err
			}
			resp.LockID = cur.LockID
			resp.Status = protocol.OK(msgLockRenewed)
			return nil
		}
		if cur != nil && !cur.Expired(now) && cur.UserID != req.UserID {
			resp.Status = protocol.Error(protocol.ErrLockHeld, msgLockHeld)
			return nil
		}
		// Fresh acquire. A stale or own lock is superseded in place; the old
		// LockID stops validating the moment this transaction commits.
		l := &EditLock{
			HuntID:    req.HuntID,
			UserID:    req.UserID,
			LockID:    uuid.NewString(),
			IssuedAt:  now,
			ExpiresAt: now + e.cfg.LockTTL.Milliseconds(),
		}
		if err := tx.PutEditLock(ctx, l); err != nil {
			return err
		}
		resp.LockID = l.LockID
		resp.Status = protocol.OK(msgLockCreated)
		acquired = true
		return nil
	})
	if err != nil {
		e.log.Printf("renew lock hunt=%d user=%d: %v", req.HuntID, req.UserID, err)
		resp.Status = protocol.Error(protocol.ErrPersistence, "could not persist the lock")
		return resp
	}
	if acquired {
		e.record(Event{Kind: EventLockAcquired, HuntID: req.HuntID, UserID: req.UserID})
	}
	return resp
}

// validateLock checks an authoring request's lock token. Returns nil when the
// token names the current unexpired lock.
func (e *Engine) validateLock(ctx context.Context, huntID int64, lockID string) *Error {
	if lockID == "" {
		return &Error{Code: protocol.ErrLockInvalid, Msg: msgLockReload}
	}
	cur, err := e.store.EditLockByHunt(ctx, huntID)
	if err != nil {
		return &Error{Code: protocol.ErrPersistence, Msg: "could not load the lock"}
	}
	if cur == nil || cur.LockID != lockID {
		return &Error{Code: protocol.ErrLockInvalid, Msg: msgLockReload}
	}
	if cur.Expired(e.now()) {
		return &Error{Code: protocol.ErrLockExpired, Msg: msgLockReload}
	}
	return nil
}
