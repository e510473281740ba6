package hunt

import (
	"context"

	"trailhunt.dev/internal/protocol"
)

type gateOutcome struct {
	changes bool
	status  *protocol.Status
	attempt *AttemptRecord
}

// checkGates evaluates the answer submission (if any) against the newest
// pending location success, then polls the external-completion gate. Gate
// updates target an explicit attempt id so an answer raced by a teammate's
// newer success is rejected instead of unlocking the wrong riddle.
//
// The completion oracle is consulted after the ledger transaction commits:
// it may sit behind its own connection or a remote service, so it must not
// run while the transaction holds the store. The flag update that follows
// targets the attempt id read inside the transaction, which stays canonical
// for its riddle (later duplicates sort after it), so the late write cannot
// unlock anything else.
func (e *Engine) checkGates(ctx context.Context, h Hunt, road Road, groupID int64, req protocol.UserProgressRequest) (gateOutcome, error) {
	var out gateOutcome
	var gateAttemptID, gateActivity int64
	err := e.store.InTx(ctx, func(tx Store) error {
		last, err := tx.LastSuccessfulLocation(ctx, road.ID, h.GroupMode, groupID, req.UserID)
		if err != nil {
			return err
		}
		if last == nil {
			if req.SelectedAnswerID != 0 {
				s := protocol.Error(protocol.ErrBadRequest, msgNoQuestion)
				out.status = &s
			}
			return nil
		}
		riddle, err := tx.Riddle(ctx, last.RiddleID)
		if err != nil {
			return err
		}

		if req.SelectedAnswerID != 0 {
			switch {
			case last.QuestionSolved:
				s := protocol.Info(protocol.ErrAlreadyResolved, msgCorrectAnswer)
				out.status = &s
			case req.PendingAttemptID != last.ID:
				s := protocol.Error(protocol.ErrAlreadyResolved, msgAnswerRace)
				out.status = &s
			default:
				answer, aerr := tx.Answer(ctx, req.SelectedAnswerID)
				if aerr != nil || answer.RiddleID != riddle.ID {
					s := protocol.Error(protocol.ErrBadRequest, "the answer does not belong to the pending question")
					out.status = &s
					return nil
				}
				userName, _ := tx.UserName(ctx, req.UserID)
				a := &Attempt{
					RiddleID:         riddle.ID,
					UserID:           req.UserID,
					GroupID:          last.GroupID,
					Type:             AttemptQuestion,
					Success:          answer.Correct,
					QuestionSolved:   answer.Correct,
					CompletionSolved: last.CompletionSolved,
					GeometrySolved:   true,
					TimeCreated:      e.now(),
				}
				if err := tx.AppendAttempt(ctx, a); err != nil {
					return err
				}
				out.attempt = &AttemptRecord{Attempt: *a, RiddleNumber: riddle.Number, RiddleName: riddle.Name, UserName: userName}
				if answer.Correct {
					if err := tx.SetQuestionSolved(ctx, last.ID); err != nil {
						return err
					}
					last.QuestionSolved = true
					out.changes = true
					s := protocol.OK(msgCorrectAnswer)
					out.status = &s
				} else {
					s := protocol.Status{Code: protocol.StatusOK, Msg: msgWrongAnswer}
					out.status = &s
				}
			}
		}

		if !last.CompletionSolved && riddle.ActivityToEnd != 0 {
			gateAttemptID = last.ID
			gateActivity = riddle.ActivityToEnd
		}
		return nil
	})
	if err != nil || gateActivity == 0 {
		return out, err
	}

	done, cerr := e.completion.Completed(ctx, gateActivity, req.UserID)
	if cerr != nil {
		// The oracle is advisory; the gate stays closed and the next poll
		// retries.
		e.log.Printf("completion check activity=%d user=%d: %v", gateActivity, req.UserID, cerr)
		return out, nil
	}
	if !done {
		return out, nil
	}
	if err := e.store.SetCompletionSolved(ctx, gateAttemptID); err != nil {
		return out, err
	}
	out.changes = true
	if out.status == nil {
		s := protocol.OK(msgCompletionOK)
		out.status = &s
	}
	return out, nil
}
