package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trailhunt.dev/internal/hunt"
)

// execer is satisfied by both *sql.DB and *sql.Tx, so the same query set
// serves direct reads and in-transaction views.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	x execer
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, hunt.ErrNotFound)
}

func (q queries) HuntByID(ctx context.Context, id int64) (hunt.Hunt, error) {
	var h hunt.Hunt
	err := q.x.QueryRowContext(ctx,
		`SELECT id, name, group_mode, play_without_moving, time_created, time_modified
		 FROM hunts WHERE id = ?`, id).
		Scan(&h.ID, &h.Name, &h.GroupMode, &h.PlayWithoutMoving, &h.TimeCreated, &h.TimeModified)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Hunt{}, notFound("hunt", id)
	}
	return h, err
}

func (q queries) Road(ctx context.Context, id int64) (hunt.Road, error) {
	var r hunt.Road
	err := q.x.QueryRowContext(ctx,
		`SELECT id, hunt_id, name, group_id, grouping_id, validated, time_created, time_modified
		 FROM roads WHERE id = ?`, id).
		Scan(&r.ID, &r.HuntID, &r.Name, &r.GroupID, &r.GroupingID, &r.Validated, &r.TimeCreated, &r.TimeModified)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Road{}, notFound("road", id)
	}
	return r, err
}

func (q queries) RoadsByHunt(ctx context.Context, huntID int64) ([]hunt.Road, error) {
	rows, err := q.x.QueryContext(ctx,
		`SELECT id, hunt_id, name, group_id, grouping_id, validated, time_created, time_modified
		 FROM roads WHERE hunt_id = ? ORDER BY id`, huntID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []hunt.Road
	for rows.Next() {
		var r hunt.Road
		if err := rows.Scan(&r.ID, &r.HuntID, &r.Name, &r.GroupID, &r.GroupingID, &r.Validated, &r.TimeCreated, &r.TimeModified); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q queries) TouchRoad(ctx context.Context, roadID, now int64) error {
	res, err := q.x.ExecContext(ctx, `UPDATE roads SET time_modified = ? WHERE id = ?`, now, roadID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("road", roadID)
	}
	return nil
}

func (q queries) DeleteRoad(ctx context.Context, roadID int64) error {
	res, err := q.x.ExecContext(ctx, `DELETE FROM roads WHERE id = ?`, roadID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("road", roadID)
	}
	return nil
}

const riddleCols = `id, road_id, number, name, description, question_text, activity_to_end, geometry, time_created, time_modified`

func scanRiddle(row interface{ Scan(...any) error }) (hunt.Riddle, error) {
	var r hunt.Riddle
	err := row.Scan(&r.ID, &r.RoadID, &r.Number, &r.Name, &r.Description, &r.QuestionText, &r.ActivityToEnd, &r.Geometry, &r.TimeCreated, &r.TimeModified)
	return r, err
}

func (q queries) Riddle(ctx context.Context, id int64) (hunt.Riddle, error) {
	r, err := scanRiddle(q.x.QueryRowContext(ctx, `SELECT `+riddleCols+` FROM riddles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Riddle{}, notFound("riddle", id)
	}
	return r, err
}

func (q queries) RiddlesByRoad(ctx context.Context, roadID int64) ([]hunt.Riddle, error) {
	rows, err := q.x.QueryContext(ctx,
		`SELECT `+riddleCols+` FROM riddles WHERE road_id = ? ORDER BY number`, roadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []hunt.Riddle
	for rows.Next() {
		r, err := scanRiddle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q queries) RiddlesByHunt(ctx context.Context, huntID int64) ([]hunt.Riddle, error) {
	rows, err := q.x.QueryContext(ctx,
		`SELECT r.id, r.road_id, r.number, r.name, r.description, r.question_text, r.activity_to_end, r.geometry, r.time_created, r.time_modified
		 FROM riddles r JOIN roads rd ON rd.id = r.road_id
		 WHERE rd.hunt_id = ? ORDER BY r.road_id, r.number`, huntID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []hunt.Riddle
	for rows.Next() {
		r, err := scanRiddle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q queries) UpdateRiddleGeometry(ctx context.Context, riddleID int64, geom []byte, now int64) error {
	res, err := q.x.ExecContext(ctx,
		`UPDATE riddles SET geometry = ?, time_modified = ? WHERE id = ?`, geom, now, riddleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("riddle", riddleID)
	}
	return nil
}

func (q queries) DeleteRiddle(ctx context.Context, riddleID int64) error {
	res, err := q.x.ExecContext(ctx, `DELETE FROM riddles WHERE id = ?`, riddleID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("riddle", riddleID)
	}
	return nil
}

func (q queries) Answer(ctx context.Context, id int64) (hunt.Answer, error) {
	var a hunt.Answer
	err := q.x.QueryRowContext(ctx,
		`SELECT id, riddle_id, text, correct FROM answers WHERE id = ?`, id).
		Scan(&a.ID, &a.RiddleID, &a.Text, &a.Correct)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Answer{}, notFound("answer", id)
	}
	return a, err
}

func (q queries) AnswersByRiddle(ctx context.Context, riddleID int64) ([]hunt.Answer, error) {
	rows, err := q.x.QueryContext(ctx,
		`SELECT id, riddle_id, text, correct FROM answers WHERE riddle_id = ? ORDER BY id`, riddleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []hunt.Answer
	for rows.Next() {
		var a hunt.Answer
		if err := rows.Scan(&a.ID, &a.RiddleID, &a.Text, &a.Correct); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// scopeClause selects the attempt sharing scope: the whole group in group
// mode, the individual's own rows otherwise.
func scopeClause(groupMode bool, groupID, userID int64) (string, any) {
	if groupMode {
		return "a.group_id = ?", groupID
	}
	return "a.group_id = 0 AND a.user_id = ?", userID
}

func (q queries) AppendAttempt(ctx context.Context, a *hunt.Attempt) error {
	res, err := q.x.ExecContext(ctx,
		`INSERT INTO attempts
		 (riddle_id, user_id, group_id, type, success, penalty, question_solved, completion_solved, geometry_solved, location, time_created)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RiddleID, a.UserID, a.GroupID, string(a.Type), a.Success, a.Penalty,
		a.QuestionSolved, a.CompletionSolved, a.GeometrySolved, a.Location, a.TimeCreated)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

const attemptRecordCols = `a.id, a.riddle_id, a.user_id, a.group_id, a.type, a.success, a.penalty,
	a.question_solved, a.completion_solved, a.geometry_solved, a.location, a.time_created,
	r.number, r.name, COALESCE(u.name, '')`

func scanAttemptRecord(row interface{ Scan(...any) error }) (hunt.AttemptRecord, error) {
	var a hunt.AttemptRecord
	var typ string
	err := row.Scan(&a.ID, &a.RiddleID, &a.UserID, &a.GroupID, &typ, &a.Success, &a.Penalty,
		&a.QuestionSolved, &a.CompletionSolved, &a.GeometrySolved, &a.Location, &a.TimeCreated,
		&a.RiddleNumber, &a.RiddleName, &a.UserName)
	a.Type = hunt.AttemptType(typ)
	return a, err
}

func (q queries) AttemptsSince(ctx context.Context, roadID, since int64, groupMode bool, groupID, userID int64) ([]hunt.AttemptRecord, error) {
	scope, arg := scopeClause(groupMode, groupID, userID)
	rows, err := q.x.QueryContext(ctx,
		`SELECT `+attemptRecordCols+`
		 FROM attempts a
		 JOIN riddles r ON r.id = a.riddle_id
		 LEFT JOIN users u ON u.id = a.user_id
		 WHERE r.road_id = ? AND a.time_created > ? AND `+scope+`
		 ORDER BY a.time_created, a.id`, roadID, since, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []hunt.AttemptRecord
	for rows.Next() {
		a, err := scanAttemptRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LastSuccessfulLocation returns the canonical success of the highest
// overcome riddle: the earliest success row of the highest riddle number.
// Duplicate successes recorded under race keep the canonical row (and its
// gate flags) stable.
func (q queries) LastSuccessfulLocation(ctx context.Context, roadID int64, groupMode bool, groupID, userID int64) (*hunt.AttemptRecord, error) {
	scope, arg := scopeClause(groupMode, groupID, userID)
	a, err := scanAttemptRecord(q.x.QueryRowContext(ctx,
		`SELECT `+attemptRecordCols+`
		 FROM attempts a
		 JOIN riddles r ON r.id = a.riddle_id
		 LEFT JOIN users u ON u.id = a.user_id
		 WHERE r.road_id = ? AND a.type = 'location' AND a.success = 1 AND `+scope+`
		 ORDER BY r.number DESC, a.id ASC LIMIT 1`, roadID, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (q queries) RoadHasAttempts(ctx context.Context, roadID int64) (bool, error) {
	var n int
	err := q.x.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM attempts a
		 JOIN riddles r ON r.id = a.riddle_id WHERE r.road_id = ?`, roadID).Scan(&n)
	return n > 0, err
}

func (q queries) SetQuestionSolved(ctx context.Context, attemptID int64) error {
	res, err := q.x.ExecContext(ctx, `UPDATE attempts SET question_solved = 1 WHERE id = ?`, attemptID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("attempt", attemptID)
	}
	return nil
}

func (q queries) SetCompletionSolved(ctx context.Context, attemptID int64) error {
	res, err := q.x.ExecContext(ctx, `UPDATE attempts SET completion_solved = 1 WHERE id = ?`, attemptID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("attempt", attemptID)
	}
	return nil
}

func (q queries) EditLockByHunt(ctx context.Context, huntID int64) (*hunt.EditLock, error) {
	var l hunt.EditLock
	err := q.x.QueryRowContext(ctx,
		`SELECT hunt_id, user_id, lock_id, issued_at, expires_at FROM edit_locks WHERE hunt_id = ?`, huntID).
		Scan(&l.HuntID, &l.UserID, &l.LockID, &l.IssuedAt, &l.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (q queries) PutEditLock(ctx context.Context, l *hunt.EditLock) error {
	_, err := q.x.ExecContext(ctx,
		`INSERT INTO edit_locks (hunt_id, user_id, lock_id, issued_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(hunt_id) DO UPDATE SET
		 user_id = excluded.user_id, lock_id = excluded.lock_id,
		 issued_at = excluded.issued_at, expires_at = excluded.expires_at`,
		l.HuntID, l.UserID, l.LockID, l.IssuedAt, l.ExpiresAt)
	return err
}

func (q queries) GroupsOf(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := q.x.QueryContext(ctx,
		`SELECT group_id FROM group_members WHERE user_id = ? ORDER BY group_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (q queries) GroupsInGrouping(ctx context.Context, groupingID int64) ([]int64, error) {
	rows, err := q.x.QueryContext(ctx,
		`SELECT group_id FROM grouping_groups WHERE grouping_id = ? ORDER BY group_id`, groupingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (q queries) UserName(ctx context.Context, userID int64) (string, error) {
	var name string
	err := q.x.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("user", userID)
	}
	return name, err
}
