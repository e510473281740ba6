package store

import (
	"context"

	"trailhunt.dev/internal/hunt"
)

// Authoring-side writes that fall outside the engine's play surface. The
// admin CLI and tests build fixtures through these.

func (d *DB) CreateHunt(ctx context.Context, h *hunt.Hunt) error {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO hunts (name, group_mode, play_without_moving, time_created, time_modified)
		 VALUES (?, ?, ?, ?, ?)`,
		h.Name, h.GroupMode, h.PlayWithoutMoving, h.TimeCreated, h.TimeModified)
	if err != nil {
		return err
	}
	h.ID, err = res.LastInsertId()
	return err
}

func (d *DB) CreateRoad(ctx context.Context, r *hunt.Road) error {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO roads (hunt_id, name, group_id, grouping_id, validated, time_created, time_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.HuntID, r.Name, r.GroupID, r.GroupingID, r.Validated, r.TimeCreated, r.TimeModified)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (d *DB) BindRoad(ctx context.Context, roadID, groupID, groupingID int64) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE roads SET group_id = ?, grouping_id = ? WHERE id = ?`, groupID, groupingID, roadID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("road", roadID)
	}
	return nil
}

func (d *DB) SetRoadValidated(ctx context.Context, roadID int64, validated bool) error {
	res, err := d.db.ExecContext(ctx, `UPDATE roads SET validated = ? WHERE id = ?`, validated, roadID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("road", roadID)
	}
	return nil
}

func (d *DB) CreateRiddle(ctx context.Context, r *hunt.Riddle) error {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO riddles (road_id, number, name, description, question_text, activity_to_end, geometry, time_created, time_modified)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RoadID, r.Number, r.Name, r.Description, r.QuestionText, r.ActivityToEnd, r.Geometry, r.TimeCreated, r.TimeModified)
	if err != nil {
		return err
	}
	r.ID, err = res.LastInsertId()
	return err
}

func (d *DB) CreateAnswer(ctx context.Context, a *hunt.Answer) error {
	res, err := d.db.ExecContext(ctx,
		`INSERT INTO answers (riddle_id, text, correct) VALUES (?, ?, ?)`,
		a.RiddleID, a.Text, a.Correct)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (d *DB) CreateUser(ctx context.Context, name string) (int64, error) {
	res, err := d.db.ExecContext(ctx, `INSERT INTO users (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) CreateGroup(ctx context.Context, name string) (int64, error) {
	res, err := d.db.ExecContext(ctx, `INSERT INTO groups (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) AddGroupMember(ctx context.Context, groupID, userID int64) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)`, groupID, userID)
	return err
}

func (d *DB) AddGroupToGrouping(ctx context.Context, groupingID, groupID int64) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO grouping_groups (grouping_id, group_id) VALUES (?, ?)`, groupingID, groupID)
	return err
}

func (d *DB) MarkCompleted(ctx context.Context, activityID, userID, now int64) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO completions (activity_id, user_id, completed_at) VALUES (?, ?, ?)`,
		activityID, userID, now)
	return err
}

// Completions adapts the completions table to the engine's oracle interface.
type Completions struct {
	DB *DB
}

func (c Completions) Completed(ctx context.Context, activityRef, userID int64) (bool, error) {
	var n int
	err := c.DB.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM completions WHERE activity_id = ? AND user_id = ?`,
		activityRef, userID).Scan(&n)
	return n > 0, err
}
