package store

import "fmt"

// Dump returns generic rows for the admin CLI's inspection queries. Not part
// of the engine surface.
func (d *DB) Dump(table string, huntID int64, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 50
	}
	var query string
	args := []any{}
	switch table {
	case "hunts":
		query = `SELECT id, name, group_mode, play_without_moving, time_modified FROM hunts`
		if huntID != 0 {
			query += ` WHERE id = ?`
			args = append(args, huntID)
		}
	case "roads":
		query = `SELECT id, hunt_id, name, group_id, grouping_id, validated, time_modified FROM roads`
		if huntID != 0 {
			query += ` WHERE hunt_id = ?`
			args = append(args, huntID)
		}
	case "riddles":
		query = `SELECT r.id, r.road_id, r.number, r.name, r.question_text, r.activity_to_end FROM riddles r`
		if huntID != 0 {
			query += ` JOIN roads rd ON rd.id = r.road_id WHERE rd.hunt_id = ?`
			args = append(args, huntID)
		}
	case "attempts":
		query = `SELECT a.id, a.riddle_id, a.user_id, a.group_id, a.type, a.success,
			a.question_solved, a.completion_solved, a.time_created FROM attempts a`
		if huntID != 0 {
			query += ` JOIN riddles r ON r.id = a.riddle_id JOIN roads rd ON rd.id = r.road_id WHERE rd.hunt_id = ?`
			args = append(args, huntID)
		}
		query += ` ORDER BY a.id DESC`
	case "locks":
		query = `SELECT hunt_id, user_id, lock_id, issued_at, expires_at FROM edit_locks`
		if huntID != 0 {
			query += ` WHERE hunt_id = ?`
			args = append(args, huntID)
		}
	default:
		return nil, fmt.Errorf("unknown table %q", table)
	}
	query += fmt.Sprintf(` LIMIT %d`, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
