package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/agentmem/agentmem/store"
)

const sessionFields = `session_id, user_id, created_ts, updated_ts, current_task, task_status, task_priority, current_focus, active_goals, attention_points`

func (d *DB) CreateMemorySession(ctx context.Context, create *store.MemorySession) (*store.MemorySession, error) {
	goals, points, err := marshalWorkingMemory(&create.WorkingMemory)
	if err != nil {
		return nil, err
	}

	fields := []string{
		"session_id", "user_id", "created_ts", "updated_ts",
		"current_task", "task_status", "task_priority",
		"current_focus", "active_goals", "attention_points",
	}
	args := []any{
		create.SessionID, create.UserID, create.CreatedAt.UnixMilli(), create.Timestamp.UnixMilli(),
		create.Context.CurrentTask, string(create.Context.TaskStatus), create.Context.TaskPriority,
		create.WorkingMemory.CurrentFocus, goals, points,
	}

	stmt := `INSERT INTO memory_session (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)`

	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to create memory session")
	}

	return create, nil
}

func (d *DB) ListMemorySessions(ctx context.Context, find *store.FindMemorySession) ([]*store.MemorySession, error) {
	if find == nil {
		return nil, errors.New("find parameter cannot be nil")
	}

	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SessionID; v != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT ` + sessionFields + `
		FROM memory_session
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_ts DESC, created_ts DESC, session_id ASC`
	query += limitClause(find.Limit, find.Offset)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list memory sessions")
	}
	defer rows.Close()

	list := make([]*store.MemorySession, 0)
	for rows.Next() {
		session, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, session)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate memory sessions")
	}

	if err := d.loadInteractions(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) SearchMemorySessions(ctx context.Context, find *store.FindMemorySession) ([]*store.SessionWithScore, error) {
	if find == nil || find.Query == nil {
		return nil, errors.New("search requires a query")
	}
	if find.UserID == nil {
		return nil, errors.New("search requires a user id")
	}

	limit := find.Limit
	if limit <= 0 {
		limit = 20
	}

	// The 'simple' configuration keeps tokenization language-neutral.
	// Session fields and each interaction row are ranked independently and
	// a session keeps its best hit.
	query := `
		SELECT s.` + strings.Join(strings.Split(sessionFields, ", "), ", s.") + `, agg.score
		FROM memory_session s
		JOIN (
			SELECT session_id, MAX(score) AS score FROM (
				SELECT s2.session_id,
					GREATEST(
						ts_rank(to_tsvector('simple', COALESCE(s2.current_task, '')), plainto_tsquery('simple', $1)),
						ts_rank(to_tsvector('simple', COALESCE(s2.current_focus, '')), plainto_tsquery('simple', $1)),
						ts_rank(to_tsvector('simple', COALESCE(s2.active_goals, '')), plainto_tsquery('simple', $1))
					) AS score
				FROM memory_session s2
				WHERE s2.user_id = $2
					AND (
						to_tsvector('simple', COALESCE(s2.current_task, '')) @@ plainto_tsquery('simple', $1)
						OR to_tsvector('simple', COALESCE(s2.current_focus, '')) @@ plainto_tsquery('simple', $1)
						OR to_tsvector('simple', COALESCE(s2.active_goals, '')) @@ plainto_tsquery('simple', $1)
					)
				UNION ALL
				SELECT i.session_id,
					GREATEST(
						ts_rank(to_tsvector('simple', COALESCE(i.thought_content, '')), plainto_tsquery('simple', $1)),
						ts_rank(to_tsvector('simple', COALESCE(i.observation, '')), plainto_tsquery('simple', $1))
					) AS score
				FROM interaction i
				JOIN memory_session s3 ON s3.session_id = i.session_id
				WHERE s3.user_id = $2
					AND (
						to_tsvector('simple', COALESCE(i.thought_content, '')) @@ plainto_tsquery('simple', $1)
						OR to_tsvector('simple', COALESCE(i.observation, '')) @@ plainto_tsquery('simple', $1)
					)
			) hits
			GROUP BY session_id
		) agg ON agg.session_id = s.session_id
		ORDER BY agg.score DESC, s.updated_ts DESC, s.session_id ASC`
	query += limitClause(limit, find.Offset)

	rows, err := d.db.QueryContext(ctx, query, *find.Query, *find.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search memory sessions")
	}
	defer rows.Close()

	results := make([]*store.SessionWithScore, 0)
	sessions := make([]*store.MemorySession, 0)
	for rows.Next() {
		var result store.SessionWithScore
		session, err := scanSessionWithScore(rows.Scan, &result.Score)
		if err != nil {
			return nil, err
		}
		result.Session = session
		results = append(results, &result)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate search results")
	}

	if err := d.loadInteractions(ctx, sessions); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *DB) AppendInteraction(ctx context.Context, request *store.AppendInteractionRequest) error {
	if request == nil {
		return errors.New("request parameter cannot be nil")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	ts := request.Interaction.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	// Stamp first: the UPDATE takes the row lock that serializes concurrent
	// appends to the same session. GREATEST keeps the timestamp monotonic.
	result, err := tx.ExecContext(ctx,
		`UPDATE memory_session SET updated_ts = GREATEST(updated_ts, $1)
			WHERE session_id = $2 AND user_id = $3`,
		ts.UnixMilli(), request.SessionID, request.UserID,
	)
	if err != nil {
		return errors.Wrap(err, "failed to stamp memory session")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return store.ErrSessionNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO interaction (session_id, thought_content, action_type, observation, created_ts)
			VALUES (`+placeholders(5)+`)`,
		request.SessionID, request.Interaction.ThoughtContent, request.Interaction.ActionType,
		request.Interaction.Observation, ts.UnixMilli(),
	); err != nil {
		return errors.Wrap(err, "failed to append interaction")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit append")
	}
	return nil
}

func (d *DB) UpdateMemorySession(ctx context.Context, update *store.UpdateMemorySession) (*store.MemorySession, error) {
	if update == nil {
		return nil, errors.New("update parameter cannot be nil")
	}

	set, args := []string{}, []any{}
	if v := update.CurrentTask; v != nil {
		set, args = append(set, "current_task = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.TaskStatus; v != nil {
		set, args = append(set, "task_status = "+placeholder(len(args)+1)), append(args, string(*v))
	}
	if v := update.TaskPriority; v != nil {
		set, args = append(set, "task_priority = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.CurrentFocus; v != nil {
		set, args = append(set, "current_focus = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ActiveGoals; v != nil {
		raw, err := json.Marshal(*v)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal active goals")
		}
		set, args = append(set, "active_goals = "+placeholder(len(args)+1)), append(args, string(raw))
	}
	if v := update.AttentionPoints; v != nil {
		raw, err := json.Marshal(*v)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal attention points")
		}
		set, args = append(set, "attention_points = "+placeholder(len(args)+1)), append(args, string(raw))
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	set, args = append(set, "updated_ts = GREATEST(updated_ts, "+placeholder(len(args)+1)+")"), append(args, update.UpdatedTs)
	args = append(args, update.SessionID, update.UserID)

	stmt := `UPDATE memory_session SET ` + strings.Join(set, ", ") + `
		WHERE session_id = ` + placeholder(len(args)-1) + ` AND user_id = ` + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update memory session")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return nil, store.ErrSessionNotFound
	}

	list, err := d.ListMemorySessions(ctx, &store.FindMemorySession{SessionID: &update.SessionID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, store.ErrSessionNotFound
	}
	return list[0], nil
}

func (d *DB) DeleteMemorySession(ctx context.Context, delete *store.DeleteMemorySession) error {
	if delete == nil {
		return errors.New("delete parameter cannot be nil")
	}

	where, args := []string{}, []any{}
	if v := delete.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := delete.SessionID; v != nil {
		where, args = append(where, "session_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(where) == 0 {
		return errors.New("no condition to delete memory session")
	}
	cond := strings.Join(where, " AND ")

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	// Deleting zero rows is fine: delete is idempotent.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM interaction WHERE session_id IN (SELECT session_id FROM memory_session WHERE `+cond+`)`,
		args...,
	); err != nil {
		return errors.Wrap(err, "failed to delete interactions")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM memory_session WHERE `+cond, args...,
	); err != nil {
		return errors.Wrap(err, "failed to delete memory session")
	}

	return errors.Wrap(tx.Commit(), "failed to commit delete")
}

// loadInteractions hydrates episodic memory for the given sessions with a
// single query, preserving append order per session.
func (d *DB) loadInteractions(ctx context.Context, sessions []*store.MemorySession) error {
	if len(sessions) == 0 {
		return nil
	}

	bySession := make(map[string]*store.MemorySession, len(sessions))
	args := make([]any, 0, len(sessions))
	for _, session := range sessions {
		bySession[session.SessionID] = session
		args = append(args, session.SessionID)
	}

	query := `SELECT session_id, thought_content, action_type, observation, created_ts
		FROM interaction
		WHERE session_id IN (` + placeholders(len(args)) + `)
		ORDER BY id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "failed to list interactions")
	}
	defer rows.Close()

	for rows.Next() {
		var sessionID string
		var interaction store.Interaction
		var createdTs int64
		if err := rows.Scan(
			&sessionID,
			&interaction.ThoughtContent,
			&interaction.ActionType,
			&interaction.Observation,
			&createdTs,
		); err != nil {
			return errors.Wrap(err, "failed to scan interaction")
		}
		interaction.Timestamp = time.UnixMilli(createdTs).UTC()
		if session, ok := bySession[sessionID]; ok {
			session.EpisodicMemory.Interactions = append(session.EpisodicMemory.Interactions, interaction)
		}
	}
	return errors.Wrap(rows.Err(), "failed to iterate interactions")
}

func marshalWorkingMemory(wm *store.WorkingMemory) (goals string, points string, err error) {
	if wm.ActiveGoals == nil {
		wm.ActiveGoals = []string{}
	}
	if wm.AttentionPoints == nil {
		wm.AttentionPoints = []string{}
	}
	rawGoals, err := json.Marshal(wm.ActiveGoals)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal active goals")
	}
	rawPoints, err := json.Marshal(wm.AttentionPoints)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to marshal attention points")
	}
	return string(rawGoals), string(rawPoints), nil
}

func scanSession(scan func(dest ...any) error) (*store.MemorySession, error) {
	return scanSessionWithScore(scan, nil)
}

func scanSessionWithScore(scan func(dest ...any) error, score *float64) (*store.MemorySession, error) {
	var session store.MemorySession
	var createdTs, updatedTs int64
	var status, goals, points string

	dest := []any{
		&session.SessionID,
		&session.UserID,
		&createdTs,
		&updatedTs,
		&session.Context.CurrentTask,
		&status,
		&session.Context.TaskPriority,
		&session.WorkingMemory.CurrentFocus,
		&goals,
		&points,
	}
	if score != nil {
		dest = append(dest, score)
	}
	if err := scan(dest...); err != nil {
		return nil, errors.Wrap(err, "failed to scan memory session")
	}

	session.CreatedAt = time.UnixMilli(createdTs).UTC()
	session.Timestamp = time.UnixMilli(updatedTs).UTC()
	session.Context.TaskStatus = store.TaskStatus(status)
	if err := json.Unmarshal([]byte(goals), &session.WorkingMemory.ActiveGoals); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal active goals")
	}
	if err := json.Unmarshal([]byte(points), &session.WorkingMemory.AttentionPoints); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal attention points")
	}
	session.EpisodicMemory.Interactions = []store.Interaction{}
	return &session, nil
}

func limitClause(limit, offset int) string {
	clause := ""
	if limit > 0 {
		if limit > 1000 {
			limit = 1000
		}
		clause += fmt.Sprintf(" LIMIT %d", limit)
		if offset > 0 {
			clause += fmt.Sprintf(" OFFSET %d", offset)
		}
	}
	return clause
}
