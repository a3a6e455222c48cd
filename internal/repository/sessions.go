package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

const sessionColumns = `id, user_id, game_id, judge_id, agent_id, description, history, metadata,
	completed, outcome, create_time, completed_time, shared, visible`

// CreateSession inserts a new session document.
func (s *SQLiteStore) CreateSession(ctx context.Context, gs *domain.GameSession) error {
	history, err := json.Marshal(historyOrEmpty(gs.History))
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	metadata, err := json.Marshal(gs.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		gs.ID, gs.UserID, gs.GameID, gs.JudgeID, gs.AgentID, gs.Description, string(history), string(metadata),
		boolInt(gs.Completed), nullString(string(gs.Outcome)), gs.CreateTime, nullTime(gs.CompletedTime),
		nullString(gs.Shared), boolInt(gs.Visible))
	return err
}

// GetSession retrieves a session. With f.UserID set only a visible session
// owned by that user matches; with f.Completed set the flag must match.
func (s *SQLiteStore) GetSession(ctx context.Context, id string, f SessionFilter) (*domain.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	args := []any{id}
	if f.UserID != "" {
		query += ` AND user_id = ? AND visible = 1`
		args = append(args, f.UserID)
	}
	if f.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, boolInt(*f.Completed))
	}

	gs, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return gs, err
}

// UpdateSession writes only the named top-level fields of gs.
//
// The terminal fields are written all together or not at all. Writes
// touching them only apply while the stored session is
// still in progress, history writes only apply when they lengthen the stored
// history, and shared is set at most once. A write that matches the id but
// none of those guards reports ErrNotModified.
func (s *SQLiteStore) UpdateSession(ctx context.Context, id string, fields []string, gs *domain.GameSession) error {
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update: %w", domain.ErrInvalidArgument)
	}

	var (
		sets   []string
		args   []any
		guards []string
		gargs  []any
	)
	terminal := 0
	for _, field := range dedupe(fields) {
		switch field {
		case domain.FieldHistory:
			history, err := json.Marshal(historyOrEmpty(gs.History))
			if err != nil {
				return fmt.Errorf("marshal history: %w", err)
			}
			sets = append(sets, "history = ?")
			args = append(args, string(history))
			guards = append(guards, "json_array_length(history) < ?")
			gargs = append(gargs, len(gs.History))
		case domain.FieldCompleted:
			sets = append(sets, "completed = ?")
			args = append(args, boolInt(gs.Completed))
			terminal++
		case domain.FieldOutcome:
			sets = append(sets, "outcome = ?")
			args = append(args, nullString(string(gs.Outcome)))
			terminal++
		case domain.FieldCompletedTime:
			sets = append(sets, "completed_time = ?")
			args = append(args, nullTime(gs.CompletedTime))
			terminal++
		case domain.FieldShared:
			sets = append(sets, "shared = ?")
			args = append(args, nullString(gs.Shared))
			guards = append(guards, "shared IS NULL")
		case domain.FieldVisible:
			sets = append(sets, "visible = ?")
			args = append(args, boolInt(gs.Visible))
		default:
			return fmt.Errorf("field %q cannot be updated: %w", field, domain.ErrInvalidArgument)
		}
	}
	if terminal > 0 {
		if terminal != len(domain.TerminalFields) {
			return fmt.Errorf("terminal fields must be written together: %w", domain.ErrInvalidArgument)
		}
		guards = append(guards, "completed = 0")
	}

	query := `UPDATE sessions SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	for _, g := range guards {
		query += ` AND ` + g
	}
	args = append(args, gargs...)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("session %s [%s]: %w", id, strings.Join(fields, ","), domain.ErrNotModified)
}

// DeleteVisibility hides the listed sessions owned by userID.
func (s *SQLiteStore) DeleteVisibility(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{userID}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET visible = 0 WHERE user_id = ? AND visible = 1 AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListSessions returns a user's visible sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, userID string, opts ListOptions) ([]domain.GameSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ? AND visible = 1`
	args := []any{userID}
	if opts.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, boolInt(*opts.Completed))
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY create_time DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.GameSession
	for rows.Next() {
		gs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *gs)
	}
	return sessions, rows.Err()
}

// GetSharedSession retrieves a completed session by its shared id.
func (s *SQLiteStore) GetSharedSession(ctx context.Context, sharedID string) (*domain.GameSession, error) {
	gs, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE shared = ? AND completed = 1`, sharedID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shared session %s: %w", sharedID, domain.ErrNotFound)
	}
	return gs, err
}

// PurgeSessions hard-deletes hidden sessions created before the cutoff whose
// history holds at most maxHistory messages.
func (s *SQLiteStore) PurgeSessions(ctx context.Context, before time.Time, maxHistory int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE visible = 0 AND create_time < ? AND json_array_length(history) <= ?`,
		before.UTC(), maxHistory)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row scanner) (*domain.GameSession, error) {
	var (
		gs                 domain.GameSession
		history, metadata  string
		completed, visible int
		outcome, shared    sql.NullString
		completedTime      sql.NullTime
	)
	err := row.Scan(&gs.ID, &gs.UserID, &gs.GameID, &gs.JudgeID, &gs.AgentID, &gs.Description, &history, &metadata,
		&completed, &outcome, &gs.CreateTime, &completedTime, &shared, &visible)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(history), &gs.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &gs.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	gs.Completed = completed == 1
	gs.Visible = visible == 1
	gs.Outcome = domain.Outcome(outcome.String)
	gs.Shared = shared.String
	if completedTime.Valid {
		t := completedTime.Time
		gs.CompletedTime = &t
	}
	return &gs, nil
}

func historyOrEmpty(h []domain.ChatMessage) []domain.ChatMessage {
	if h == nil {
		return []domain.ChatMessage{}
	}
	return h
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func dedupe(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}
