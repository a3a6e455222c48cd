package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shizhouxing/project-enigma/internal/domain"
)

// UpsertJudge inserts or replaces a judge.
func (s *SQLiteStore) UpsertJudge(ctx context.Context, j *domain.Judge) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO judges (id, name, description, active, sampler, validator) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description,
		 active = excluded.active, sampler = excluded.sampler, validator = excluded.validator`,
		j.ID, j.Name, j.Description, boolInt(j.Active), j.Sampler.Name, j.Validator.Name)
	return err
}

// GetJudge retrieves a judge.
func (s *SQLiteStore) GetJudge(ctx context.Context, id string) (*domain.Judge, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, active, sampler, validator FROM judges WHERE id = ?`, id)
	j, err := scanJudge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("judge %s: %w", id, domain.ErrNotFound)
	}
	return j, err
}

// ListJudges returns all judges.
func (s *SQLiteStore) ListJudges(ctx context.Context) ([]domain.Judge, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, active, sampler, validator FROM judges ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var judges []domain.Judge
	for rows.Next() {
		j, err := scanJudge(rows)
		if err != nil {
			return nil, err
		}
		judges = append(judges, *j)
	}
	return judges, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJudge(row scanner) (*domain.Judge, error) {
	var j domain.Judge
	var active int
	if err := row.Scan(&j.ID, &j.Name, &j.Description, &active, &j.Sampler.Name, &j.Validator.Name); err != nil {
		return nil, err
	}
	j.Active = active == 1
	return &j, nil
}

// UpsertGame inserts or replaces a game.
func (s *SQLiteStore) UpsertGame(ctx context.Context, g *domain.Game) error {
	metadata, err := json.Marshal(g.Metadata)
	if err != nil {
		return fmt.Errorf("marshal game metadata: %w", err)
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO games (id, name, description, session_description, judge_id, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description,
		 session_description = excluded.session_description, judge_id = excluded.judge_id, metadata = excluded.metadata`,
		g.ID, g.Name, g.Description, g.SessionDescription, g.JudgeID, string(metadata), g.CreatedAt)
	return err
}

// GetGame retrieves a game.
func (s *SQLiteStore) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, session_description, judge_id, metadata, created_at FROM games WHERE id = ?`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", id, domain.ErrNotFound)
	}
	return g, err
}

// ListGames returns all games, oldest first.
func (s *SQLiteStore) ListGames(ctx context.Context) ([]domain.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, session_description, judge_id, metadata, created_at FROM games ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

func scanGame(row scanner) (*domain.Game, error) {
	var g domain.Game
	var metadata string
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.SessionDescription, &g.JudgeID, &metadata, &g.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadata), &g.Metadata); err != nil {
		return nil, fmt.Errorf("decode game metadata: %w", err)
	}
	return &g, nil
}

// UpsertModel inserts or replaces a model.
func (s *SQLiteStore) UpsertModel(ctx context.Context, m *domain.Model) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO models (id, name, provider, model_name, available, tools) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, provider = excluded.provider,
		 model_name = excluded.model_name, available = excluded.available, tools = excluded.tools`,
		m.ID, m.Name, m.Provider, m.ModelName, boolInt(m.Available), boolInt(m.Tools))
	return err
}

// GetModel retrieves a model.
func (s *SQLiteStore) GetModel(ctx context.Context, id string) (*domain.Model, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, provider, model_name, available, tools FROM models WHERE id = ?`, id)
	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("model %s: %w", id, domain.ErrNotFound)
	}
	return m, err
}

// ListModels returns models matching f.
func (s *SQLiteStore) ListModels(ctx context.Context, f ModelFilter) ([]domain.Model, error) {
	query := `SELECT id, name, provider, model_name, available, tools FROM models WHERE 1 = 1`
	if f.AvailableOnly {
		query += ` AND available = 1`
	}
	if f.ToolsRequired {
		query += ` AND tools = 1`
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []domain.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *m)
	}
	return models, rows.Err()
}

func scanModel(row scanner) (*domain.Model, error) {
	var m domain.Model
	var available, tools int
	if err := row.Scan(&m.ID, &m.Name, &m.Provider, &m.ModelName, &available, &tools); err != nil {
		return nil, err
	}
	m.Available = available == 1
	m.Tools = tools == 1
	return &m, nil
}
