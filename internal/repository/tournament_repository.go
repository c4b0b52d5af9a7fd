package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	_ "github.com/lib/pq"
)

// postgresTournamentRepository implements TournamentRepository against Postgres.
type postgresTournamentRepository struct {
	db *sql.DB
}

// NewTournamentRepository creates a Postgres-backed TournamentRepository.
func NewTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, format, round_count, current_round, sections,
		       time_control, status, settings, created_at, updated_at
		FROM tournaments WHERE id = $1
	`, id)
	return scanTournament(row)
}

// scanTournament scans a tournament row from anything with a Scan method,
// so the same code serves both QueryRow and Rows paths.
func scanTournament(scanner interface {
	Scan(dest ...interface{}) error
}) (*domain.Tournament, error) {
	var t domain.Tournament
	var sectionsRaw []byte
	var settingsRaw []byte

	err := scanner.Scan(
		&t.ID, &t.Name, &t.Format, &t.RoundCount, &t.CurrentRound,
		&sectionsRaw, &t.TimeControl, &t.Status, &settingsRaw,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scan tournament: %w", err)
	}
	if len(sectionsRaw) > 0 {
		if err := json.Unmarshal(sectionsRaw, &t.Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
	}
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &t.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	return &t, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tournaments SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	return err
}

func (r *postgresTournamentRepository) UpdateCurrentRound(ctx context.Context, id string, round int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tournaments SET current_round = $1, updated_at = now() WHERE id = $2`, round, id)
	return err
}

func (r *postgresTournamentRepository) ListSections(ctx context.Context, tournamentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT section FROM players WHERE tournament_id = $1 ORDER BY section ASC
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}
