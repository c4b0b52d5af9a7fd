package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	"github.com/lib/pq"
)

// postgresPlayerRepository implements PlayerRepository against Postgres.
type postgresPlayerRepository struct {
	db *sql.DB
}

// NewPlayerRepository creates a Postgres-backed PlayerRepository.
func NewPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, tournament_id, display_name, rating, uscf_id, fide_id, section,
	       status, intentional_bye_rounds, team_id, created_at, updated_at`

func (r *postgresPlayerRepository) ListForTournament(ctx context.Context, tournamentID string) ([]*domain.Player, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+playerColumns+`
		FROM players WHERE tournament_id = $1 ORDER BY display_name ASC
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []*domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postgresPlayerRepository) ListActiveInSection(ctx context.Context, tournamentID, section string) ([]*domain.Player, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+playerColumns+`
		FROM players
		WHERE tournament_id = $1 AND section = $2 AND status = $3
		ORDER BY display_name ASC
	`, tournamentID, section, domain.PlayerActive)
	if err != nil {
		return nil, fmt.Errorf("list active players: %w", err)
	}
	defer rows.Close()

	var out []*domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *postgresPlayerRepository) Get(ctx context.Context, id string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (r *postgresPlayerRepository) GetIntentionalByes(ctx context.Context, playerID string) (map[int]bool, error) {
	p, err := r.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return p.IntentionalByeRounds, nil
}

// scanPlayer scans a player row from anything with a Scan method, so the
// same code serves both QueryRow and Rows paths.
func scanPlayer(scanner interface {
	Scan(dest ...interface{}) error
}) (*domain.Player, error) {
	var p domain.Player
	var rating sql.NullInt64
	var uscf, fide sql.NullString
	var byeRoundsRaw pq.Int64Array
	var teamID sql.NullString

	err := scanner.Scan(
		&p.ID, &p.TournamentID, &p.DisplayName, &rating, &uscf, &fide,
		&p.Section, &p.Status, &byeRoundsRaw, &teamID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		v := int(rating.Int64)
		p.Rating = &v
	}
	if uscf.Valid {
		v := uscf.String
		p.ExternalIDs.USCF = &v
	}
	if fide.Valid {
		v := fide.String
		p.ExternalIDs.FIDE = &v
	}
	if teamID.Valid {
		v := teamID.String
		p.TeamID = &v
	}
	p.IntentionalByeRounds = make(map[int]bool, len(byeRoundsRaw))
	for _, rnd := range byeRoundsRaw {
		p.IntentionalByeRounds[int(rnd)] = true
	}

	return &p, nil
}
