package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

// postgresPairingRepository implements PairingRepository against Postgres.
type postgresPairingRepository struct {
	db *sql.DB
}

// NewPairingRepository creates a Postgres-backed PairingRepository.
func NewPairingRepository(db *sql.DB) PairingRepository {
	return &postgresPairingRepository{db: db}
}

const pairingColumns = `id, tournament_id, round, section, board, white_id, black_id, bye_type, created_at`

func (r *postgresPairingRepository) Get(ctx context.Context, id string) (*domain.Pairing, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pairingColumns+` FROM pairings WHERE id = $1`, id)
	return scanPairing(row)
}

func (r *postgresPairingRepository) ListByTournamentRoundSection(ctx context.Context, tournamentID string, round int, section string) ([]*domain.Pairing, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pairingColumns+`
		FROM pairings
		WHERE tournament_id = $1 AND round = $2 AND section = $3
		ORDER BY board ASC
	`, tournamentID, round, section)
	if err != nil {
		return nil, fmt.Errorf("list pairings: %w", err)
	}
	defer rows.Close()
	return scanPairings(rows)
}

// ListByTournamentRound returns every pairing of a round regardless of
// section, so callers that must see everything the engine wrote (round
// completion, unscoped listing) never depend on the roster-derived section
// list, which quad sub-sections never appear in.
func (r *postgresPairingRepository) ListByTournamentRound(ctx context.Context, tournamentID string, round int) ([]*domain.Pairing, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pairingColumns+`
		FROM pairings
		WHERE tournament_id = $1 AND round = $2
		ORDER BY section ASC, board ASC
	`, tournamentID, round)
	if err != nil {
		return nil, fmt.Errorf("list pairings for round: %w", err)
	}
	defer rows.Close()
	return scanPairings(rows)
}

func (r *postgresPairingRepository) ListHistoricalInSection(ctx context.Context, tournamentID, section string, uptoRound int) ([]*domain.Pairing, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+pairingColumns+`
		FROM pairings
		WHERE tournament_id = $1 AND section = $2 AND round < $3
		ORDER BY round ASC, board ASC
	`, tournamentID, section, uptoRound)
	if err != nil {
		return nil, fmt.Errorf("list historical pairings: %w", err)
	}
	defer rows.Close()
	return scanPairings(rows)
}

// InsertBatch writes all given pairings in a single transaction.
func (r *postgresPairingRepository) InsertBatch(ctx context.Context, pairings []*domain.Pairing) error {
	if len(pairings) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pairings (id, tournament_id, round, section, board, white_id, black_id, bye_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	`)
	if err != nil {
		return fmt.Errorf("prepare insert pairing: %w", err)
	}
	defer stmt.Close()

	for _, p := range pairings {
		if _, err := stmt.ExecContext(ctx, p.ID, p.TournamentID, p.Round, p.Section, p.Board, p.WhiteID, p.BlackID, p.ByeType); err != nil {
			return fmt.Errorf("insert pairing %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteRound clears every pairing (and, transitively, its results) for a
// tournament/round across all sections. Used only by RegenerateRound, which
// the caller has already verified has no recorded results.
func (r *postgresPairingRepository) DeleteRound(ctx context.Context, tournamentID string, round int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete round: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM results WHERE pairing_id IN (
			SELECT id FROM pairings WHERE tournament_id = $1 AND round = $2
		)
	`, tournamentID, round); err != nil {
		return fmt.Errorf("delete round results: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM pairings WHERE tournament_id = $1 AND round = $2
	`, tournamentID, round); err != nil {
		return fmt.Errorf("delete round pairings: %w", err)
	}
	return tx.Commit()
}

func scanPairings(rows *sql.Rows) ([]*domain.Pairing, error) {
	var out []*domain.Pairing
	for rows.Next() {
		p, err := scanPairing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// scanPairing scans a pairing row from anything with a Scan method.
func scanPairing(scanner interface {
	Scan(dest ...interface{}) error
}) (*domain.Pairing, error) {
	var p domain.Pairing
	var white, black sql.NullString
	var byeType sql.NullString

	err := scanner.Scan(&p.ID, &p.TournamentID, &p.Round, &p.Section, &p.Board, &white, &black, &byeType, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if white.Valid {
		v := white.String
		p.WhiteID = &v
	}
	if black.Valid {
		v := black.String
		p.BlackID = &v
	}
	if byeType.Valid {
		p.ByeType = domain.ByeType(byeType.String)
	}
	return &p, nil
}
