package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

// postgresResultRepository implements ResultRepository against Postgres.
type postgresResultRepository struct {
	db *sql.DB
}

// NewResultRepository creates a Postgres-backed ResultRepository.
func NewResultRepository(db *sql.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

// ReplaceForPairing atomically clears a pairing's existing Result rows and
// writes new ones in their place.
func (r *postgresResultRepository) ReplaceForPairing(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace result: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results WHERE pairing_id = $1`, pairingID); err != nil {
		return fmt.Errorf("delete existing results: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (id, pairing_id, player_id, points, code, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`)
	if err != nil {
		return fmt.Errorf("prepare insert result: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.ExecContext(ctx, res.ID, res.PairingID, res.PlayerID, res.Points, res.Code); err != nil {
			return fmt.Errorf("insert result %s: %w", res.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE pairings SET result = $1 WHERE id = $2`, code, pairingID); err != nil {
		return fmt.Errorf("update pairing result: %w", err)
	}

	return tx.Commit()
}

// RecordResult writes one or two result rows and marks the owning pairing's
// result code in a single transaction.
func (r *postgresResultRepository) RecordResult(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record result: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (id, pairing_id, player_id, points, code, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`)
	if err != nil {
		return fmt.Errorf("prepare insert result: %w", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.ExecContext(ctx, res.ID, res.PairingID, res.PlayerID, res.Points, res.Code); err != nil {
			return fmt.Errorf("insert result %s: %w", res.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE pairings SET result = $1 WHERE id = $2`, code, pairingID); err != nil {
		return fmt.Errorf("update pairing result: %w", err)
	}

	return tx.Commit()
}

func (r *postgresResultRepository) ListForPairing(ctx context.Context, pairingID string) ([]*domain.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pairing_id, player_id, points, code, created_at
		FROM results WHERE pairing_id = $1
	`, pairingID)
	if err != nil {
		return nil, fmt.Errorf("list results for pairing: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (r *postgresResultRepository) ListForPlayer(ctx context.Context, playerID string) ([]*domain.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pairing_id, player_id, points, code, created_at
		FROM results WHERE player_id = $1
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list results for player: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func (r *postgresResultRepository) ListForTournament(ctx context.Context, tournamentID string) ([]*domain.Result, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT res.id, res.pairing_id, res.player_id, res.points, res.code, res.created_at
		FROM results res
		JOIN pairings p ON p.id = res.pairing_id
		WHERE p.tournament_id = $1
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list results for tournament: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]*domain.Result, error) {
	var out []*domain.Result
	for rows.Next() {
		var res domain.Result
		if err := rows.Scan(&res.ID, &res.PairingID, &res.PlayerID, &res.Points, &res.Code, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
