// Package recorder is the only path by which a game or bye outcome becomes
// persisted Result rows. Every write is atomic and idempotent under exact
// resubmission.
package recorder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	"github.com/cliffdoyle/chess-arbiter/internal/repository"
)

// Recorder writes game and bye outcomes.
type Recorder interface {
	RecordGameResult(ctx context.Context, pairingID string, code domain.ResultCode) error
	RecordByeResult(ctx context.Context, pairingID string, byeType domain.ByeType) error
	// CorrectResult overwrites a pairing's already-recorded game result:
	// the pairing's existing Result rows are deleted and the new ones
	// written in a single atomic operation, rather than rejected as a
	// conflict the way an ordinary resubmission is.
	CorrectResult(ctx context.Context, pairingID string, code domain.ResultCode) error
}

// Notifier is told about a successful write so a caller (e.g. the websocket
// hub) can push it to interested clients; dispatched after the write
// commits and must not block or fail the caller.
type Notifier interface {
	ResultRecorded(tournamentID string, pairingID string)
}

type recorder struct {
	pairings repository.PairingRepository
	results  repository.ResultRepository
	notifier Notifier
}

// New creates a Recorder backed by the given repositories. notifier may be nil.
func New(pairings repository.PairingRepository, results repository.ResultRepository, notifier Notifier) Recorder {
	return &recorder{pairings: pairings, results: results, notifier: notifier}
}

func (r *recorder) notify(pairing *domain.Pairing) {
	if r.notifier != nil {
		r.notifier.ResultRecorded(pairing.TournamentID, pairing.ID)
	}
}

// RecordGameResult writes the two Result rows for a completed game. Rejects
// byes, and rejects a resubmission whose code diverges from what is already
// recorded; an identical resubmission is a no-op.
func (r *recorder) RecordGameResult(ctx context.Context, pairingID string, code domain.ResultCode) error {
	white, black, ok := domain.PointsForCode(code)
	if !ok {
		return &apperr.ValidationError{Detail: fmt.Sprintf("unknown game result code %q", code)}
	}

	pairing, err := r.pairings.Get(ctx, pairingID)
	if err != nil {
		return &apperr.NotFoundError{Entity: "pairing", ID: pairingID}
	}
	if !pairing.IsGame() {
		return &apperr.ValidationError{Detail: "cannot record a game result on a bye pairing"}
	}

	existing, err := r.results.ListForPairing(ctx, pairingID)
	if err != nil {
		return fmt.Errorf("list existing results: %w", err)
	}
	if len(existing) > 0 {
		if resultsMatchGame(existing, *pairing.WhiteID, *pairing.BlackID, code, white, black) {
			return nil
		}
		return &apperr.ConflictError{Detail: "pairing already has a recorded result that differs from this submission"}
	}

	rows := []*domain.Result{
		{ID: uuid.NewString(), PairingID: pairingID, PlayerID: *pairing.WhiteID, Points: white, Code: code},
		{ID: uuid.NewString(), PairingID: pairingID, PlayerID: *pairing.BlackID, Points: black, Code: code},
	}
	if err := r.results.RecordResult(ctx, pairingID, code, rows); err != nil {
		return fmt.Errorf("record game result: %w", err)
	}
	r.notify(pairing)
	return nil
}

// RecordByeResult writes the single Result row for a bye or unpaired
// pairing. Rejects a pairing that has a black player (it is a game), and
// rejects a resubmission with a different byeType than what is recorded.
func (r *recorder) RecordByeResult(ctx context.Context, pairingID string, byeType domain.ByeType) error {
	code, points, ok := byeResultCode(byeType)
	if !ok {
		return &apperr.ValidationError{Detail: fmt.Sprintf("unknown bye type %q", byeType)}
	}

	pairing, err := r.pairings.Get(ctx, pairingID)
	if err != nil {
		return &apperr.NotFoundError{Entity: "pairing", ID: pairingID}
	}
	if pairing.BlackID != nil {
		return &apperr.ValidationError{Detail: "cannot record a bye result on a pairing with two players"}
	}
	if pairing.WhiteID == nil {
		return &apperr.ValidationError{Detail: "pairing has no player to award a bye result to"}
	}

	existing, err := r.results.ListForPairing(ctx, pairingID)
	if err != nil {
		return fmt.Errorf("list existing results: %w", err)
	}
	if len(existing) > 0 {
		if existing[0].Code == code && existing[0].PlayerID == *pairing.WhiteID {
			return nil
		}
		return &apperr.ConflictError{Detail: "pairing already has a recorded bye result that differs from this submission"}
	}

	row := &domain.Result{ID: uuid.NewString(), PairingID: pairingID, PlayerID: *pairing.WhiteID, Points: points, Code: code}
	if err := r.results.RecordResult(ctx, pairingID, code, []*domain.Result{row}); err != nil {
		return fmt.Errorf("record bye result: %w", err)
	}
	r.notify(pairing)
	return nil
}

// CorrectResult overwrites a game result that was already recorded, for the
// case an arbiter needs to fix a misentered score after the fact. Unlike
// RecordGameResult, a divergent code here is the point, not a conflict.
func (r *recorder) CorrectResult(ctx context.Context, pairingID string, code domain.ResultCode) error {
	white, black, ok := domain.PointsForCode(code)
	if !ok {
		return &apperr.ValidationError{Detail: fmt.Sprintf("unknown game result code %q", code)}
	}

	pairing, err := r.pairings.Get(ctx, pairingID)
	if err != nil {
		return &apperr.NotFoundError{Entity: "pairing", ID: pairingID}
	}
	if !pairing.IsGame() {
		return &apperr.ValidationError{Detail: "cannot correct a game result on a bye pairing"}
	}

	rows := []*domain.Result{
		{ID: uuid.NewString(), PairingID: pairingID, PlayerID: *pairing.WhiteID, Points: white, Code: code},
		{ID: uuid.NewString(), PairingID: pairingID, PlayerID: *pairing.BlackID, Points: black, Code: code},
	}
	if err := r.results.ReplaceForPairing(ctx, pairingID, code, rows); err != nil {
		return fmt.Errorf("correct game result: %w", err)
	}
	r.notify(pairing)
	return nil
}

func byeResultCode(byeType domain.ByeType) (domain.ResultCode, float64, bool) {
	switch byeType {
	case domain.Bye:
		return domain.ResultByeBye, 0.5, true
	case domain.Unpaired:
		return domain.ResultByeUnpaired, 1.0, true
	default:
		return "", 0, false
	}
}

func resultsMatchGame(existing []*domain.Result, whiteID, blackID string, code domain.ResultCode, whitePts, blackPts float64) bool {
	if len(existing) != 2 {
		return false
	}
	var sawWhite, sawBlack bool
	for _, res := range existing {
		if res.Code != code {
			return false
		}
		switch res.PlayerID {
		case whiteID:
			sawWhite = res.Points == whitePts
		case blackID:
			sawBlack = res.Points == blackPts
		}
	}
	return sawWhite && sawBlack
}
