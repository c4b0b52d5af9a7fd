package recorder

import (
	"context"
	"errors"
	"testing"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

type fakePairings struct {
	pairings map[string]*domain.Pairing
}

func newFakePairings(ps ...*domain.Pairing) *fakePairings {
	m := make(map[string]*domain.Pairing)
	for _, p := range ps {
		m[p.ID] = p
	}
	return &fakePairings{pairings: m}
}

func (f *fakePairings) Get(ctx context.Context, id string) (*domain.Pairing, error) {
	p, ok := f.pairings[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return p, nil
}
func (f *fakePairings) ListByTournamentRoundSection(ctx context.Context, tournamentID string, round int, section string) ([]*domain.Pairing, error) {
	return nil, nil
}
func (f *fakePairings) ListHistoricalInSection(ctx context.Context, tournamentID, section string, uptoRound int) ([]*domain.Pairing, error) {
	return nil, nil
}
func (f *fakePairings) ListByTournamentRound(ctx context.Context, tournamentID string, round int) ([]*domain.Pairing, error) {
	var out []*domain.Pairing
	for _, p := range f.pairings {
		if p.Round == round {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakePairings) InsertBatch(ctx context.Context, pairings []*domain.Pairing) error { return nil }
func (f *fakePairings) DeleteRound(ctx context.Context, tournamentID string, round int) error {
	return nil
}

type fakeResults struct {
	byPairing    map[string][]*domain.Result
	pairingCodes map[string]domain.ResultCode
}

func newFakeResults() *fakeResults {
	return &fakeResults{byPairing: make(map[string][]*domain.Result), pairingCodes: make(map[string]domain.ResultCode)}
}

func (f *fakeResults) insert(results []*domain.Result) {
	for _, r := range results {
		f.byPairing[r.PairingID] = append(f.byPairing[r.PairingID], r)
	}
}

func (f *fakeResults) RecordResult(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error {
	f.insert(results)
	f.pairingCodes[pairingID] = code
	return nil
}

func (f *fakeResults) ReplaceForPairing(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error {
	delete(f.byPairing, pairingID)
	f.insert(results)
	f.pairingCodes[pairingID] = code
	return nil
}
func (f *fakeResults) ListForPairing(ctx context.Context, pairingID string) ([]*domain.Result, error) {
	return f.byPairing[pairingID], nil
}
func (f *fakeResults) ListForPlayer(ctx context.Context, playerID string) ([]*domain.Result, error) {
	return nil, nil
}
func (f *fakeResults) ListForTournament(ctx context.Context, tournamentID string) ([]*domain.Result, error) {
	return nil, nil
}

func ptr(s string) *string { return &s }

func TestRecordGameResultWritesBothRows(t *testing.T) {
	pairing := &domain.Pairing{ID: "p1", WhiteID: ptr("w"), BlackID: ptr("b")}
	pairings := newFakePairings(pairing)
	results := newFakeResults()
	rec := New(pairings, results, nil)

	if err := rec.RecordGameResult(context.Background(), "p1", domain.ResultWhiteWins); err != nil {
		t.Fatalf("record: %v", err)
	}
	rows := results.byPairing["p1"]
	if len(rows) != 2 {
		t.Fatalf("expected 2 result rows, got %d", len(rows))
	}
	for _, r := range rows {
		switch r.PlayerID {
		case "w":
			if r.Points != 1 {
				t.Fatalf("white points = %v, want 1", r.Points)
			}
		case "b":
			if r.Points != 0 {
				t.Fatalf("black points = %v, want 0", r.Points)
			}
		default:
			t.Fatalf("unexpected player id %s", r.PlayerID)
		}
	}
	if results.pairingCodes["p1"] != domain.ResultWhiteWins {
		t.Fatalf("pairing result field not updated: %v", results.pairingCodes["p1"])
	}
}

func TestRecordGameResultIdenticalResubmissionIsNoOp(t *testing.T) {
	pairing := &domain.Pairing{ID: "p1", WhiteID: ptr("w"), BlackID: ptr("b")}
	pairings := newFakePairings(pairing)
	results := newFakeResults()
	rec := New(pairings, results, nil)

	if err := rec.RecordGameResult(context.Background(), "p1", domain.ResultDraw); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := rec.RecordGameResult(context.Background(), "p1", domain.ResultDraw); err != nil {
		t.Fatalf("identical resubmission should be a no-op, got error: %v", err)
	}
	if len(results.byPairing["p1"]) != 2 {
		t.Fatalf("resubmission should not duplicate rows, got %d", len(results.byPairing["p1"]))
	}
}

func TestRecordGameResultDivergentResubmissionConflicts(t *testing.T) {
	pairing := &domain.Pairing{ID: "p1", WhiteID: ptr("w"), BlackID: ptr("b")}
	pairings := newFakePairings(pairing)
	results := newFakeResults()
	rec := New(pairings, results, nil)

	if err := rec.RecordGameResult(context.Background(), "p1", domain.ResultWhiteWins); err != nil {
		t.Fatalf("first record: %v", err)
	}
	err := rec.RecordGameResult(context.Background(), "p1", domain.ResultBlackWins)
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for divergent resubmission, got %v", err)
	}
}

func TestRecordGameResultRejectsByePairing(t *testing.T) {
	pairing := &domain.Pairing{ID: "p1", WhiteID: ptr("w"), BlackID: nil, ByeType: domain.Bye}
	pairings := newFakePairings(pairing)
	results := newFakeResults()
	rec := New(pairings, results, nil)

	err := rec.RecordGameResult(context.Background(), "p1", domain.ResultWhiteWins)
	var validation *apperr.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError for a game result on a bye pairing, got %v", err)
	}
}

func TestRecordByeResultAwardsHalfPoint(t *testing.T) {
	pairing := &domain.Pairing{ID: "p1", WhiteID: ptr("w"), BlackID: nil}
	pairings := newFakePairings(pairing)
	results := newFakeResults()
	rec := New(pairings, results, nil)

	if err := rec.RecordByeResult(context.Background(), "p1", domain.Bye); err != nil {
		t.Fatalf("record: %v", err)
	}
	rows := results.byPairing["p1"]
	if len(rows) != 1 || rows[0].Points != 0.5 {
		t.Fatalf("expected a single 0.5pt row, got %+v", rows)
	}
}

func TestRecordByeResultUnpairedAwardsFullPoint(t *testing.T) {
	pairing := &domain.Pairing{ID: "p1", WhiteID: ptr("w"), BlackID: nil}
	pairings := newFakePairings(pairing)
	results := newFakeResults()
	rec := New(pairings, results, nil)

	if err := rec.RecordByeResult(context.Background(), "p1", domain.Unpaired); err != nil {
		t.Fatalf("record: %v", err)
	}
	rows := results.byPairing["p1"]
	if len(rows) != 1 || rows[0].Points != 1.0 {
		t.Fatalf("expected a single 1.0pt row, got %+v", rows)
	}

	// Resubmitting the identical byeType twice is a no-op, not a second write.
	if err := rec.RecordByeResult(context.Background(), "p1", domain.Unpaired); err != nil {
		t.Fatalf("identical resubmission should be a no-op, got error: %v", err)
	}
	if len(results.byPairing["p1"]) != 1 {
		t.Fatalf("resubmission should not duplicate rows, got %d", len(results.byPairing["p1"]))
	}

	// A divergent resubmission must fail.
	err := rec.RecordByeResult(context.Background(), "p1", domain.Bye)
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for divergent bye resubmission, got %v", err)
	}
}

func TestCorrectResultOverwritesPriorRows(t *testing.T) {
	pairing := &domain.Pairing{ID: "p1", WhiteID: ptr("w"), BlackID: ptr("b")}
	pairings := newFakePairings(pairing)
	results := newFakeResults()
	rec := New(pairings, results, nil)

	if err := rec.RecordGameResult(context.Background(), "p1", domain.ResultWhiteWins); err != nil {
		t.Fatalf("first record: %v", err)
	}
	if err := rec.CorrectResult(context.Background(), "p1", domain.ResultBlackWins); err != nil {
		t.Fatalf("correct: %v", err)
	}

	rows := results.byPairing["p1"]
	if len(rows) != 2 {
		t.Fatalf("expected 2 result rows after correction, got %d", len(rows))
	}
	for _, r := range rows {
		switch r.PlayerID {
		case "w":
			if r.Points != 0 {
				t.Fatalf("white points after correction = %v, want 0", r.Points)
			}
		case "b":
			if r.Points != 1 {
				t.Fatalf("black points after correction = %v, want 1", r.Points)
			}
		}
	}
	if results.pairingCodes["p1"] != domain.ResultBlackWins {
		t.Fatalf("pairing result field not updated by correction: %v", results.pairingCodes["p1"])
	}
}
