package roundctl

import (
	"context"
	"errors"
	"testing"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	"github.com/cliffdoyle/chess-arbiter/internal/locking"
	"github.com/cliffdoyle/chess-arbiter/internal/registry"
)

type fakeTournaments struct {
	t *domain.Tournament
}

func (f *fakeTournaments) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	if f.t == nil || f.t.ID != id {
		return nil, errors.New("not found")
	}
	return f.t, nil
}
func (f *fakeTournaments) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	f.t.Status = status
	return nil
}
func (f *fakeTournaments) UpdateCurrentRound(ctx context.Context, id string, round int) error {
	f.t.CurrentRound = round
	return nil
}
func (f *fakeTournaments) ListSections(ctx context.Context, tournamentID string) ([]string, error) {
	return []string{"Open"}, nil
}

type fakePairings struct {
	byRound map[int][]*domain.Pairing
}

func newFakePairings() *fakePairings { return &fakePairings{byRound: make(map[int][]*domain.Pairing)} }

func (f *fakePairings) Get(ctx context.Context, id string) (*domain.Pairing, error) {
	for _, ps := range f.byRound {
		for _, p := range ps {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return nil, errors.New("not found")
}
func (f *fakePairings) ListByTournamentRoundSection(ctx context.Context, tournamentID string, round int, section string) ([]*domain.Pairing, error) {
	var out []*domain.Pairing
	for _, p := range f.byRound[round] {
		if p.Section == section {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakePairings) ListHistoricalInSection(ctx context.Context, tournamentID, section string, uptoRound int) ([]*domain.Pairing, error) {
	var out []*domain.Pairing
	for round, ps := range f.byRound {
		if round > uptoRound {
			continue
		}
		for _, p := range ps {
			if p.Section == section {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
func (f *fakePairings) ListByTournamentRound(ctx context.Context, tournamentID string, round int) ([]*domain.Pairing, error) {
	return f.byRound[round], nil
}
func (f *fakePairings) InsertBatch(ctx context.Context, pairings []*domain.Pairing) error {
	for _, p := range pairings {
		// Production assigns pairing IDs in the controller before InsertBatch;
		// this fake only guards against a regression that skips it.
		if p.ID == "" {
			return errors.New("InsertBatch received a pairing with no ID")
		}
		f.byRound[p.Round] = append(f.byRound[p.Round], p)
	}
	return nil
}
func (f *fakePairings) DeleteRound(ctx context.Context, tournamentID string, round int) error {
	delete(f.byRound, round)
	return nil
}

type fakeResults struct {
	byPairing map[string][]*domain.Result
}

func newFakeResults() *fakeResults { return &fakeResults{byPairing: make(map[string][]*domain.Result)} }

func (f *fakeResults) InsertForPairing(ctx context.Context, results []*domain.Result) error {
	for _, r := range results {
		f.byPairing[r.PairingID] = append(f.byPairing[r.PairingID], r)
	}
	return nil
}
func (f *fakeResults) RecordResult(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error {
	return f.InsertForPairing(ctx, results)
}
func (f *fakeResults) ReplaceForPairing(ctx context.Context, pairingID string, code domain.ResultCode, results []*domain.Result) error {
	delete(f.byPairing, pairingID)
	return f.InsertForPairing(ctx, results)
}
func (f *fakeResults) ListForPairing(ctx context.Context, pairingID string) ([]*domain.Result, error) {
	return f.byPairing[pairingID], nil
}
func (f *fakeResults) ListForPlayer(ctx context.Context, playerID string) ([]*domain.Result, error) {
	var out []*domain.Result
	for _, rs := range f.byPairing {
		for _, r := range rs {
			if r.PlayerID == playerID {
				out = append(out, r)
			}
		}
	}
	return out, nil
}
func (f *fakeResults) ListForTournament(ctx context.Context, tournamentID string) ([]*domain.Result, error) {
	var out []*domain.Result
	for _, rs := range f.byPairing {
		out = append(out, rs...)
	}
	return out, nil
}

type fakePartitioner struct{ sections []string }

func (f *fakePartitioner) Sections(ctx context.Context, tournamentID string) ([]string, error) {
	return f.sections, nil
}

type fakeRegistry struct {
	pairable []*domain.Player
	byes     []*domain.Player
}

func (f *fakeRegistry) ListActive(ctx context.Context, tournamentID, section string) ([]*domain.Player, error) {
	return f.pairable, nil
}
func (f *fakeRegistry) PairablePlayersForRound(ctx context.Context, tournamentID string, round int, section string) ([]*domain.Player, []*domain.Player, error) {
	return f.pairable, f.byes, nil
}
func (f *fakeRegistry) ColorHistory(ctx context.Context, playerID string) ([]registry.ColorRound, error) {
	return nil, nil
}
func (f *fakeRegistry) OpponentsOf(ctx context.Context, playerID string) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func ratedPlayer(id string, rating int) *domain.Player {
	r := rating
	return &domain.Player{ID: id, DisplayName: id, Rating: &r, Section: "Open", Status: domain.PlayerActive}
}

func newController(t *domain.Tournament, pairable []*domain.Player) (*Controller, *fakePairings, *fakeResults) {
	tournaments := &fakeTournaments{t: t}
	pairings := newFakePairings()
	results := newFakeResults()
	reg := &fakeRegistry{pairable: pairable}
	part := &fakePartitioner{sections: []string{"Open"}}
	locks := locking.NewRegistry()
	c := New(tournaments, pairings, results, reg, part, locks, nil)
	return c, pairings, results
}

// AdvanceRound must reject when a round has unrecorded
// pairings, reporting what's missing.
func TestAdvanceRoundGatedOnMissingResults(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSwiss, RoundCount: 2, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900), ratedPlayer("c", 1800), ratedPlayer("d", 1700)}
	c, pairings, results := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	round1 := pairings.byRound[1]
	if len(round1) != 2 {
		t.Fatalf("expected 2 pairings in round 1, got %d", len(round1))
	}

	// Record only one of the two pairings' results.
	results.InsertForPairing(context.Background(), []*domain.Result{
		{PairingID: round1[0].ID, PlayerID: *round1[0].WhiteID, Points: 1},
		{PairingID: round1[0].ID, PlayerID: *round1[0].BlackID, Points: 0},
	})

	err := c.AdvanceRound(context.Background(), "t1")
	var stateErr *apperr.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError for a round with unrecorded results, got %v", err)
	}
}

func TestAdvanceRoundSucceedsWhenAllResultsRecorded(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSwiss, RoundCount: 2, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900), ratedPlayer("c", 1800), ratedPlayer("d", 1700)}
	c, pairings, results := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	for _, p := range pairings.byRound[1] {
		results.InsertForPairing(context.Background(), []*domain.Result{
			{PairingID: p.ID, PlayerID: *p.WhiteID, Points: 1},
			{PairingID: p.ID, PlayerID: *p.BlackID, Points: 0},
		})
	}

	if err := c.AdvanceRound(context.Background(), "t1"); err != nil {
		t.Fatalf("advance round: %v", err)
	}
	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round 2: %v", err)
	}
	if tournament.CurrentRound != 2 {
		t.Fatalf("expected current round 2, got %d", tournament.CurrentRound)
	}
}

// Continue is AdvanceRound plus StartRound for the next round: one call takes
// a fully recorded round straight into the next round's pairings.
func TestContinuePairsNextRound(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSwiss, RoundCount: 2, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900)}
	c, pairings, results := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	p := pairings.byRound[1][0]
	results.InsertForPairing(context.Background(), []*domain.Result{
		{PairingID: p.ID, PlayerID: *p.WhiteID, Points: 1},
		{PairingID: p.ID, PlayerID: *p.BlackID, Points: 0},
	})

	if err := c.Continue(context.Background(), "t1"); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if tournament.CurrentRound != 2 {
		t.Fatalf("expected continue to pair round 2, current round is %d", tournament.CurrentRound)
	}
	if len(pairings.byRound[2]) == 0 {
		t.Fatalf("expected round 2 pairings after continue")
	}
}

func TestContinueCompletesTournamentAfterFinalRound(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSwiss, RoundCount: 1, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900)}
	c, pairings, results := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	p := pairings.byRound[1][0]
	results.InsertForPairing(context.Background(), []*domain.Result{
		{PairingID: p.ID, PlayerID: *p.WhiteID, Points: 0.5},
		{PairingID: p.ID, PlayerID: *p.BlackID, Points: 0.5},
	})

	if err := c.Continue(context.Background(), "t1"); err != nil {
		t.Fatalf("continue: %v", err)
	}
	if tournament.Status != domain.StatusCompleted {
		t.Fatalf("expected tournament completed after final round, status is %s", tournament.Status)
	}
	if len(pairings.byRound[2]) != 0 {
		t.Fatalf("no round 2 should exist in a 1-round tournament")
	}
}

// Single elimination: a round-1 loser must not reappear in round 2; only the
// winners are fed back into the bracket.
func TestKnockoutRoundTwoPairsOnlySurvivors(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSingleElimination, RoundCount: 2, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900), ratedPlayer("c", 1800), ratedPlayer("d", 1700)}
	c, pairings, results := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	round1 := pairings.byRound[1]
	if len(round1) != 2 {
		t.Fatalf("expected 2 round-1 pairings, got %d", len(round1))
	}

	// The higher seed wins board 1, the lower seed wins board 2, so the
	// survivor set is one player from each half of the bracket.
	winners := map[string]bool{}
	for i, p := range round1 {
		winnerID, loserID := *p.WhiteID, *p.BlackID
		if i == 1 {
			winnerID, loserID = *p.BlackID, *p.WhiteID
		}
		winners[winnerID] = true
		results.InsertForPairing(context.Background(), []*domain.Result{
			{PairingID: p.ID, PlayerID: winnerID, Points: 1},
			{PairingID: p.ID, PlayerID: loserID, Points: 0},
		})
	}

	if err := c.Continue(context.Background(), "t1"); err != nil {
		t.Fatalf("continue: %v", err)
	}
	round2 := pairings.byRound[2]
	if len(round2) != 1 {
		t.Fatalf("expected 1 round-2 pairing among the 2 survivors, got %d", len(round2))
	}
	p := round2[0]
	if !p.IsGame() || !winners[*p.WhiteID] || !winners[*p.BlackID] {
		t.Fatalf("round 2 paired a non-survivor: white=%v black=%v winners=%v", p.WhiteID, p.BlackID, winners)
	}
}

func TestPairSectionRejectsAlreadyPairedSection(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSwiss, RoundCount: 2, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900)}
	c, _, _ := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	err := c.PairSection(context.Background(), "t1", "Open")
	var stateErr *apperr.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError when re-pairing an already-paired section, got %v", err)
	}
}

// RegenerateRound must be rejected once any result for
// that round has been recorded.
func TestRegenerateRoundRejectedAfterResultRecorded(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSwiss, RoundCount: 2, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900)}
	c, pairings, results := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	p := pairings.byRound[1][0]
	results.InsertForPairing(context.Background(), []*domain.Result{
		{PairingID: p.ID, PlayerID: *p.WhiteID, Points: 1},
		{PairingID: p.ID, PlayerID: *p.BlackID, Points: 0},
	})

	err := c.RegenerateRound(context.Background(), "t1", 1)
	var stateErr *apperr.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected StateError for a regenerate with recorded results, got %v", err)
	}
}

func TestRegenerateRoundAllowedBeforeAnyResult(t *testing.T) {
	tournament := &domain.Tournament{ID: "t1", Format: domain.FormatSwiss, RoundCount: 2, Status: domain.StatusDraft}
	players := []*domain.Player{ratedPlayer("a", 2000), ratedPlayer("b", 1900)}
	c, pairings, _ := newController(tournament, players)

	if err := c.StartRound(context.Background(), "t1"); err != nil {
		t.Fatalf("start round: %v", err)
	}
	if err := c.RegenerateRound(context.Background(), "t1", 1); err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if len(pairings.byRound[1]) != 1 {
		t.Fatalf("expected round 1 to be repopulated with 1 pairing, got %d", len(pairings.byRound[1]))
	}
}
