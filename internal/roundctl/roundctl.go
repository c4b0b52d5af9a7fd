// Package roundctl is the state machine gating when a tournament may be
// paired, played, and advanced. StartRound pairs the next round and records
// it as the current round; AdvanceRound validates that the current round is
// complete and, after the final round, marks the tournament completed. They
// are kept as two operations (Continue composes them) so the "continue to
// next round" logic never tangles the two concerns together again.
package roundctl

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cliffdoyle/chess-arbiter/internal/apperr"
	"github.com/cliffdoyle/chess-arbiter/internal/domain"
	"github.com/cliffdoyle/chess-arbiter/internal/engine"
	"github.com/cliffdoyle/chess-arbiter/internal/locking"
	"github.com/cliffdoyle/chess-arbiter/internal/partition"
	"github.com/cliffdoyle/chess-arbiter/internal/ratingclient"
	"github.com/cliffdoyle/chess-arbiter/internal/registry"
	"github.com/cliffdoyle/chess-arbiter/internal/repository"
)

// State is the logical state of a tournament's round progression, derived
// on demand rather than stored as its own column.
type State string

// Round Controller states.
const (
	StateNotStarted        State = "not_started"
	StateRoundInProgress    State = "round_in_progress"
	StateRoundComplete      State = "round_complete"
	StateTournamentComplete State = "tournament_complete"
)

const defaultPairingTimeout = 30 * time.Second

// Notifier is notified of round events after the critical section commits,
// dispatched to a best-effort background queue. Implementations must not
// block or fail the caller.
type Notifier interface {
	PairingsGenerated(tournamentID string, round int)
	ResultRecorded(tournamentID string, pairingID string)
	RoundAdvanced(tournamentID string, round int)
}

// MissingPairing names one pairing AdvanceRound found without a recorded
// result, reported per-section so the caller knows exactly what's blocking.
type MissingPairing struct {
	Section string `json:"section"`
	Board   int    `json:"board"`
	ID      string `json:"id"`
}

// Controller orchestrates the round state machine for a tournament.
type Controller struct {
	tournaments repository.TournamentRepository
	pairings    repository.PairingRepository
	results     repository.ResultRepository
	reg         registry.Registry
	partitioner partition.Partitioner
	locks       *locking.Registry
	notifier    Notifier
	ratingClient *ratingclient.Client
}

// New creates a Controller. notifier may be nil.
func New(tournaments repository.TournamentRepository, pairings repository.PairingRepository, results repository.ResultRepository, reg registry.Registry, partitioner partition.Partitioner, locks *locking.Registry, notifier Notifier) *Controller {
	return &Controller{tournaments: tournaments, pairings: pairings, results: results, reg: reg, partitioner: partitioner, locks: locks, notifier: notifier}
}

// SetRatingClient wires an optional federation rating lookup that refreshes
// a player's rating from the external service just before each pairing pass,
// whenever that player carries a federation id. Safe to leave unset; pairing
// then uses whatever rating is already on the roster.
func (c *Controller) SetRatingClient(rc *ratingclient.Client) {
	c.ratingClient = rc
}

// CurrentState derives a tournament's Round Controller state.
func (c *Controller) CurrentState(ctx context.Context, tournamentID string) (State, error) {
	t, err := c.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return "", &apperr.NotFoundError{Entity: "tournament", ID: tournamentID}
	}
	switch {
	case t.Status == domain.StatusCompleted:
		return StateTournamentComplete, nil
	case t.CurrentRound == 0:
		return StateNotStarted, nil
	default:
		complete, _, err := c.roundComplete(ctx, t, t.CurrentRound)
		if err != nil {
			return "", err
		}
		if complete {
			return StateRoundComplete, nil
		}
		return StateRoundInProgress, nil
	}
}

// StartRound runs the Pairing Engine across every section of the next round
// and persists the result. Valid only from NotStarted or RoundComplete.
func (c *Controller) StartRound(ctx context.Context, tournamentID string) error {
	return c.withLock(tournamentID, func() error {
		t, err := c.tournaments.Get(ctx, tournamentID)
		if err != nil {
			return &apperr.NotFoundError{Entity: "tournament", ID: tournamentID}
		}

		var round int
		switch {
		case t.CurrentRound == 0:
			round = 1
		default:
			complete, _, err := c.roundComplete(ctx, t, t.CurrentRound)
			if err != nil {
				return err
			}
			if !complete {
				return &apperr.StateError{Detail: fmt.Sprintf("round %d is still in progress", t.CurrentRound)}
			}
			round = t.CurrentRound + 1
		}
		if round > t.RoundCount {
			return &apperr.StateError{Detail: "tournament has no further rounds to start"}
		}

		if err := c.pairAllSections(ctx, t, round); err != nil {
			return err
		}

		if err := c.tournaments.UpdateCurrentRound(ctx, tournamentID, round); err != nil {
			return fmt.Errorf("update current round: %w", err)
		}
		if t.Status == domain.StatusDraft {
			if err := c.tournaments.UpdateStatus(ctx, tournamentID, domain.StatusActive); err != nil {
				return fmt.Errorf("activate tournament: %w", err)
			}
		}

		if c.notifier != nil {
			c.notifier.PairingsGenerated(tournamentID, round)
		}
		return nil
	})
}

// RegenerateRound clears a round's pairings and re-invokes pairing, only
// permitted when no result has been recorded for that round yet.
func (c *Controller) RegenerateRound(ctx context.Context, tournamentID string, round int) error {
	return c.withLock(tournamentID, func() error {
		t, err := c.tournaments.Get(ctx, tournamentID)
		if err != nil {
			return &apperr.NotFoundError{Entity: "tournament", ID: tournamentID}
		}

		existing, err := c.pairings.ListByTournamentRound(ctx, tournamentID, round)
		if err != nil {
			return fmt.Errorf("list existing pairings: %w", err)
		}
		for _, p := range existing {
			results, err := c.results.ListForPairing(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("list results for pairing: %w", err)
			}
			if len(results) > 0 {
				return &apperr.StateError{Detail: fmt.Sprintf("round %d already has recorded results; cannot regenerate", round)}
			}
		}

		if err := c.pairings.DeleteRound(ctx, tournamentID, round); err != nil {
			return fmt.Errorf("delete round: %w", err)
		}
		if err := c.pairAllSections(ctx, t, round); err != nil {
			return err
		}
		if c.notifier != nil {
			c.notifier.PairingsGenerated(tournamentID, round)
		}
		return nil
	})
}

// PairSection runs the Pairing Engine for a single section of the
// tournament's current round (or round 1 if the tournament has not started),
// without touching the tournament's CurrentRound/Status bookkeeping; that
// belongs to StartRound, which paired every section together. A section that
// already has pairings for the round is rejected with a StateError.
func (c *Controller) PairSection(ctx context.Context, tournamentID, section string) error {
	return c.withLock(tournamentID, func() error {
		t, err := c.tournaments.Get(ctx, tournamentID)
		if err != nil {
			return &apperr.NotFoundError{Entity: "tournament", ID: tournamentID}
		}
		round := t.CurrentRound
		if round == 0 {
			round = 1
		}

		existing, err := c.pairings.ListByTournamentRoundSection(ctx, tournamentID, round, section)
		if err != nil {
			return fmt.Errorf("list existing pairings: %w", err)
		}
		if len(existing) > 0 {
			return &apperr.StateError{Detail: fmt.Sprintf("section %q already has pairings for round %d; regenerate the round to re-pair", section, round)}
		}

		out, err := c.pairSectionWithTimeout(ctx, t, round, section)
		if err != nil {
			return err
		}
		logPairingWarnings(section, round, out)
		assignPairingIDs(out.Pairings)
		if err := c.pairings.InsertBatch(ctx, out.Pairings); err != nil {
			return fmt.Errorf("persist pairings for section %s: %w", section, err)
		}
		if c.notifier != nil {
			c.notifier.PairingsGenerated(tournamentID, round)
		}
		return nil
	})
}

// AdvanceRound validates that every pairing of the current round has a
// recorded result. After the final round it marks the tournament completed;
// after an earlier round it changes no stored state, and the next round
// begins only when StartRound pairs it.
func (c *Controller) AdvanceRound(ctx context.Context, tournamentID string) error {
	return c.withLock(tournamentID, func() error {
		t, err := c.tournaments.Get(ctx, tournamentID)
		if err != nil {
			return &apperr.NotFoundError{Entity: "tournament", ID: tournamentID}
		}
		if t.CurrentRound == 0 {
			return &apperr.StateError{Detail: "tournament has not started its first round"}
		}

		complete, missing, err := c.roundComplete(ctx, t, t.CurrentRound)
		if err != nil {
			return err
		}
		if !complete {
			return &apperr.StateError{Detail: fmt.Sprintf("round %d has %d unrecorded pairing(s): %v", t.CurrentRound, len(missing), missing)}
		}

		if t.CurrentRound >= t.RoundCount {
			if err := c.tournaments.UpdateStatus(ctx, tournamentID, domain.StatusCompleted); err != nil {
				return fmt.Errorf("complete tournament: %w", err)
			}
			if c.notifier != nil {
				c.notifier.RoundAdvanced(tournamentID, t.CurrentRound)
			}
			return nil
		}

		if c.notifier != nil {
			c.notifier.RoundAdvanced(tournamentID, t.CurrentRound)
		}
		return nil
	})
}

// Continue performs the full round transition the /continue endpoint asks
// for: AdvanceRound validates and, on the final round, completes the
// tournament; when rounds remain, StartRound pairs the next one. The two
// legs each take the per-tournament lock on their own (the lock is not
// reentrant), so a racing caller between them is caught by StartRound's own
// completeness validation rather than by lock exclusion.
func (c *Controller) Continue(ctx context.Context, tournamentID string) error {
	if err := c.AdvanceRound(ctx, tournamentID); err != nil {
		return err
	}
	t, err := c.tournaments.Get(ctx, tournamentID)
	if err != nil {
		return &apperr.NotFoundError{Entity: "tournament", ID: tournamentID}
	}
	if t.Status == domain.StatusCompleted {
		return nil
	}
	return c.StartRound(ctx, tournamentID)
}

func (c *Controller) withLock(tournamentID string, fn func() error) error {
	return c.locks.WithLock(tournamentID, fn)
}

// roundComplete reports whether every pairing of (tournament, round) has a
// recorded result, across every section the engine actually wrote (not the
// Partitioner's roster-derived sections, which quad sub-sections never
// appear in), listing what is missing otherwise.
func (c *Controller) roundComplete(ctx context.Context, t *domain.Tournament, round int) (bool, []MissingPairing, error) {
	pairings, err := c.pairings.ListByTournamentRound(ctx, t.ID, round)
	if err != nil {
		return false, nil, fmt.Errorf("list pairings: %w", err)
	}

	var missing []MissingPairing
	for _, p := range pairings {
		results, err := c.results.ListForPairing(ctx, p.ID)
		if err != nil {
			return false, nil, fmt.Errorf("list results: %w", err)
		}
		if len(results) == 0 {
			missing = append(missing, MissingPairing{Section: p.Section, Board: p.Board, ID: p.ID})
		}
	}
	return len(missing) == 0, missing, nil
}

// pairAllSections fans the Pairing Engine out across every section
// concurrently, since sections are fully independent, then persists each
// section's output.
func (c *Controller) pairAllSections(ctx context.Context, t *domain.Tournament, round int) error {
	sections, err := c.partitioner.Sections(ctx, t.ID)
	if err != nil {
		return err
	}

	outputs := make([]*engine.Output, len(sections))
	g, gctx := errgroup.WithContext(ctx)
	for i, section := range sections {
		i, section := i, section
		g.Go(func() error {
			out, err := c.pairSectionWithTimeout(gctx, t, round, section)
			if err != nil {
				return err
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, section := range sections {
		logPairingWarnings(section, round, outputs[i])
		assignPairingIDs(outputs[i].Pairings)
		if err := c.pairings.InsertBatch(ctx, outputs[i].Pairings); err != nil {
			return fmt.Errorf("persist pairings for section %s: %w", section, err)
		}
	}
	return nil
}

// logPairingWarnings records a pairing pass that needed relaxations, dumping
// the full board list in its snapshot form so an arbiter can reconstruct
// exactly what the engine produced and why.
func logPairingWarnings(section string, round int, out *engine.Output) {
	if len(out.Warnings) == 0 {
		return
	}
	snap, err := engine.DumpOutput(out)
	if err != nil {
		log.Printf("roundctl: section %q round %d paired with %d warning(s); snapshot dump failed: %v", section, round, len(out.Warnings), err)
		return
	}
	log.Printf("roundctl: section %q round %d paired with %d warning(s): %s", section, round, len(out.Warnings), snap)
}

// assignPairingIDs gives every pairing the engine produced a primary key
// before it reaches the repository; the engine itself stays storage-agnostic
// and never sets one.
func assignPairingIDs(pairings []*domain.Pairing) {
	for _, p := range pairings {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
	}
}

func (c *Controller) pairSectionWithTimeout(ctx context.Context, t *domain.Tournament, round int, section string) (*engine.Output, error) {
	budget := time.Duration(t.Settings.PairingTimeoutSeconds) * time.Second
	if budget <= 0 {
		budget = defaultPairingTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		out *engine.Output
		err error
	}
	ch := make(chan result, 1)
	go func() {
		out, err := c.buildAndGenerate(sctx, t, round, section)
		ch <- result{out, err}
	}()

	select {
	case <-sctx.Done():
		return nil, &apperr.TimeoutError{Operation: fmt.Sprintf("pairing section %q round %d", section, round), Budget: budget.String()}
	case r := <-ch:
		return r.out, r.err
	}
}

func (c *Controller) buildAndGenerate(ctx context.Context, t *domain.Tournament, round int, section string) (*engine.Output, error) {
	pairable, registeredByes, err := c.reg.PairablePlayersForRound(ctx, t.ID, round, section)
	if err != nil {
		return nil, err
	}

	historical, err := c.pairingsHistoricalAutomaticByes(ctx, t.ID, section, round)
	if err != nil {
		return nil, err
	}

	inputs := make([]engine.PlayerInput, 0, len(pairable))
	for _, p := range pairable {
		results, err := c.results.ListForPlayer(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list results for player: %w", err)
		}

		// Single elimination: a player who has lost a game is out of the
		// bracket; only survivors reach the next round's seeding.
		if t.Format == domain.FormatSingleElimination && hasKnockoutLoss(results) {
			continue
		}

		c.refreshRating(ctx, p)

		history, err := c.reg.ColorHistory(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		opponents, err := c.reg.OpponentsOf(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		var score float64
		for _, r := range results {
			score += r.Points
		}

		colorEntries := make([]engine.ColorEntry, 0, len(history))
		for _, h := range history {
			colorEntries = append(colorEntries, engine.ColorEntry{Round: h.Round, White: h.White})
		}

		inputs = append(inputs, engine.PlayerInput{
			Player:                 p,
			CumulativeScore:        score,
			ColorHistory:           colorEntries,
			Opponents:              opponents,
			HadAutomaticByeAlready: historical[p.ID],
		})
	}

	in := engine.Input{
		TournamentID:     t.ID,
		Section:          section,
		Round:            round,
		Format:           t.Format,
		Pairable:         inputs,
		RegisteredByes:   registeredByes,
		Teams:            deriveTeams(inputs),
		TranspositionCap: t.Settings.SwissTranspositionCap,
		TotalRounds:      t.RoundCount,
	}
	return engine.Generate(in)
}

// refreshRating looks up a player's current federation rating before this
// round's pairing pass, when a rating client is configured and the player
// carries a federation id. Lookup failures are non-critical: they are logged
// and swallowed, the player keeps their stored rating, and pairing proceeds.
func (c *Controller) refreshRating(ctx context.Context, p *domain.Player) {
	if c.ratingClient == nil {
		return
	}
	var fed string
	switch {
	case p.ExternalIDs.FIDE != nil:
		fed = *p.ExternalIDs.FIDE
	case p.ExternalIDs.USCF != nil:
		fed = *p.ExternalIDs.USCF
	default:
		return
	}
	rating, err := c.ratingClient.Lookup(ctx, fed)
	if err != nil {
		log.Printf("roundctl: rating refresh for player %s failed, using stored rating: %v", p.ID, err)
		return
	}
	p.Rating = &rating
}

// hasKnockoutLoss reports whether any of the player's recorded results is a
// lost game. Byes award 0.5 or 1.0, so a zero-point row can only be a loss.
func hasKnockoutLoss(results []*domain.Result) bool {
	for _, r := range results {
		if r.Points < 0.5 {
			return true
		}
	}
	return false
}

// pairingsHistoricalAutomaticByes reports, per player id, whether they have
// already received an automatic (half-point) bye earlier in the tournament,
// so the engine can avoid handing out a second one while alternatives exist.
func (c *Controller) pairingsHistoricalAutomaticByes(ctx context.Context, tournamentID, section string, uptoRound int) (map[string]bool, error) {
	pairings, err := c.pairings.ListHistoricalInSection(ctx, tournamentID, section, uptoRound)
	if err != nil {
		return nil, fmt.Errorf("list historical pairings: %w", err)
	}
	out := make(map[string]bool)
	for _, p := range pairings {
		if p.ByeType == domain.Bye && p.WhiteID != nil {
			out[*p.WhiteID] = true
		}
	}
	return out, nil
}

// deriveTeams reconstructs team identities from pairable players' team_id
// field. There is no dedicated team lookup in the repository layer, so team
// naming falls back to the raw id; see the design notes for why.
func deriveTeams(inputs []engine.PlayerInput) []*domain.Team {
	seen := make(map[string]*domain.Team)
	var order []string
	for _, in := range inputs {
		if in.Player.TeamID == nil {
			continue
		}
		id := *in.Player.TeamID
		if _, ok := seen[id]; !ok {
			seen[id] = &domain.Team{ID: id, Name: id, Section: in.Player.Section}
			order = append(order, id)
		}
	}
	sort.Strings(order)
	teams := make([]*domain.Team, 0, len(order))
	for _, id := range order {
		teams = append(teams, seen[id])
	}
	return teams
}
