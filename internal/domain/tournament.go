package domain

import "time"

// Format identifies which pairing algorithm governs a tournament.
type Format string

// Supported tournament formats.
const (
	FormatSwiss              Format = "SWISS"
	FormatRoundRobin         Format = "ROUND_ROBIN"
	FormatQuad               Format = "QUAD"
	FormatSingleElimination  Format = "SINGLE_ELIMINATION"
	FormatTeamSwiss          Format = "TEAM_SWISS"
	FormatOnlineRated        Format = "ONLINE_RATED"
)

// Status is the lifecycle state of a tournament.
type Status string

// Tournament statuses.
const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// TiebreakKind enumerates the tiebreak systems the Standings Calculator knows how
// to compute. Order in a Tournament.TiebreakOrder determines precedence.
type TiebreakKind string

// Supported tiebreaks.
const (
	TiebreakBuchholz       TiebreakKind = "buchholz"
	TiebreakMedianBuchholz TiebreakKind = "median_buchholz"
	TiebreakSonnebornBerger TiebreakKind = "sonneborn_berger"
	TiebreakCumulative     TiebreakKind = "cumulative"
	TiebreakSolkoff        TiebreakKind = "solkoff"
	TiebreakDirectEncounter TiebreakKind = "direct_encounter"
)

// DefaultTiebreakOrder is applied when a tournament does not configure its own.
var DefaultTiebreakOrder = []TiebreakKind{
	TiebreakBuchholz,
	TiebreakMedianBuchholz,
	TiebreakSonnebornBerger,
	TiebreakCumulative,
}

// Settings holds tournament-level configuration that isn't part of the core
// identity of the tournament (pairing variant, tiebreak order, relaxation budgets).
type Settings struct {
	TiebreakOrder          []TiebreakKind `json:"tiebreak_order,omitempty"`
	SwissTranspositionCap  int            `json:"swiss_transposition_cap,omitempty"`
	PairingTimeoutSeconds  int            `json:"pairing_timeout_seconds,omitempty"`
}

// Tournament is the top-level aggregate the Round Controller orchestrates.
type Tournament struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Format        Format    `json:"format"`
	RoundCount    int       `json:"round_count"`
	CurrentRound  int       `json:"current_round"`
	Sections      []string  `json:"sections"`
	TimeControl   string    `json:"time_control"`
	Status        Status    `json:"status"`
	Settings      Settings  `json:"settings"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TiebreakOrderOrDefault returns the tournament's configured tiebreak chain, falling back
// to DefaultTiebreakOrder when unset.
func (t *Tournament) TiebreakOrderOrDefault() []TiebreakKind {
	if len(t.Settings.TiebreakOrder) == 0 {
		return DefaultTiebreakOrder
	}
	return t.Settings.TiebreakOrder
}
