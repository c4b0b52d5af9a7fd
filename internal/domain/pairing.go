package domain

import "time"

// ByeType distinguishes a normal game from the two bye shapes, as a closed
// enum rather than a nullable free string.
type ByeType string

// Bye types. Empty string (GameNormal) means the pairing is a real game.
const (
	GameNormal ByeType = ""
	Bye        ByeType = "bye"      // automatic half-point bye
	Unpaired   ByeType = "unpaired" // registered/full-point bye
)

// Pairing is one board of one round within one section.
//
// Invariant: exactly one of (both ids set), (BlackID nil and ByeType set),
// (both ids nil, reserved for a forfeited pair) holds.
type Pairing struct {
	ID           string    `json:"id"`
	TournamentID string    `json:"tournament_id"`
	Round        int       `json:"round"`
	Section      string    `json:"section"`
	Board        int       `json:"board"`
	WhiteID      *string   `json:"white_id"`
	BlackID      *string   `json:"black_id"`
	ByeType      ByeType   `json:"bye_type"`
	Result       *Result   `json:"result,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsBye reports whether this pairing has no black player (either bye shape).
func (p *Pairing) IsBye() bool {
	return p.BlackID == nil && p.ByeType != GameNormal
}

// IsGame reports whether this pairing is a real game between two players.
func (p *Pairing) IsGame() bool {
	return p.WhiteID != nil && p.BlackID != nil
}

// ResultCode is the closed variant of recorded game outcomes.
type ResultCode string

// Result codes. The "F" suffix marks a forfeit; points awarded are identical
// to the non-forfeit equivalent.
const (
	ResultWhiteWins        ResultCode = "1-0"
	ResultBlackWins        ResultCode = "0-1"
	ResultDraw             ResultCode = "1/2-1/2"
	ResultWhiteWinsForfeit ResultCode = "1-0F"
	ResultBlackWinsForfeit ResultCode = "0-1F"
	ResultDrawForfeit      ResultCode = "1/2-1/2F"
	ResultByeBye           ResultCode = "bye_bye"
	ResultByeUnpaired      ResultCode = "bye_unpaired"
)

// PointsForCode returns the (white, black) points a game result code awards.
func PointsForCode(code ResultCode) (white, black float64, ok bool) {
	switch code {
	case ResultWhiteWins, ResultWhiteWinsForfeit:
		return 1, 0, true
	case ResultBlackWins, ResultBlackWinsForfeit:
		return 0, 1, true
	case ResultDraw, ResultDrawForfeit:
		return 0.5, 0.5, true
	default:
		return 0, 0, false
	}
}

// Result is one player's recorded outcome for a pairing.
type Result struct {
	ID        string     `json:"id"`
	PairingID string     `json:"pairing_id"`
	PlayerID  string     `json:"player_id"`
	Points    float64    `json:"points"`
	Code      ResultCode `json:"code"`
	CreatedAt time.Time  `json:"created_at"`
}
