package engine

import (
	"fmt"

	"github.com/cliffdoyle/chess-arbiter/internal/domain"
)

// generateQuad implements quad scheduling: the roster is split
// into groups of four by rating, each group running its own independent
// 3-round round robin addressed as its own sub-section so boards and color
// history never cross quad boundaries.
func generateQuad(in Input) (*Output, error) {
	players := append([]PlayerInput(nil), in.Pairable...)
	sortByRatingThenName(players)

	groups := splitIntoQuads(players)

	var pairings []*domain.Pairing
	for qi, grp := range groups {
		subSection := fmt.Sprintf("%s-quad-%d", in.Section, qi+1)
		board := 1
		n := len(grp)
		padded := n
		phantom := padded%2 != 0
		if phantom {
			padded++
		}
		effRound := in.Round
		if padded > 1 {
			effRound = (in.Round-1)%(padded-1) + 1
		}

		for _, pr := range roundRobinPairs(padded, effRound) {
			a, b := pr[0], pr[1]
			if phantom && (a == padded-1 || b == padded-1) {
				realIdx := a
				if a == padded-1 {
					realIdx = b
				}
				id := grp[realIdx].Player.ID
				pairings = append(pairings, &domain.Pairing{
					TournamentID: in.TournamentID,
					Round:        in.Round,
					Section:      subSection,
					Board:        board,
					WhiteID:      &id,
					BlackID:      nil,
					ByeType:      domain.Bye,
				})
				board++
				continue
			}

			white, black := a, b
			if (a+b+effRound)%2 != 0 {
				white, black = b, a
			}
			whiteID, blackID := grp[white].Player.ID, grp[black].Player.ID
			pairings = append(pairings, &domain.Pairing{
				TournamentID: in.TournamentID,
				Round:        in.Round,
				Section:      subSection,
				Board:        board,
				WhiteID:      &whiteID,
				BlackID:      &blackID,
				ByeType:      domain.GameNormal,
			})
			board++
		}
	}

	// Registered byes are materialized under the parent section (not any
	// quad sub-section), which has no boards of its own yet, so numbering
	// starts fresh at 1 rather than continuing a quad's count.
	pairings = appendRegisteredByes(pairings, in, 1)
	return &Output{Pairings: pairings}, nil
}

// splitIntoQuads chunks a rating-ordered roster into groups of four. A final
// group shorter than four is left as-is rather than folded into its
// neighbor: generateQuad's phantom-seat padding already gives a group of 2
// or 3 a normal internal round robin, and a lone leftover player forms a
// group of 1, which pads to 2 with an all-phantom opponent, so every round
// materializes as a bye for them, completing the short final quad with bye
// pairings rather than diluting a full quad into a five.
func splitIntoQuads(players []PlayerInput) [][]PlayerInput {
	var groups [][]PlayerInput
	for i := 0; i < len(players); i += 4 {
		end := i + 4
		if end > len(players) {
			end = len(players)
		}
		groups = append(groups, players[i:end])
	}
	return groups
}
