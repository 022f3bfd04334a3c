package undercover

import (
	"math/rand/v2"
	"strconv"
)

// MinPlayers is the smallest table that still has a vote to hold.
const MinPlayers = 3

// NewPlayers seats n players, k of them impostors. The word pair is drawn
// from catalog and the impostor seats are chosen with rng, so a seeded rng
// gives a reproducible table.
func NewPlayers(rng *rand.Rand, catalog Catalog, n, k int, model LanguageModel) ([]*Player, error) {
	switch {
	case n < MinPlayers:
		return nil, &ConfigurationError{Players: n, Impostors: k, Reason: "at least 3 players are required"}
	case k < 1 || k > n-1:
		return nil, &ConfigurationError{Players: n, Impostors: k, Reason: "impostors must be between 1 and players-1"}
	case len(catalog) == 0:
		return nil, &ConfigurationError{Players: n, Impostors: k, Reason: "word catalog is empty"}
	}

	pair := catalog[rng.IntN(len(catalog))]

	// Partial Fisher-Yates: the first k seats of the permutation are impostors.
	seats := make([]int, n)
	for i := range seats {
		seats[i] = i
	}
	impostor := make([]bool, n)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		seats[i], seats[j] = seats[j], seats[i]
		impostor[seats[i]] = true
	}

	players := make([]*Player, n)
	for seat := range players {
		word, role := pair.Civilian, Civilian
		if impostor[seat] {
			word, role = pair.Impostor, Impostor
		}
		players[seat] = NewPlayer(PlayerName(seat), word, role, model)
	}
	return players, nil
}

// PlayerName returns the display name of a zero-based seat: 玩家A to 玩家Z,
// then 玩家27, 玩家28 and so on.
func PlayerName(seat int) string {
	if seat < 26 {
		return "玩家" + string(rune('A'+seat))
	}
	return "玩家" + strconv.Itoa(seat+1)
}
