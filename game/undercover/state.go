package undercover

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/spyword/undercover/patterns/graph"
	"github.com/spyword/undercover/providers/ai"
)

// OpeningLine is the first entry of every game log.
const OpeningLine = "🎮 谁是卧底游戏开始！"

// GameState is the single mutable record of a game. It is owned by one run
// and must not be shared between concurrent runs.
type GameState struct {
	ID      string
	Players []*Player
	Round   int

	// Descriptions maps a player name to every description they gave.
	Descriptions map[string][]string

	// Votes maps voter to target for the latest Vote phase only.
	Votes map[string]string

	Eliminated []string
	Winner     Winner
	Log        []string

	// Usage sums the token usage of every model call made for this game.
	Usage ai.Usage

	describedOrder []string
}

// NewGameState starts a game record for players, in seat order.
func NewGameState(players []*Player) *GameState {
	return &GameState{
		ID:           uuid.NewString(),
		Players:      players,
		Descriptions: make(map[string][]string),
		Votes:        make(map[string]string),
		Log:          []string{OpeningLine},
	}
}

// Player returns the player called name, or nil.
func (s *GameState) Player(name string) *Player {
	for _, p := range s.Players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// AlivePlayers returns the living players in seat order.
func (s *GameState) AlivePlayers() []*Player {
	alive := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Alive() {
			alive = append(alive, p)
		}
	}
	return alive
}

// AliveCounts returns how many impostors and civilians are still playing.
func (s *GameState) AliveCounts() (impostors, civilians int) {
	for _, p := range s.AlivePlayers() {
		if p.IsImpostor() {
			impostors++
		} else {
			civilians++
		}
	}
	return impostors, civilians
}

// Outcome evaluates the win conditions. Civilians win once no impostor is
// left; otherwise impostors win as soon as they are at least as many as the
// civilians. Unresolved means the game goes on.
func (s *GameState) Outcome() Winner {
	impostors, civilians := s.AliveCounts()
	switch {
	case impostors == 0:
		return Civilians
	case impostors >= civilians:
		return Impostors
	default:
		return Unresolved
	}
}

// DescriptionHistory lists every description given so far, grouped by
// player in the order players first described.
func (s *GameState) DescriptionHistory() []DescriptionEntry {
	history := make([]DescriptionEntry, 0, len(s.describedOrder))
	for _, name := range s.describedOrder {
		history = append(history, DescriptionEntry{
			Name:         name,
			Descriptions: slices.Clone(s.Descriptions[name]),
		})
	}
	return history
}

func (s *GameState) addDescription(name, description string) {
	if _, seen := s.Descriptions[name]; !seen {
		s.describedOrder = append(s.describedOrder, name)
	}
	s.Descriptions[name] = append(s.Descriptions[name], description)
}

// record appends a line to the game log without publishing it. Used for
// lines whose content the players already streamed.
func (s *GameState) record(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

// logf appends a line to the game log and publishes it on the run's stream.
func (s *GameState) logf(ctx context.Context, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	s.Log = append(s.Log, line)
	graph.Emit(ctx, line+"\n")
}

// section is logf for phase headers, which are set off by a blank line on
// the stream.
func (s *GameState) section(ctx context.Context, format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	s.Log = append(s.Log, line)
	graph.Emit(ctx, "\n"+line+"\n")
}
