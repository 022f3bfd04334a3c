package undercover

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlayers_RejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		players   int
		impostors int
		catalog   Catalog
	}{
		{"too few players", 2, 1, DefaultCatalog()},
		{"no impostor", 4, 0, DefaultCatalog()},
		{"everyone impostor", 4, 4, DefaultCatalog()},
		{"negative impostors", 5, -1, DefaultCatalog()},
		{"empty catalog", 4, 1, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			players, err := NewPlayers(rand.New(rand.NewPCG(1, 1)), tt.catalog, tt.players, tt.impostors, nil)
			require.Error(t, err)
			assert.Nil(t, players)
			assert.ErrorIs(t, err, ErrConfiguration)

			var configErr *ConfigurationError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.players, configErr.Players)
			assert.Equal(t, tt.impostors, configErr.Impostors)
		})
	}
}

func TestNewPlayers_DealsWordsAndRoles(t *testing.T) {
	catalog := DefaultCatalog()

	for seed := uint64(0); seed < 50; seed++ {
		players, err := NewPlayers(rand.New(rand.NewPCG(seed, 7)), catalog, 5, 2, nil)
		require.NoError(t, err)
		require.Len(t, players, 5)

		var civilianWord, impostorWord string
		impostors := 0
		for seat, p := range players {
			assert.Equal(t, PlayerName(seat), p.Name)
			assert.True(t, p.Alive())
			assert.Empty(t, p.Descriptions)
			if p.IsImpostor() {
				impostors++
				if impostorWord == "" {
					impostorWord = p.Word
				}
				assert.Equal(t, impostorWord, p.Word)
			} else {
				if civilianWord == "" {
					civilianWord = p.Word
				}
				assert.Equal(t, civilianWord, p.Word)
			}
		}

		assert.Equal(t, 2, impostors, "seed %d", seed)
		assert.Contains(t, catalog, WordPair{Civilian: civilianWord, Impostor: impostorWord})
	}
}

func TestNewPlayers_SameSeedSameTable(t *testing.T) {
	deal := func() []string {
		players, err := NewPlayers(rand.New(rand.NewPCG(42, 42)), DefaultCatalog(), 6, 2, nil)
		require.NoError(t, err)
		var table []string
		for _, p := range players {
			table = append(table, p.String()+p.Word)
		}
		return table
	}
	assert.Equal(t, deal(), deal())
}

func TestNewPlayers_EveryImpostorSeatReachable(t *testing.T) {
	seen := make(map[string]bool)
	for seed := uint64(0); seed < 200; seed++ {
		players, err := NewPlayers(rand.New(rand.NewPCG(seed, 3)), DefaultCatalog(), 4, 1, nil)
		require.NoError(t, err)
		for _, p := range players {
			if p.IsImpostor() {
				seen[p.Name] = true
			}
		}
	}
	assert.Len(t, seen, 4)
}

func TestPlayerName(t *testing.T) {
	assert.Equal(t, "玩家A", PlayerName(0))
	assert.Equal(t, "玩家Z", PlayerName(25))
	assert.Equal(t, "玩家27", PlayerName(26))
	assert.Equal(t, "玩家40", PlayerName(39))
}

func TestPlayer_String(t *testing.T) {
	p := NewPlayer("玩家A", "梨", Impostor, nil)
	assert.Equal(t, "Player(玩家A, 卧底, 存活)", p.String())

	p.eliminate()
	assert.False(t, p.Alive())
	assert.Equal(t, "Player(玩家A, 卧底, 淘汰)", p.String())
}

func TestGameState_Outcome(t *testing.T) {
	tests := []struct {
		name       string
		state      *GameState
		eliminated []int
		want       Winner
	}{
		{"impostor out", table(4, 1), []int{1}, Civilians},
		{"impostors match civilians", table(3, 0), []int{1}, Impostors},
		{"impostors outnumbered", table(4, 0), nil, Unresolved},
		{"two against two", table(5, 0, 1), []int{2}, Impostors},
		{"all impostors out, one civilian left", table(3, 0, 1), []int{0, 1}, Civilians},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, seat := range tt.eliminated {
				tt.state.Players[seat].eliminate()
			}
			assert.Equal(t, tt.want, tt.state.Outcome())
		})
	}
}
