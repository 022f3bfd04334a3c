package undercover

// Role is the secret side of a player. It never changes during a game.
type Role int

const (
	Civilian Role = iota
	Impostor
)

func (r Role) String() string {
	switch r {
	case Civilian:
		return "平民"
	case Impostor:
		return "卧底"
	default:
		return "未知"
	}
}

// Winner is the outcome of a game. It stays Unresolved until the game ends
// and is never changed afterwards.
type Winner int

const (
	Unresolved Winner = iota
	Civilians
	Impostors
)

func (w Winner) String() string {
	switch w {
	case Civilians:
		return "平民"
	case Impostors:
		return "卧底"
	default:
		return "未决"
	}
}

// Phase names a step of the round cycle.
type Phase string

const (
	PhaseDescribe  Phase = "describe"
	PhaseVote      Phase = "vote"
	PhaseEliminate Phase = "eliminate"
	PhaseResolve   Phase = "resolve"
)
