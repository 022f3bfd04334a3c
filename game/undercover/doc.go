// Package undercover plays "谁是卧底" (Undercover) between language-model
// players.
//
// Every player receives a secret word. Civilians share one word of a pair,
// impostors get the other one. Each round the alive players describe their
// word in one sentence, then vote for the most suspicious other player; the
// player with the most votes is eliminated (ties are broken uniformly at
// random). Civilians win once every impostor is out, impostors win as soon as
// they are at least as many as the civilians.
//
// The round loop is a patterns/graph state graph:
//
//	START → describe → vote → eliminate ─continue→ describe
//	                                    └─end────→ resolve → END
//
// The engine is strictly sequential and uses only the injected *rand.Rand for
// seat assignment and tie-breaks, so a fixed seed and a scripted
// LanguageModel replay a game exactly.
//
//	engine := undercover.NewEngine(undercover.NewClientModel(c),
//	    undercover.WithPlayers(5, 2),
//	    undercover.WithRand(rand.New(rand.NewPCG(1, 2))),
//	)
//	state, err := engine.Run(ctx)
//	fmt.Println(state.Winner)
package undercover
