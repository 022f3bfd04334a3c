package undercover

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/spyword/undercover/core/overview"
	"github.com/spyword/undercover/patterns/graph"
	"github.com/spyword/undercover/providers/observability"
)

// Graph node identifiers.
const (
	NodeDescribe  = "describe"
	NodeVote      = "vote"
	NodeEliminate = "eliminate"
	NodeResolve   = "resolve"
)

const (
	routeContinue = "continue"
	routeEnd      = "end"
)

// Engine runs games of Undercover as a cyclic graph:
//
//	START -> describe -> vote -> eliminate -> (continue) describe
//	                                        -> (end) resolve -> END
//
// An Engine is not safe for concurrent use because games draw from the
// same random source.
type Engine struct {
	model     LanguageModel
	rng       *rand.Rand
	catalog   Catalog
	players   int
	impostors int
	observer  observability.Provider
	streaming bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the source used for word, seat and tie-break choices.
func WithRand(rng *rand.Rand) Option {
	return func(engine *Engine) {
		if rng != nil {
			engine.rng = rng
		}
	}
}

// WithCatalog replaces the embedded word catalog.
func WithCatalog(catalog Catalog) Option {
	return func(engine *Engine) {
		engine.catalog = catalog
	}
}

// WithPlayers sets the table size and the number of impostors. Defaults
// are 3 and 1.
func WithPlayers(players, impostors int) Option {
	return func(engine *Engine) {
		engine.players = players
		engine.impostors = impostors
	}
}

// WithObserver enables tracing, metrics and logging for games and their
// graph runs.
func WithObserver(observer observability.Provider) Option {
	return func(engine *Engine) {
		engine.observer = observer
	}
}

// WithStreaming chooses between LanguageModel.Stream (the default) and
// LanguageModel.Complete for player replies.
func WithStreaming(enabled bool) Option {
	return func(engine *Engine) {
		engine.streaming = enabled
	}
}

// NewEngine returns an engine whose players all ask model.
func NewEngine(model LanguageModel, opts ...Option) *Engine {
	engine := &Engine{
		model:     model,
		catalog:   DefaultCatalog(),
		players:   MinPlayers,
		impostors: 1,
		streaming: true,
	}
	for _, opt := range opts {
		opt(engine)
	}
	if engine.rng == nil {
		engine.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return engine
}

// Setup deals words and roles and returns a fresh game. Configuration
// errors are reported here, before any phase runs.
func (engine *Engine) Setup() (*GameState, error) {
	players, err := NewPlayers(engine.rng, engine.catalog, engine.players, engine.impostors, engine.model)
	if err != nil {
		return nil, err
	}
	return NewGameState(players), nil
}

// Run sets up and plays a whole game. On a model failure the partial state
// is returned together with the error.
func (engine *Engine) Run(ctx context.Context) (*GameState, error) {
	state, err := engine.Setup()
	if err != nil {
		return nil, err
	}
	return engine.Play(ctx, state)
}

// Play runs a fresh state to completion. A state that was already played,
// finished or not, is rejected with a *ConfigurationError.
func (engine *Engine) Play(ctx context.Context, state *GameState) (*GameState, error) {
	game, err := engine.compile(state)
	if err != nil {
		return state, err
	}

	ctx, finish := engine.begin(ctx, state)
	_, err = game.Invoke(ctx, state)
	finish(err)
	return state, err
}

// Stream plays state while yielding the graph's events: node lifecycle,
// the log lines and streamed player replies as content, and Done. A
// failure is yielded once as a non-nil error. Breaking out of the loop
// stops the game after the current model call.
func (engine *Engine) Stream(ctx context.Context, state *GameState) iter.Seq2[graph.GraphEvent[*GameState], error] {
	return func(yield func(graph.GraphEvent[*GameState], error) bool) {
		game, err := engine.compile(state)
		if err != nil {
			yield(graph.GraphEvent[*GameState]{}, err)
			return
		}

		ctx, finish := engine.begin(ctx, state)
		var runErr error
		for event, err := range game.Stream(ctx, state).Iter() {
			if err != nil {
				runErr = err
				yield(event, err)
				break
			}
			if !yield(event, nil) {
				break
			}
		}
		finish(runErr)
	}
}

func (engine *Engine) compile(state *GameState) (*graph.Graph[*GameState], error) {
	if state == nil || len(state.Players) == 0 {
		return nil, &ConfigurationError{Reason: "game has no players"}
	}
	// Games are played once from a fresh Setup; resuming is unsupported.
	if state.Winner != Unresolved {
		return nil, &ConfigurationError{Players: len(state.Players), Reason: "game is already over"}
	}
	if state.Round > 0 {
		return nil, &ConfigurationError{Players: len(state.Players), Reason: "game was already started"}
	}

	// A game lasts at most players-1 rounds of three steps, plus resolve.
	maxSteps := 3*len(state.Players) + 1

	opts := []graph.Option{graph.WithMaxSteps(maxSteps)}
	if engine.observer != nil {
		opts = append(opts, graph.WithObserver(engine.observer))
	}

	return graph.NewStateGraph[*GameState](opts...).
		AddNode(NodeDescribe, engine.describe).
		AddNode(NodeVote, engine.vote).
		AddNode(NodeEliminate, engine.eliminate).
		AddNode(NodeResolve, engine.resolve).
		AddEdge(graph.START, NodeDescribe).
		AddEdge(NodeDescribe, NodeVote).
		AddEdge(NodeVote, NodeEliminate).
		AddConditionalEdges(NodeEliminate, checkOutcome, map[string]string{
			routeContinue: NodeDescribe,
			routeEnd:      NodeResolve,
		}).
		AddEdge(NodeResolve, graph.END).
		Compile()
}

// begin prepares ctx for one game and returns the hook that closes it.
func (engine *Engine) begin(ctx context.Context, state *GameState) (context.Context, func(error)) {
	for _, p := range state.Players {
		p.streaming = engine.streaming
	}

	gameOverview := &overview.Overview{}
	ctx = gameOverview.ToContext(ctx)

	var span observability.Span
	if engine.observer != nil {
		ctx = observability.ContextWithObserver(ctx, engine.observer)
		ctx, span = engine.observer.StartSpan(ctx, observability.SpanGameRun,
			observability.String(observability.AttrGameID, state.ID),
		)
		impostors, civilians := state.AliveCounts()
		engine.observer.Info(ctx, "game started",
			observability.String(observability.AttrGameID, state.ID),
			observability.Int(observability.AttrGameAlive, impostors+civilians),
			observability.Int(observability.AttrGameImpostors, impostors),
		)
	}

	finish := func(err error) {
		usage := gameOverview.TotalUsage()
		state.Usage.Add(&usage)

		if engine.observer == nil {
			return
		}
		if span != nil {
			defer span.End()
		}

		attrs := []observability.Attribute{
			observability.String(observability.AttrGameID, state.ID),
			observability.Int(observability.AttrGameRound, state.Round),
			observability.Int(observability.AttrLLMTokensTotal, state.Usage.TotalTokens),
		}
		switch {
		case err != nil:
			if span != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, err.Error())
			}
			engine.observer.Error(ctx, "game aborted", append(attrs, observability.Error(err))...)
		case state.Winner == Unresolved:
			engine.observer.Info(ctx, "game stopped before a winner was decided", attrs...)
		default:
			if span != nil {
				span.SetAttributes(observability.String(observability.AttrGameWinner, state.Winner.String()))
				span.SetStatus(observability.StatusOK, "")
			}
			engine.observer.Info(ctx, "game finished",
				append(attrs, observability.String(observability.AttrGameWinner, state.Winner.String()))...)
		}
	}

	return ctx, finish
}

// --- Nodes ---

func (engine *Engine) describe(ctx context.Context, state *GameState) (*GameState, error) {
	state.Round++
	state.section(ctx, "=== 第 %d 轮描述 ===", state.Round)

	for _, p := range state.AlivePlayers() {
		description, err := p.Describe(ctx, state.Round, state.DescriptionHistory())
		if err != nil {
			return state, engine.collaboratorFailed(ctx, state, p, PhaseDescribe, err)
		}
		state.addDescription(p.Name, description)
		state.record("%s: %s", p.Name, description)
	}
	return state, nil
}

func (engine *Engine) vote(ctx context.Context, state *GameState) (*GameState, error) {
	state.section(ctx, "=== 第 %d 轮投票 ===", state.Round)

	alive := state.AlivePlayers()
	votes := make(map[string]string, len(alive))
	for _, voter := range alive {
		candidates := make([]string, 0, len(alive)-1)
		for _, p := range alive {
			if p != voter {
				candidates = append(candidates, p.Name)
			}
		}

		ballot, err := voter.Vote(ctx, candidates, state.DescriptionHistory())
		if err != nil {
			return state, engine.collaboratorFailed(ctx, state, voter, PhaseVote, err)
		}
		if ballot.Fallback {
			engine.voteFellBack(ctx, state, ballot)
		}
		votes[voter.Name] = ballot.Target
		state.logf(ctx, "%s 投票给 %s", voter.Name, ballot.Target)
	}

	state.Votes = votes
	return state, nil
}

func (engine *Engine) eliminate(ctx context.Context, state *GameState) (*GameState, error) {
	tally := make(map[string]int, len(state.Votes))
	highest := 0
	for _, target := range state.Votes {
		tally[target]++
		highest = max(highest, tally[target])
	}

	// Seat order keeps the tie-break reproducible for a seeded source.
	var leaders []*Player
	for _, p := range state.Players {
		if tally[p.Name] == highest && highest > 0 {
			leaders = append(leaders, p)
		}
	}
	if len(leaders) == 0 {
		return state, errors.New("no valid votes to tally")
	}

	out := leaders[0]
	if len(leaders) > 1 {
		out = leaders[engine.rng.IntN(len(leaders))]
	}

	out.eliminate()
	state.Eliminated = append(state.Eliminated, out.Name)
	state.logf(ctx, "%s 被淘汰！身份: %s", out.Name, out.Role)

	if engine.observer != nil {
		engine.observer.Counter(observability.MetricGameEliminations).Add(ctx, 1,
			observability.String(observability.AttrGameRole, out.Role.String()),
		)
		engine.observer.Info(ctx, "player eliminated",
			observability.String(observability.AttrGameID, state.ID),
			observability.Int(observability.AttrGameRound, state.Round),
			observability.String(observability.AttrGamePlayer, out.Name),
			observability.String(observability.AttrGameRole, out.Role.String()),
			observability.Int(observability.AttrGameTieSize, len(leaders)),
		)
	}
	return state, nil
}

func (engine *Engine) resolve(ctx context.Context, state *GameState) (*GameState, error) {
	state.Winner = state.Outcome()
	switch state.Winner {
	case Civilians:
		state.section(ctx, "🎉 平民胜利！卧底被找出来了！")
	case Impostors:
		state.section(ctx, "🎭 卧底胜利！成功隐藏到最后！")
	default:
		return state, fmt.Errorf("resolve reached with no winner after round %d", state.Round)
	}

	state.section(ctx, "=== 身份揭晓 ===")
	for _, p := range state.Players {
		state.logf(ctx, "%s: %s (词语: %s)", p.Name, p.Role, p.Word)
	}

	if engine.observer != nil {
		engine.observer.Counter(observability.MetricGameResult).Add(ctx, 1,
			observability.String(observability.AttrGameWinner, state.Winner.String()),
		)
		engine.observer.Counter(observability.MetricGameRounds).Add(ctx, int64(state.Round))
	}
	return state, nil
}

// checkOutcome routes eliminate to resolve once a side has won.
func checkOutcome(_ context.Context, state *GameState) string {
	if state.Outcome() == Unresolved {
		return routeContinue
	}
	return routeEnd
}

func (engine *Engine) collaboratorFailed(ctx context.Context, state *GameState, p *Player, phase Phase, err error) error {
	failure := &CollaboratorError{Player: p.Name, Phase: phase, Err: err}
	if engine.observer != nil {
		engine.observer.Error(ctx, "model call failed",
			observability.String(observability.AttrGameID, state.ID),
			observability.Int(observability.AttrGameRound, state.Round),
			observability.String(observability.AttrGamePlayer, p.Name),
			observability.String(observability.AttrGamePhase, string(phase)),
			observability.Error(err),
		)
	}
	return failure
}

func (engine *Engine) voteFellBack(ctx context.Context, state *GameState, ballot Ballot) {
	if engine.observer == nil {
		return
	}
	engine.observer.Counter(observability.MetricGameVoteFallback).Add(ctx, 1)
	engine.observer.Warn(ctx, "vote named no candidate, using default",
		observability.String(observability.AttrGameID, state.ID),
		observability.Int(observability.AttrGameRound, state.Round),
		observability.String(observability.AttrGamePlayer, ballot.Voter),
		observability.String(observability.AttrGameTarget, ballot.Target),
		observability.String(observability.AttrGameRawReply, ballot.Raw),
	)
}
