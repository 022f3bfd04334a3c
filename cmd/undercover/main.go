// Command undercover plays one game of 谁是卧底 between language-model
// players and prints the game as it unfolds.
//
// Settings come from .env, undercover.yaml and the environment (see
// internal/config); flags override them. Logs go to stderr so they do not
// interleave with the transcript.
//
//	undercover -players 5 -impostors 2 -seed 7 -metrics-file game.prom
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/spyword/undercover/core/client"
	"github.com/spyword/undercover/core/client/middleware"
	"github.com/spyword/undercover/game/undercover"
	"github.com/spyword/undercover/internal/config"
	"github.com/spyword/undercover/internal/utils"
	"github.com/spyword/undercover/patterns/graph"
	"github.com/spyword/undercover/providers/ai/openai"
	"github.com/spyword/undercover/providers/observability/promobs"
	"github.com/spyword/undercover/providers/observability/slogobs"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5FAFFF")).
			Bold(true)

	eliminatedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	winnerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

type flags struct {
	configFile  string
	players     int
	impostors   int
	model       string
	words       string
	seed        uint64
	noStream    bool
	timeout     time.Duration
	rps         float64
	metricsFile string
	trace       bool
	verbose     bool
	jsonSummary bool

	set map[string]bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.configFile, "config", "", "YAML config file (default ./undercover.yaml if present)")
	flag.IntVar(&f.players, "players", 3, "number of players")
	flag.IntVar(&f.impostors, "impostors", 1, "number of impostors")
	flag.StringVar(&f.model, "model", "glm-4-flash", "model name")
	flag.StringVar(&f.words, "words", "", "YAML word-pair catalog replacing the built-in one")
	flag.Uint64Var(&f.seed, "seed", 0, "random seed for a reproducible table")
	flag.BoolVar(&f.noStream, "no-stream", false, "wait for whole replies instead of streaming tokens")
	flag.DurationVar(&f.timeout, "timeout", 30*time.Second, "timeout per model call")
	flag.Float64Var(&f.rps, "rps", 0, "max model requests per second (0 = unlimited)")
	flag.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file when the game ends")
	flag.BoolVar(&f.trace, "trace", true, "print a line when each graph node completes")
	flag.BoolVar(&f.verbose, "verbose", false, "log every model request and reply to stderr")
	flag.BoolVar(&f.jsonSummary, "json", false, "print the final game record as JSON")
	flag.Parse()

	f.set = make(map[string]bool)
	flag.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f
}

// apply overrides cfg with the flags given on the command line.
func (f flags) apply(cfg *config.Config) {
	if f.set["players"] {
		cfg.Game.Players = f.players
	}
	if f.set["impostors"] {
		cfg.Game.Impostors = f.impostors
	}
	if f.set["model"] {
		cfg.Model = f.model
	}
	if f.set["words"] {
		cfg.Game.Words = f.words
	}
	if f.set["no-stream"] {
		cfg.Game.Streaming = !f.noStream
	}
	if f.set["timeout"] {
		cfg.Client.Timeout = f.timeout
	}
	if f.set["rps"] {
		cfg.Client.RequestsPerSecond = f.rps
	}
	if f.set["metrics-file"] {
		cfg.MetricsFile = f.metricsFile
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("错误: "+err.Error()))
		os.Exit(1)
	}
}

func run() error {
	f := parseFlags()

	cfg, err := config.Load(f.configFile)
	if err != nil {
		return err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	catalog := undercover.DefaultCatalog()
	if cfg.Game.Words != "" {
		if catalog, err = undercover.LoadCatalog(cfg.Game.Words); err != nil {
			return err
		}
	}

	observer := promobs.New(slogobs.New(slogobs.WithOutput(os.Stderr)))

	provider := openai.New().WithAPIKey(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		provider = provider.WithBaseURL(cfg.OpenAI.BaseURL)
	}

	middlewares := []client.MiddlewareConfig{middleware.NewTimeoutMiddleware(cfg.Client.Timeout)}
	if cfg.Client.RequestsPerSecond > 0 {
		middlewares = append(middlewares, middleware.NewRateLimitMiddleware(cfg.Client.RequestsPerSecond, cfg.Client.Burst))
	}
	if f.verbose {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		middlewares = append(middlewares, middleware.NewLoggingMiddleware(logger, middleware.LogLevelVerbose))
	}

	llm, err := client.New(provider,
		client.WithDefaultModel(cfg.Model),
		client.WithObserver(observer),
		client.WithMiddleware(middlewares...),
	)
	if err != nil {
		return err
	}

	opts := []undercover.Option{
		undercover.WithCatalog(catalog),
		undercover.WithPlayers(cfg.Game.Players, cfg.Game.Impostors),
		undercover.WithObserver(observer),
		undercover.WithStreaming(cfg.Game.Streaming),
	}
	if f.set["seed"] {
		opts = append(opts, undercover.WithRand(rand.New(rand.NewPCG(f.seed, f.seed))))
	}
	engine := undercover.NewEngine(undercover.NewClientModel(llm), opts...)

	state, err := engine.Setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	printBanner(cfg.Game.Players, cfg.Game.Impostors)
	fmt.Println(state.Log[0])

	var runErr error
	for event, err := range engine.Stream(ctx, state) {
		if err != nil {
			runErr = err
			break
		}
		switch event.Type {
		case graph.GraphEventNodeContent:
			fmt.Print(styleChunk(event.Content))
		case graph.GraphEventNodeComplete:
			if f.trace {
				fmt.Println(traceStyle.Render(fmt.Sprintf("[节点完成: %s]", event.NodeID)))
			}
		}
	}

	if cfg.MetricsFile != "" {
		if err := observer.WriteToTextfile(cfg.MetricsFile); err != nil {
			fmt.Fprintln(os.Stderr, errorStyle.Render("写入指标失败: "+err.Error()))
		}
	}

	if runErr != nil {
		return runErr
	}
	printSummary(state)
	if f.jsonSummary {
		fmt.Println(utils.JSONToString(newRecord(state), true))
	}
	return nil
}

// record is the JSON shape of a finished game.
type record struct {
	ID         string              `json:"id"`
	Winner     string              `json:"winner"`
	Rounds     int                 `json:"rounds"`
	Eliminated []string            `json:"eliminated"`
	Players    []playerRecord      `json:"players"`
	Votes      map[string]string   `json:"last_votes"`
	Described  map[string][]string `json:"descriptions"`
	Tokens     int                 `json:"total_tokens"`
}

type playerRecord struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Word  string `json:"word"`
	Alive bool   `json:"alive"`
}

func newRecord(state *undercover.GameState) record {
	players := make([]playerRecord, 0, len(state.Players))
	for _, p := range state.Players {
		players = append(players, playerRecord{Name: p.Name, Role: p.Role.String(), Word: p.Word, Alive: p.Alive()})
	}
	return record{
		ID:         state.ID,
		Winner:     state.Winner.String(),
		Rounds:     state.Round,
		Eliminated: state.Eliminated,
		Players:    players,
		Votes:      state.Votes,
		Described:  state.Descriptions,
		Tokens:     state.Usage.TotalTokens,
	}
}

func printBanner(players, impostors int) {
	rule := strings.Repeat("=", 50)
	fmt.Println(rule)
	fmt.Println(titleStyle.Render("   🎭 谁是卧底 AI 游戏 🎭"))
	fmt.Println(rule)
	fmt.Printf("\n%d 个 AI 玩家，%d 个卧底，%d 个平民\n", players, impostors, players-impostors)
	fmt.Println("卧底需要隐藏身份，平民需要找出卧底!")
	fmt.Println()
}

func printSummary(state *undercover.GameState) {
	rule := strings.Repeat("=", 50)
	fmt.Println()
	fmt.Println(rule)
	fmt.Println(winnerStyle.Render("   游戏结束！获胜方: " + state.Winner.String()))
	fmt.Println(rule)
	fmt.Println(traceStyle.Render(fmt.Sprintf("回合: %d  令牌: %d (提示 %d / 生成 %d)",
		state.Round, state.Usage.TotalTokens, state.Usage.PromptTokens, state.Usage.CompletionTokens)))
}

// styleChunk colours whole log lines; streamed tokens pass through as is.
func styleChunk(chunk string) string {
	line := strings.Trim(chunk, "\n")
	var style *lipgloss.Style
	switch {
	case strings.HasPrefix(line, "==="):
		style = &headerStyle
	case strings.HasPrefix(line, "🎉"), strings.HasPrefix(line, "🎭"):
		style = &winnerStyle
	case strings.Contains(line, "被淘汰"):
		style = &eliminatedStyle
	default:
		return chunk
	}

	lead := chunk[:strings.Index(chunk, line)]
	return lead + style.Render(line) + chunk[len(lead)+len(line):]
}
