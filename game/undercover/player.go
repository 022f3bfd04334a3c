package undercover

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spyword/undercover/internal/utils"
	"github.com/spyword/undercover/patterns/graph"
	"github.com/spyword/undercover/providers/observability"
)

// Player is one seat at the table. Name, Word and Role are fixed at setup.
type Player struct {
	Name string
	Word string
	Role Role

	// Descriptions holds the player's own descriptions, one per Describe
	// phase they survived.
	Descriptions []string

	alive     bool
	streaming bool
	model     LanguageModel
}

// NewPlayer returns a living player that asks model for every reply.
func NewPlayer(name, word string, role Role, model LanguageModel) *Player {
	return &Player{
		Name:      name,
		Word:      word,
		Role:      role,
		alive:     true,
		streaming: true,
		model:     model,
	}
}

// Alive reports whether the player is still in the game.
func (p *Player) Alive() bool { return p.alive }

// IsImpostor reports whether the player holds the impostor word.
func (p *Player) IsImpostor() bool { return p.Role == Impostor }

func (p *Player) eliminate() { p.alive = false }

func (p *Player) String() string {
	status := "存活"
	if !p.alive {
		status = "淘汰"
	}
	return fmt.Sprintf("Player(%s, %s, %s)", p.Name, p.Role, status)
}

// DescriptionEntry is one player's description history, as shown in prompts.
type DescriptionEntry struct {
	Name         string
	Descriptions []string
}

// Ballot is a parsed vote.
type Ballot struct {
	Voter  string
	Target string
	Raw    string

	// Fallback is set when the reply named no candidate and the first
	// candidate was used instead.
	Fallback bool
}

// Latency breaks down one model call.
type Latency struct {
	TimeToFirst time.Duration
	Generation  time.Duration
	Total       time.Duration
}

func (l Latency) String() string {
	return fmt.Sprintf("TTFT: %.2fs, 生成: %.2fs, 总计: %.2fs",
		l.TimeToFirst.Seconds(), l.Generation.Seconds(), l.Total.Seconds())
}

// Describe asks the model for a one-sentence description of the player's
// word and appends it to the player's history. The reply is not validated.
func (p *Player) Describe(ctx context.Context, round int, history []DescriptionEntry) (string, error) {
	prompt, err := renderPrompt(describeTemplate, describePromptData{
		Word:    p.Word,
		Round:   round,
		History: history,
	})
	if err != nil {
		return "", err
	}

	graph.Emit(ctx, p.Name+": ")
	reply, latency, err := p.ask(ctx, PhaseDescribe, prompt)
	if err != nil {
		graph.Emit(ctx, "\n")
		return "", err
	}
	graph.Emit(ctx, fmt.Sprintf(" (%s)\n", latency))

	description := strings.TrimSpace(reply)
	p.Descriptions = append(p.Descriptions, description)
	return description, nil
}

// Vote asks the model which candidate to eliminate and parses the reply.
func (p *Player) Vote(ctx context.Context, candidates []string, history []DescriptionEntry) (Ballot, error) {
	prompt, err := renderPrompt(voteTemplate, votePromptData{
		Name:       p.Name,
		Word:       p.Word,
		Candidates: candidates,
		History:    history,
	})
	if err != nil {
		return Ballot{}, err
	}

	graph.Emit(ctx, fmt.Sprintf("  > %s 正在投票: ", p.Name))
	reply, latency, err := p.ask(ctx, PhaseVote, prompt)
	if err != nil {
		graph.Emit(ctx, "\n")
		return Ballot{}, err
	}
	graph.Emit(ctx, fmt.Sprintf(" [完成] (%s)\n", latency))

	target, fallback := parseVote(reply, candidates)
	return Ballot{Voter: p.Name, Target: target, Raw: reply, Fallback: fallback}, nil
}

// ask runs one model call, streaming chunks into the graph's content events
// when streaming is on.
func (p *Player) ask(ctx context.Context, phase Phase, prompt string) (string, Latency, error) {
	timer := utils.NewTimer()

	var reply string
	var err error
	if p.streaming {
		reply, err = p.stream(ctx, prompt, timer)
	} else {
		reply, err = p.model.Complete(ctx, prompt)
		if err == nil {
			timer.MarkFirst()
			graph.Emit(ctx, reply)
		}
	}
	timer.Stop()

	latency := Latency{
		TimeToFirst: timer.TimeToFirst(),
		Generation:  timer.SinceFirst(),
		Total:       timer.GetDuration(),
	}
	// A reply without any token spent the whole call generating.
	if latency.TimeToFirst == 0 {
		latency.Generation = latency.Total
	}

	if observer := observability.ObserverFromContext(ctx); observer != nil {
		attrs := []observability.Attribute{
			observability.String(observability.AttrGamePlayer, p.Name),
			observability.String(observability.AttrGamePhase, string(phase)),
			observability.Duration(observability.AttrLLMTimeToFirstToken, latency.TimeToFirst),
			observability.Duration(observability.AttrDuration, latency.Total),
		}
		if err != nil {
			observer.Debug(ctx, "player reply failed", append(attrs, observability.Error(err))...)
		} else {
			observer.Debug(ctx, "player replied", append(attrs, observability.String(observability.AttrResponseContent, utils.TruncateString(reply, 80)))...)
		}
	}

	return reply, latency, err
}

func (p *Player) stream(ctx context.Context, prompt string, timer *utils.Timer) (string, error) {
	chunks, err := p.model.Stream(ctx, prompt)
	if err != nil {
		return "", err
	}

	var reply strings.Builder
	for chunk, err := range chunks {
		if err != nil {
			return reply.String(), err
		}
		if chunk == "" {
			continue
		}
		timer.MarkFirst()
		reply.WriteString(chunk)
		graph.Emit(ctx, chunk)
	}
	return reply.String(), nil
}
