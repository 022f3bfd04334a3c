package undercover

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spyword/undercover/core/client"
	"github.com/spyword/undercover/providers/ai"
)

// ========== Scripted Model ==========

var (
	promptWordPattern       = regexp.MustCompile(`你的词语是: (\S+)`)
	promptRoundPattern      = regexp.MustCompile(`这是第 (\d+) 轮`)
	promptVoterPattern      = regexp.MustCompile(`你的名字是: (\S+)`)
	promptCandidatesPattern = regexp.MustCompile(`可选玩家: (.*)`)
)

// scriptedModel answers describe and vote prompts with test callbacks. It
// reads the word, round, voter and candidates back out of the prompt.
type scriptedModel struct {
	describe func(word string, round int) (string, error)
	vote     func(voter string, candidates []string) (string, error)
	prompts  []string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)

	if match := promptCandidatesPattern.FindStringSubmatch(prompt); match != nil {
		voter := promptVoterPattern.FindStringSubmatch(prompt)[1]
		candidates := strings.Split(match[1], ", ")
		if m.vote == nil {
			return candidates[0], nil
		}
		return m.vote(voter, candidates)
	}

	word := promptWordPattern.FindStringSubmatch(prompt)[1]
	round, _ := strconv.Atoi(promptRoundPattern.FindStringSubmatch(prompt)[1])
	if m.describe == nil {
		return fmt.Sprintf("描述%d", round), nil
	}
	return m.describe(word, round)
}

// Stream splits the scripted reply into runes, led by an empty chunk.
func (m *scriptedModel) Stream(ctx context.Context, prompt string) (iter.Seq2[string, error], error) {
	reply, err := m.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return func(yield func(string, error) bool) {
		if !yield("", nil) {
			return
		}
		for _, r := range reply {
			if !yield(string(r), nil) {
				return
			}
		}
	}, nil
}

// voteFor returns a vote script that picks, per voter, the target in
// choices.
func voteFor(choices map[string]string) func(string, []string) (string, error) {
	return func(voter string, _ []string) (string, error) {
		return "我投 " + choices[voter], nil
	}
}

// table builds a game with fixed seats; impostors lists impostor seats.
func table(n int, impostors ...int) *GameState {
	players := make([]*Player, n)
	for seat := range players {
		players[seat] = NewPlayer(PlayerName(seat), "苹果", Civilian, nil)
	}
	for _, seat := range impostors {
		players[seat].Word = "梨"
		players[seat].Role = Impostor
	}
	return NewGameState(players)
}

// withModel points every player of state at model.
func withModel(state *GameState, model LanguageModel) *GameState {
	for _, p := range state.Players {
		p.model = model
	}
	return state
}

// ========== ClientModel ==========

type fakeProvider struct {
	reply string
	err   error
}

func (f *fakeProvider) SendMessage(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &ai.ChatResponse{Content: f.reply, FinishReason: "stop", Usage: &ai.Usage{TotalTokens: 4}}, nil
}

func (f *fakeProvider) IsStopMessage(resp *ai.ChatResponse) bool { return resp.FinishReason == "stop" }
func (f *fakeProvider) WithAPIKey(string) ai.Provider            { return f }
func (f *fakeProvider) WithBaseURL(string) ai.Provider           { return f }
func (f *fakeProvider) WithHttpClient(*http.Client) ai.Provider  { return f }

func TestClientModel_Complete(t *testing.T) {
	c, err := client.New(&fakeProvider{reply: "玩家B"})
	require.NoError(t, err)

	reply, err := NewClientModel(c).Complete(context.Background(), "投票")
	require.NoError(t, err)
	assert.Equal(t, "玩家B", reply)
}

func TestClientModel_StreamFallsBackToSingleChunk(t *testing.T) {
	c, err := client.New(&fakeProvider{reply: "红色的水果"})
	require.NoError(t, err)

	chunks, err := NewClientModel(c).Stream(context.Background(), "描述")
	require.NoError(t, err)

	var got strings.Builder
	for chunk, err := range chunks {
		require.NoError(t, err)
		got.WriteString(chunk)
	}
	assert.Equal(t, "红色的水果", got.String())
}

func TestClientModel_ErrorsSurface(t *testing.T) {
	wantErr := errors.New("401 unauthorized")
	c, err := client.New(&fakeProvider{err: wantErr})
	require.NoError(t, err)

	_, err = NewClientModel(c).Complete(context.Background(), "x")
	assert.ErrorIs(t, err, wantErr)
}
