package observability

// Semantic conventions for observability attributes. Use these names instead
// of ad-hoc strings so that log and metric backends see consistent keys.

// --- LLM Provider Attributes ---

const (
	AttrLLMProvider     = "llm.provider"
	AttrLLMModel        = "llm.model"
	AttrLLMEndpoint     = "llm.endpoint"
	AttrLLMResponseID   = "llm.response.id"
	AttrLLMFinishReason = "llm.finish_reason"
	AttrLLMStreaming    = "llm.streaming"

	// AttrLLMTimeToFirstToken is the delay between request and first content delta.
	AttrLLMTimeToFirstToken = "llm.ttft" // #nosec G101 -- not a credential
)

// --- Token Usage Attributes ---

const (
	AttrLLMTokensPrompt     = "llm.tokens.prompt"     // #nosec G101 -- not a credential
	AttrLLMTokensCompletion = "llm.tokens.completion" // #nosec G101 -- not a credential
	AttrLLMTokensTotal      = "llm.tokens.total"      // #nosec G101 -- not a credential
)

// --- Request/Response Attributes ---

const (
	AttrRequestMessagesCount = "request.messages_count"
	AttrResponseContent      = "response.content"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Memory Attributes ---

const (
	AttrMemoryMessageRole   = "memory.message.role"
	AttrMemoryMessageLength = "memory.message.length"
	AttrMemoryTotalMessages = "memory.total_messages"
)

// --- Client Attributes ---

const (
	AttrClientPrompt = "client.prompt"

	// AttrClientWaitDuration is the time a request spent waiting on a rate limiter.
	AttrClientWaitDuration = "client.wait_duration"
)

// --- Game Attributes ---

const (
	AttrGameID        = "game.id"
	AttrGameRound     = "game.round"
	AttrGamePhase     = "game.phase"
	AttrGamePlayer    = "game.player"
	AttrGameTarget    = "game.target"
	AttrGameRole      = "game.role"
	AttrGameWinner    = "game.winner"
	AttrGameRawReply  = "game.raw_reply"
	AttrGameTieSize   = "game.tie_size"
	AttrGameAlive     = "game.alive"
	AttrGameImpostors = "game.impostors"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrErrorType         = "error.type"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	SpanClientSendMessage = "client.send_message"
	SpanLLMRequest        = "llm.request"
	SpanGameRun           = "game.run"
)

// --- Event Names ---

const (
	EventLLMRequestStart = "llm.request.start"
	EventLLMRequestEnd   = "llm.request.end"
	EventFirstToken      = "llm.first_token"
	EventMemoryAppend    = "memory.append"
	EventMemoryClear     = "memory.clear"
)

// --- Metric Names ---

const (
	MetricClientRequestCount     = "undercover.client.request.count"
	MetricClientRequestDuration  = "undercover.client.request.duration"
	MetricClientTimeToFirstToken = "undercover.client.ttft"
	MetricClientTokensTotal      = "undercover.client.tokens.total"
	MetricClientTokensPrompt     = "undercover.client.tokens.prompt"
	MetricClientTokensCompletion = "undercover.client.tokens.completion"

	MetricGameRounds       = "undercover.game.rounds"
	MetricGameEliminations = "undercover.game.eliminations"
	MetricGameVoteFallback = "undercover.game.vote.fallback"
	MetricGameResult       = "undercover.game.result"
)
