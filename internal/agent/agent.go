package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	openai "github.com/sashabaranov/go-openai"

	"github.com/teemow/todoagent/internal/apperrors"
	"github.com/teemow/todoagent/internal/instrumentation"
	"github.com/teemow/todoagent/internal/logging"
)

// MaxIterations is the default ceiling on model round-trips per run.
const MaxIterations = 4

// FallbackMessage is returned when the ceiling is reached without a final
// answer.
const FallbackMessage = "No se pudo completar la operación"

// ChatModel is the subset of *openai.Client the loop needs
type ChatModel interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Dispatcher executes tools by name and returns their JSON result
type Dispatcher interface {
	Tools() []mcp.Tool
	Dispatch(ctx context.Context, name, arguments string) string
}

// Agent drives conversations against a chat model
type Agent struct {
	model         ChatModel
	modelName     string
	tools         Dispatcher
	defs          []openai.Tool
	maxIterations int

	now     func() time.Time
	loc     *time.Location
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// Option configures an Agent
type Option func(*Agent)

// WithMaxIterations overrides MaxIterations.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

// WithClock sets the time source used for the system prompt.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// WithLocation sets the zone the system prompt reports.
func WithLocation(loc *time.Location) Option {
	return func(a *Agent) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// New creates an agent calling modelName through model with the given tools.
func New(model ChatModel, modelName string, tools Dispatcher, opts ...Option) *Agent {
	a := &Agent{
		model:         model,
		modelName:     modelName,
		tools:         tools,
		defs:          OpenAITools(tools.Tools()),
		maxIterations: MaxIterations,
		now:           time.Now,
		loc:           time.Local,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result is the outcome of one run
type Result struct {
	// Message is the final assistant text, or FallbackMessage
	Message string
	// Transcript holds every message the run added after the caller's
	// conversation: assistant tool-call turns, tool results and the final
	// assistant answer.
	Transcript []openai.ChatCompletionMessage
	Iterations int
	Fallback   bool
}

// Run continues conversation (oldest first, ending with the user's latest
// message) until the model answers or the iteration ceiling is reached.
// Tool calls are dispatched sequentially in the order the model listed them.
func (a *Agent) Run(ctx context.Context, conversation []openai.ChatCompletionMessage) (result *Result, err error) {
	a.metrics.IncrementActiveAgentRuns(ctx)
	defer a.metrics.DecrementActiveAgentRuns(ctx)

	result = &Result{}
	defer func() {
		outcome := instrumentation.AgentResultCompleted
		switch {
		case err != nil:
			outcome = instrumentation.AgentResultError
		case result.Fallback:
			outcome = instrumentation.AgentResultFallback
		}
		a.metrics.RecordAgentRun(ctx, outcome, result.Iterations)
	}()

	convo := make([]openai.ChatCompletionMessage, 0, len(conversation)+1)
	convo = append(convo, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(a.now(), a.loc),
	})
	convo = append(convo, conversation...)

	for i := 1; i <= a.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Iterations = i

		msg, err := a.complete(ctx, convo, i)
		if err != nil {
			return result, err
		}

		if len(msg.ToolCalls) == 0 {
			final := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
			result.Transcript = append(result.Transcript, final)
			result.Message = msg.Content
			return result, nil
		}

		turn := openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   msg.Content,
			ToolCalls: msg.ToolCalls,
		}
		convo = append(convo, turn)
		result.Transcript = append(result.Transcript, turn)

		for _, tc := range msg.ToolCalls {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			a.logger.Debug("dispatching tool call", logging.Tool(tc.Function.Name), slog.Int("iteration", i))

			reply := openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    a.tools.Dispatch(ctx, tc.Function.Name, tc.Function.Arguments),
				ToolCallID: tc.ID,
			}
			convo = append(convo, reply)
			result.Transcript = append(result.Transcript, reply)
		}
	}

	a.logger.Warn("agent reached iteration ceiling", slog.Int("iterations", a.maxIterations))
	result.Fallback = true
	result.Message = FallbackMessage
	result.Transcript = append(result.Transcript, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleAssistant,
		Content: FallbackMessage,
	})
	return result, nil
}

// complete performs one model round-trip and returns the first choice.
func (a *Agent) complete(ctx context.Context, convo []openai.ChatCompletionMessage, iteration int) (openai.ChatCompletionMessage, error) {
	start := time.Now()
	ctx, span := instrumentation.StartLLMSpan(ctx, a.modelName, iteration)
	defer span.End()

	resp, err := a.model.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:      a.modelName,
		Messages:   convo,
		Tools:      a.defs,
		ToolChoice: "auto",
	})
	if err == nil && len(resp.Choices) == 0 {
		err = fmt.Errorf("model returned no choices")
	}
	if err != nil {
		instrumentation.SetSpanError(span, err)
		a.metrics.RecordLLMRequest(ctx, a.modelName, instrumentation.StatusError, time.Since(start))
		a.logger.Error("chat completion failed", logging.Err(err), slog.Int("iteration", iteration))
		return openai.ChatCompletionMessage{}, apperrors.Upstream("Error al contactar el modelo de lenguaje", err)
	}

	instrumentation.SetSpanSuccess(span)
	a.metrics.RecordLLMRequest(ctx, a.modelName, instrumentation.StatusSuccess, time.Since(start))
	return resp.Choices[0].Message, nil
}
