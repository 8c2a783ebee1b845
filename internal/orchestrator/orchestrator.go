// ABOUTME: Orchestrator drives one turn: validate, persist, route, execute, generate.
// ABOUTME: The user message is recorded before generation so history survives failures.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strandlabs/strand/internal/convctx"
	"github.com/strandlabs/strand/internal/intent"
	"github.com/strandlabs/strand/internal/store"
	"github.com/strandlabs/strand/internal/textgen"
	"github.com/strandlabs/strand/internal/tool"
)

// MaxInputLength bounds user input size.
const MaxInputLength = 10000

// Generation defaults applied when the request leaves them zero.
const (
	DefaultMaxTokens   = 512
	DefaultTemperature = 0.7
)

// stopSequences end generation before the model hallucinates the next turn.
var stopSequences = []string{"Human:", "## Tool Results:", "## Additional Context:"}

// Request is one user turn.
type Request struct {
	UserInput      string
	ConversationID string // empty starts a new conversation
	Temperature    float64
	MaxTokens      int
}

// Response is the orchestrator's reply. Streaming emits several partial
// responses followed by exactly one with IsFinal set.
type Response struct {
	Content        string
	ConversationID string
	Success        bool
	Error          string
	ToolsUsed      []string
	ProcessingTime time.Duration
	IsPartial      bool
	IsFinal        bool
}

// Orchestrator coordinates the store, context manager, intent router, tool
// registry, and text generator for conversational turns. Requests on
// different conversations run fully concurrently; turns on the same
// conversation serialize their context read-modify-write.
type Orchestrator struct {
	store        store.Store
	contexts     *convctx.Manager
	router       *intent.Router
	registry     *tool.Registry
	generator    textgen.Generator
	systemPrompt string
	maxTokens    int
	temperature  float64
	logger       *slog.Logger
	now          func() time.Time

	locks *keyedMutex
	stats *perfStats
}

// Config contains the orchestrator's collaborators and tuning.
type Config struct {
	Store        store.Store
	Contexts     *convctx.Manager
	Router       *intent.Router
	Registry     *tool.Registry
	Generator    textgen.Generator
	SystemPrompt string // defaultSystemPrompt if empty
	MaxTokens    int
	Temperature  float64
	Logger       *slog.Logger
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}

	return &Orchestrator{
		store:        cfg.Store,
		contexts:     cfg.Contexts,
		router:       cfg.Router,
		registry:     cfg.Registry,
		generator:    cfg.Generator,
		systemPrompt: systemPrompt,
		maxTokens:    maxTokens,
		temperature:  temperature,
		logger:       logger.With("component", "orchestrator"),
		now:          time.Now,
		locks:        newKeyedMutex(),
		stats:        newPerfStats(),
	}
}

// Handle processes one turn synchronously. Failures come back as a Response
// with Success false; the error return is reserved for context cancellation.
func (o *Orchestrator) Handle(ctx context.Context, req Request) (*Response, error) {
	started := o.now()

	if msg, ok := validate(req); !ok {
		o.stats.record(o.now().Sub(started), false, nil)
		return &Response{Success: false, Error: msg, IsFinal: true}, nil
	}

	turn, err := o.beginTurn(ctx, req)
	if err != nil {
		o.stats.record(o.now().Sub(started), false, nil)
		return &Response{Success: false, Error: err.Error(), IsFinal: true}, nil
	}

	prompt := o.assemblePrompt(turn)

	content, err := o.generator.Generate(ctx, prompt, o.options(req))
	if err != nil {
		o.logger.Error("generation failed",
			"conversation_id", turn.conversationID,
			"error", err,
		)
		elapsed := o.now().Sub(started)
		o.stats.record(elapsed, false, turn.toolsUsed)
		return &Response{
			ConversationID: turn.conversationID,
			Success:        false,
			Error:          fmt.Sprintf("generation failed: %v", err),
			ToolsUsed:      turn.toolsUsed,
			ProcessingTime: elapsed,
			IsFinal:        true,
		}, nil
	}
	content = strings.TrimSpace(content)

	elapsed := o.now().Sub(started)
	resp := &Response{
		Content:        content,
		ConversationID: turn.conversationID,
		Success:        true,
		ToolsUsed:      turn.toolsUsed,
		ProcessingTime: elapsed,
		IsFinal:        true,
	}

	// Durability failure must not discard a successful generation.
	if err := o.persistAssistant(ctx, turn, content, elapsed, false); err != nil {
		o.logger.Error("failed to persist assistant message",
			"conversation_id", turn.conversationID,
			"error", err,
		)
		resp.Error = fmt.Sprintf("response not persisted: %v", err)
	}

	o.stats.record(elapsed, true, turn.toolsUsed)
	return resp, nil
}

// HandleStream processes one turn, streaming partial responses as tokens
// arrive. Tools always complete before generation starts. Cancelling the
// context stops the stream and persists whatever content was produced,
// tagged partial.
func (o *Orchestrator) HandleStream(ctx context.Context, req Request) (<-chan *Response, error) {
	started := o.now()

	if msg, ok := validate(req); !ok {
		o.stats.record(o.now().Sub(started), false, nil)
		return nil, fmt.Errorf("invalid request: %s", msg)
	}

	ch := make(chan *Response, 16)
	go func() {
		defer close(ch)
		o.streamTurn(ctx, req, started, ch)
	}()
	return ch, nil
}

// streamTurn runs the streaming turn body, emitting responses on ch.
func (o *Orchestrator) streamTurn(ctx context.Context, req Request, started time.Time, ch chan<- *Response) {
	fail := func(conversationID, msg string) {
		o.stats.record(o.now().Sub(started), false, nil)
		emit(ctx, ch, &Response{
			ConversationID: conversationID,
			Success:        false,
			Error:          msg,
			ProcessingTime: o.now().Sub(started),
			IsFinal:        true,
		})
	}

	turn, err := o.beginTurn(ctx, req)
	if err != nil {
		fail(req.ConversationID, err.Error())
		return
	}

	if len(turn.toolsUsed) > 0 {
		emit(ctx, ch, &Response{
			Content:        "Using tools: " + strings.Join(turn.toolsUsed, ", "),
			ConversationID: turn.conversationID,
			Success:        true,
			ToolsUsed:      turn.toolsUsed,
			IsPartial:      true,
		})
	}

	prompt := o.assemblePrompt(turn)

	stream, err := o.generator.GenerateStream(ctx, prompt, o.options(req))
	if err != nil {
		o.logger.Error("stream open failed",
			"conversation_id", turn.conversationID,
			"error", err,
		)
		fail(turn.conversationID, fmt.Sprintf("generation failed: %v", err))
		return
	}

	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			o.persistPartial(turn, sb.String(), o.now().Sub(started))
			return
		case chunk, open := <-stream:
			if !open {
				o.finishStream(ctx, turn, sb.String(), started, ch)
				return
			}
			if chunk.Err != nil {
				o.logger.Error("stream failed mid-generation",
					"conversation_id", turn.conversationID,
					"error", chunk.Err,
				)
				fail(turn.conversationID, fmt.Sprintf("generation failed: %v", chunk.Err))
				return
			}
			sb.WriteString(chunk.Content)
			emit(ctx, ch, &Response{
				Content:        chunk.Content,
				ConversationID: turn.conversationID,
				Success:        true,
				IsPartial:      true,
			})
		}
	}
}

// finishStream persists the full transcript and emits the terminal response.
func (o *Orchestrator) finishStream(ctx context.Context, turn *turnState, content string, started time.Time, ch chan<- *Response) {
	content = strings.TrimSpace(content)
	elapsed := o.now().Sub(started)

	resp := &Response{
		ConversationID: turn.conversationID,
		Success:        true,
		ToolsUsed:      turn.toolsUsed,
		ProcessingTime: elapsed,
		IsFinal:        true,
	}
	if err := o.persistAssistant(ctx, turn, content, elapsed, false); err != nil {
		o.logger.Error("failed to persist streamed response",
			"conversation_id", turn.conversationID,
			"error", err,
		)
		resp.Error = fmt.Sprintf("response not persisted: %v", err)
	}

	o.stats.record(elapsed, true, turn.toolsUsed)
	emit(ctx, ch, resp)
}

// persistPartial saves a cancelled stream's transcript tagged partial.
// Uses a fresh context because the request's is already cancelled.
func (o *Orchestrator) persistPartial(turn *turnState, content string, elapsed time.Duration) {
	o.stats.record(elapsed, false, turn.toolsUsed)
	if strings.TrimSpace(content) == "" {
		return
	}

	persistCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := o.persistAssistant(persistCtx, turn, content, elapsed, true); err != nil {
		o.logger.Error("failed to persist partial response",
			"conversation_id", turn.conversationID,
			"error", err,
		)
		return
	}
	o.logger.Info("persisted partial response after cancellation",
		"conversation_id", turn.conversationID,
		"content_length", len(content),
	)
}

// turnState carries everything assembled before generation.
type turnState struct {
	conversationID string
	history        []store.Message
	outcomes       []toolOutcome
	toolsUsed      []string
}

// beginTurn resolves the conversation, records the user message, loads
// context, routes intent, and runs the matched tools. The per-conversation
// lock covers the context read-modify-write only; tool execution and
// generation happen outside it.
func (o *Orchestrator) beginTurn(ctx context.Context, req Request) (*turnState, error) {
	unlock := o.locks.lock(req.ConversationID)
	conversationID, history, err := o.recordUserMessage(ctx, req)
	unlock()
	if err != nil {
		return nil, err
	}

	invocations := o.router.Decide(req.UserInput)
	outcomes := o.executeTools(ctx, invocations)

	toolsUsed := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		toolsUsed = append(toolsUsed, outcome.name)
	}

	return &turnState{
		conversationID: conversationID,
		history:        history,
		outcomes:       outcomes,
		toolsUsed:      toolsUsed,
	}, nil
}

// recordUserMessage resolves or creates the conversation and persists the
// user message before anything else happens. History is the source of truth,
// so the turn must leave a record even if generation fails later.
func (o *Orchestrator) recordUserMessage(ctx context.Context, req Request) (string, []store.Message, error) {
	conv, err := o.ensureConversation(ctx, req.ConversationID)
	if err != nil {
		return "", nil, err
	}

	// Load the window before persisting so a cache miss never reads the
	// new message back and double-counts it.
	cc, err := o.contexts.GetContext(ctx, conv.ID)
	if err != nil {
		return "", nil, err
	}

	userMsg := store.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		Role:           store.RoleUser,
		Content:        req.UserInput,
		Timestamp:      o.now(),
	}
	if err := o.store.AppendMessage(ctx, &userMsg); err != nil {
		return "", nil, fmt.Errorf("failed to record user message: %w", err)
	}
	o.contexts.AppendMessage(conv.ID, userMsg)

	history := append(cc.Messages, userMsg)
	return conv.ID, history, nil
}

// ensureConversation loads the requested conversation or creates a fresh one.
// An unknown ID starts a new conversation rather than failing the turn.
func (o *Orchestrator) ensureConversation(ctx context.Context, id string) (*store.Conversation, error) {
	if id != "" {
		conv, err := o.store.GetConversation(ctx, id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
	}

	now := o.now()
	conv := &store.Conversation{
		ID:        uuid.New().String(),
		Title:     "Chat " + now.Format("2006-01-02 15:04"),
		Status:    store.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.store.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	o.logger.Info("conversation started", "conversation_id", conv.ID, "title", conv.Title)
	return conv, nil
}

// persistAssistant records the assistant message and bumps the conversation's
// turn bookkeeping. Holds the conversation lock so appends stay ordered.
func (o *Orchestrator) persistAssistant(ctx context.Context, turn *turnState, content string, elapsed time.Duration, partial bool) error {
	unlock := o.locks.lock(turn.conversationID)
	defer unlock()

	msg := store.Message{
		ID:             uuid.New().String(),
		ConversationID: turn.conversationID,
		Role:           store.RoleAssistant,
		Content:        content,
		Timestamp:      o.now(),
		ToolsUsed:      turn.toolsUsed,
		ProcessingTime: elapsed,
		Partial:        partial,
	}
	if err := o.store.AppendMessage(ctx, &msg); err != nil {
		return fmt.Errorf("failed to record assistant message: %w", err)
	}
	o.contexts.AppendMessage(turn.conversationID, msg)

	conv, err := o.store.GetConversation(ctx, turn.conversationID)
	if err != nil {
		return fmt.Errorf("failed to load conversation for update: %w", err)
	}
	conv.UpdatedAt = o.now()
	conv.MessageCount += 2 // user + assistant
	if err := o.store.UpdateConversation(ctx, conv); err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	return nil
}

// options merges per-request generation tuning with orchestrator defaults.
func (o *Orchestrator) options(req Request) textgen.Options {
	opts := textgen.Options{
		MaxTokens:     o.maxTokens,
		Temperature:   o.temperature,
		StopSequences: stopSequences,
	}
	if req.MaxTokens > 0 {
		opts.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		opts.Temperature = req.Temperature
	}
	return opts
}

// validate rejects bad input before any side effect.
func validate(req Request) (string, bool) {
	if strings.TrimSpace(req.UserInput) == "" {
		return "input is empty", false
	}
	if len(req.UserInput) > MaxInputLength {
		return fmt.Sprintf("input exceeds %d characters", MaxInputLength), false
	}
	return "", true
}

// emit sends a response unless the consumer is gone.
func emit(ctx context.Context, ch chan<- *Response, resp *Response) {
	select {
	case ch <- resp:
	case <-ctx.Done():
	}
}
