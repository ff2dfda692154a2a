// Package chat implements the retrieval-augmented answering pipeline:
// classification, context assembly, prompt construction, generation, and
// citation resolution.
package chat

import (
	"context"

	"github.com/google/uuid"

	"propchat/internal/ai"
	"propchat/internal/model"
	"propchat/internal/platform/logger"
)

// apologyResponse is returned verbatim when generation fails after retries.
const apologyResponse = "I apologize, but I encountered an error processing your request."

const casualSystemPrompt = `You are a friendly assistant for property and real-estate documents. The user is making small talk; reply briefly and warmly, and offer to help with their documents.`

// SessionState reads and writes per-session history and uploads.
type SessionState interface {
	LoadHistory(ctx context.Context, sessionID string) ([]model.ConversationTurn, error)
	SaveHistory(ctx context.Context, sessionID string, turns []model.ConversationTurn) error
	ListDocuments(ctx context.Context, sessionID string) ([]model.SessionDocument, error)
}

// ContextRetriever fetches indexed fragments for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string) []model.ContextFragment
}

// Generator produces a completion for an ordered message list.
type Generator interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// TurnPublisher hands a completed turn to the async audit pipeline.
type TurnPublisher interface {
	PublishTurn(ctx context.Context, event model.TurnEvent) error
}

// Result is the answer payload for one chat turn.
type Result struct {
	Response  string         `json:"response"`
	Sources   []model.Source `json:"sources"`
	SessionID string         `json:"session_id"`
	Casual    bool           `json:"casual"`
}

// Orchestrator runs the full answer pipeline for a chat turn. Session store
// failures degrade to an empty session rather than failing the request; only
// generation failure reaches the user, and then as a fixed apology.
type Orchestrator struct {
	store      SessionState
	retriever  ContextRetriever
	llm        Generator
	publisher  TurnPublisher // nil when the audit trail is disabled
	llmCfg     ai.ChatConfig
	docLimit   int
	minContext int
	log        *logger.Logger
}

func NewOrchestrator(store SessionState, retriever ContextRetriever, llm Generator, publisher TurnPublisher, llmCfg ai.ChatConfig, docLimit, minContext int, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		retriever:  retriever,
		llm:        llm,
		publisher:  publisher,
		llmCfg:     llmCfg,
		docLimit:   docLimit,
		minContext: minContext,
		log:        log,
	}
}

// Answer handles one chat turn. An empty sessionID starts a new session.
func (o *Orchestrator) Answer(ctx context.Context, sessionID, query string) Result {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history := o.loadHistory(ctx, sessionID)

	if IsCasualQuery(query) {
		return o.answerCasual(ctx, sessionID, query, history)
	}

	uploads := o.loadUploads(ctx, sessionID)
	retrieved := o.retriever.Retrieve(ctx, query)
	fragments := AssembleContext(uploads, retrieved)
	prompt := BuildPrompt(query, fragments, o.docLimit)

	raw, err := o.llm.Complete(ctx, o.llmCfg, o.buildMessages(prompt.System, history, prompt.User))
	if err != nil {
		o.log.Error("chat generation failed", "session_id", sessionID, "error", err)
		return Result{Response: apologyResponse, Sources: []model.Source{}, SessionID: sessionID}
	}

	response, sources := ResolveCitations(CleanResponse(raw), prompt.Mapping)
	if len(sources) == 0 {
		sources = FallbackSources(fragments, o.minContext)
	}
	if sources == nil {
		sources = []model.Source{}
	}

	o.finishTurn(ctx, sessionID, query, response, history, sources, false)
	return Result{Response: response, Sources: sources, SessionID: sessionID}
}

func (o *Orchestrator) answerCasual(ctx context.Context, sessionID, query string, history []model.ConversationTurn) Result {
	raw, err := o.llm.Complete(ctx, o.llmCfg, o.buildMessages(casualSystemPrompt, history, query))
	if err != nil {
		o.log.Error("casual generation failed", "session_id", sessionID, "error", err)
		return Result{Response: apologyResponse, Sources: []model.Source{}, SessionID: sessionID, Casual: true}
	}

	response := CleanResponse(raw)
	o.finishTurn(ctx, sessionID, query, response, history, nil, true)
	return Result{Response: response, Sources: []model.Source{}, SessionID: sessionID, Casual: true}
}

// buildMessages interleaves prior turns between the system prompt and the
// current user message.
func (o *Orchestrator) buildMessages(system string, history []model.ConversationTurn, user string) []ai.ChatMessage {
	messages := make([]ai.ChatMessage, 0, len(history)*2+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: system})
	for _, turn := range history {
		messages = append(messages,
			ai.ChatMessage{Role: "user", Content: turn.Query},
			ai.ChatMessage{Role: "assistant", Content: turn.Response},
		)
	}
	return append(messages, ai.ChatMessage{Role: "user", Content: user})
}

func (o *Orchestrator) loadHistory(ctx context.Context, sessionID string) []model.ConversationTurn {
	history, err := o.store.LoadHistory(ctx, sessionID)
	if err != nil {
		o.log.Warn("loading history failed, continuing with empty history",
			"session_id", sessionID, "error", err)
		return nil
	}
	return history
}

func (o *Orchestrator) loadUploads(ctx context.Context, sessionID string) []model.SessionDocument {
	uploads, err := o.store.ListDocuments(ctx, sessionID)
	if err != nil {
		o.log.Warn("loading session documents failed, continuing without uploads",
			"session_id", sessionID, "error", err)
		return nil
	}
	return uploads
}

// finishTurn persists the turn to session history and, when enabled, hands
// it to the audit pipeline. Both are best effort.
func (o *Orchestrator) finishTurn(ctx context.Context, sessionID, query, response string, history []model.ConversationTurn, sources []model.Source, casual bool) {
	turns := append(history, model.ConversationTurn{Query: query, Response: response})
	if err := o.store.SaveHistory(ctx, sessionID, turns); err != nil {
		o.log.Warn("saving history failed", "session_id", sessionID, "error", err)
	}

	if o.publisher == nil {
		return
	}
	event := model.TurnEvent{
		SessionID: sessionID,
		Query:     query,
		Answer:    response,
		Sources:   sources,
		Casual:    casual,
	}
	if err := o.publisher.PublishTurn(ctx, event); err != nil {
		o.log.Warn("publishing turn event failed", "session_id", sessionID, "error", err)
	}
}
