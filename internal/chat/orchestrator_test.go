package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"propchat/internal/ai"
	"propchat/internal/model"
	"propchat/internal/platform/logger"
)

type fakeStore struct {
	history   []model.ConversationTurn
	documents []model.SessionDocument
	loadErr   error
	saved     []model.ConversationTurn
	savedID   string
}

func (f *fakeStore) LoadHistory(ctx context.Context, sessionID string) ([]model.ConversationTurn, error) {
	return f.history, f.loadErr
}

func (f *fakeStore) SaveHistory(ctx context.Context, sessionID string, turns []model.ConversationTurn) error {
	f.savedID = sessionID
	f.saved = turns
	return nil
}

func (f *fakeStore) ListDocuments(ctx context.Context, sessionID string) ([]model.SessionDocument, error) {
	return f.documents, f.loadErr
}

type fakeRetriever struct {
	fragments []model.ContextFragment
	called    bool
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string) []model.ContextFragment {
	f.called = true
	return f.fragments
}

type fakeLLM struct {
	response string
	err      error
	messages []ai.ChatMessage
}

func (f *fakeLLM) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	f.messages = messages
	return f.response, f.err
}

type fakePublisher struct {
	events []model.TurnEvent
}

func (f *fakePublisher) PublishTurn(ctx context.Context, event model.TurnEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestOrchestrator(store *fakeStore, retriever *fakeRetriever, llm *fakeLLM, publisher TurnPublisher) *Orchestrator {
	return NewOrchestrator(store, retriever, llm, publisher, ai.ChatConfig{Model: "test"}, 10000, 5, logger.NewNop())
}

func TestAnswerCasualSkipsRetrieval(t *testing.T) {
	store := &fakeStore{}
	retriever := &fakeRetriever{}
	llm := &fakeLLM{response: "Hello! How can I help with your documents?"}
	o := newTestOrchestrator(store, retriever, llm, nil)

	result := o.Answer(context.Background(), "s1", "hi")

	if retriever.called {
		t.Errorf("retriever must not run for casual queries")
	}
	if !result.Casual {
		t.Errorf("result.Casual = false, want true")
	}
	if len(result.Sources) != 0 {
		t.Errorf("result.Sources = %v, want empty", result.Sources)
	}
	if result.SessionID != "s1" {
		t.Errorf("result.SessionID = %q, want s1", result.SessionID)
	}
	if len(store.saved) != 1 || store.saved[0].Query != "hi" {
		t.Errorf("casual turn not saved to history: %v", store.saved)
	}
}

func TestAnswerAssignsSessionID(t *testing.T) {
	store := &fakeStore{}
	llm := &fakeLLM{response: "answer"}
	o := newTestOrchestrator(store, &fakeRetriever{}, llm, nil)

	result := o.Answer(context.Background(), "", "what is the notice period in the lease")

	if result.SessionID == "" {
		t.Fatalf("expected a generated session id")
	}
	if store.savedID != result.SessionID {
		t.Errorf("history saved under %q, result says %q", store.savedID, result.SessionID)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	store := &fakeStore{}
	llm := &fakeLLM{err: errors.New("upstream down")}
	o := newTestOrchestrator(store, &fakeRetriever{}, llm, nil)

	result := o.Answer(context.Background(), "s1", "what is the notice period in the lease")

	if result.Response != apologyResponse {
		t.Errorf("result.Response = %q, want the apology", result.Response)
	}
	if len(result.Sources) != 0 {
		t.Errorf("result.Sources = %v, want empty", result.Sources)
	}
	if result.SessionID != "s1" {
		t.Errorf("result.SessionID = %q, want s1", result.SessionID)
	}
	if store.saved != nil {
		t.Errorf("failed turn must not be written to history")
	}
}

func TestAnswerResolvesCitations(t *testing.T) {
	store := &fakeStore{}
	retriever := &fakeRetriever{fragments: []model.ContextFragment{
		{Content: "chunk", Filename: "lease.pdf", SourceType: model.SourceIndexed, PageNumber: 2},
	}}
	llm := &fakeLLM{response: "The **notice period** is 60 days [1 → Page 2]."}
	publisher := &fakePublisher{}
	o := newTestOrchestrator(store, retriever, llm, publisher)

	result := o.Answer(context.Background(), "s1", "what is the notice period in the lease")

	if result.Response != "The notice period is 60 days [1 → Page 2]." {
		t.Errorf("result.Response = %q", result.Response)
	}
	if len(result.Sources) != 1 || result.Sources[0].Filename != "📁 lease.pdf" {
		t.Errorf("result.Sources = %+v", result.Sources)
	}
	if len(publisher.events) != 1 || publisher.events[0].SessionID != "s1" {
		t.Errorf("publisher.events = %+v", publisher.events)
	}
	if publisher.events[0].Casual {
		t.Errorf("document turn published as casual")
	}
}

func TestAnswerFallbackSources(t *testing.T) {
	fragments := make([]model.ContextFragment, 0, 6)
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf", "f.pdf"} {
		fragments = append(fragments, model.ContextFragment{
			Content: "chunk", Filename: name, SourceType: model.SourceIndexed, PageNumber: 1,
		})
	}
	retriever := &fakeRetriever{fragments: fragments}
	llm := &fakeLLM{response: "An answer with no citations at all."}
	o := newTestOrchestrator(&fakeStore{}, retriever, llm, nil)

	result := o.Answer(context.Background(), "s1", "summarize the portfolio documents")

	if len(result.Sources) != 6 {
		t.Fatalf("len(result.Sources) = %d, want one synthesized per context file", len(result.Sources))
	}
	if result.Sources[0].Filename != "📁 a.pdf" || result.Sources[5].Filename != "📁 f.pdf" {
		t.Errorf("sources = %+v", result.Sources)
	}
}

func TestAnswerInterleavesHistory(t *testing.T) {
	store := &fakeStore{history: []model.ConversationTurn{
		{Query: "first question", Response: "first answer"},
	}}
	llm := &fakeLLM{response: "second answer"}
	o := newTestOrchestrator(store, &fakeRetriever{}, llm, nil)

	o.Answer(context.Background(), "s1", "what changed since the first amendment")

	if len(llm.messages) != 4 {
		t.Fatalf("len(messages) = %d, want system + 2 history + user", len(llm.messages))
	}
	if llm.messages[0].Role != "system" {
		t.Errorf("messages[0].Role = %q", llm.messages[0].Role)
	}
	if llm.messages[1].Role != "user" || llm.messages[1].Content != "first question" {
		t.Errorf("messages[1] = %+v", llm.messages[1])
	}
	if llm.messages[2].Role != "assistant" || llm.messages[2].Content != "first answer" {
		t.Errorf("messages[2] = %+v", llm.messages[2])
	}
	if llm.messages[3].Role != "user" || !strings.Contains(llm.messages[3].Content, "what changed since the first amendment") {
		t.Errorf("messages[3] = %+v", llm.messages[3])
	}
	if len(store.saved) != 2 {
		t.Errorf("len(store.saved) = %d, want prior turn plus new turn", len(store.saved))
	}
}

func TestAnswerStoreFailureDegradesToEmptySession(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("redis down")}
	llm := &fakeLLM{response: "answer"}
	o := newTestOrchestrator(store, &fakeRetriever{}, llm, nil)

	result := o.Answer(context.Background(), "s1", "what is the notice period in the lease")

	if result.Response != "answer" {
		t.Errorf("result.Response = %q, want the answer despite store failure", result.Response)
	}
}
