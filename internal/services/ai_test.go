package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
)

type fakeLLMClient struct {
	responses []dto.LLMResponse
	err       error
	requests  []dto.LLMRequest
	streamed  bool
}

func (f *fakeLLMClient) next(req dto.LLMRequest) (dto.LLMResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return dto.LLMResponse{}, f.err
	}
	if len(f.responses) == 0 {
		return dto.LLMResponse{}, errors.New("no responses configured")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeLLMClient) Generate(_ context.Context, req dto.LLMRequest) (dto.LLMResponse, error) {
	return f.next(req)
}

func (f *fakeLLMClient) Stream(_ context.Context, req dto.LLMRequest, onDelta func(string) error) (dto.LLMResponse, error) {
	f.streamed = true
	resp, err := f.next(req)
	if err != nil {
		return resp, err
	}
	// split in two chunks like a real stream would
	half := len(resp.Text) / 2
	for _, chunk := range []string{resp.Text[:half], resp.Text[half:]} {
		if err := onDelta(chunk); err != nil {
			return dto.LLMResponse{}, err
		}
	}
	return resp, nil
}

type fakeAIStore struct {
	messages []models.AIMessage
	listErr  error
}

func (f *fakeAIStore) SaveMessage(_ context.Context, _, _ string, msg models.AIMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeAIStore) ListMessages(_ context.Context, _, _ string, limit int) ([]models.AIMessage, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit > 0 && len(f.messages) > limit {
		return append([]models.AIMessage(nil), f.messages[len(f.messages)-limit:]...), nil
	}
	return append([]models.AIMessage(nil), f.messages...), nil
}

const createReply = "```json\n" + `{
  "action": "create",
  "message": "Montei o ranking de frequência.",
  "dashboard": {
    "title": "Frequência por escola",
    "intent": "performance_comparison",
    "axes": {"entity": "school", "metric": "attendance"},
    "widgets": [{"id": "w1", "type": "RankedTable", "title": "Ranking", "data": {"rows": [{"escola": "EE Norte", "freq": 92}]}}]
  }
}` + "\n```"

func newTestAIService(llm *fakeLLMClient, store *fakeAIStore) (*aiService, *dashboardService) {
	dashboards := newTestDashboardService(newFakeSavedStore())
	svc := NewAIService(llm, store, dashboards, 24*time.Hour)
	svc.clockNow = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return svc, dashboards
}

func TestAIQueryCreatesDashboard(t *testing.T) {
	llm := &fakeLLMClient{responses: []dto.LLMResponse{{Text: createReply}}}
	store := &fakeAIStore{}
	svc, dashboards := newTestAIService(llm, store)
	ctx := context.Background()

	resp, err := svc.Query(ctx, "u1", models.RoleDirector, "s1", "Mostre a frequência por escola")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if resp.Action != dto.ActionCreate || resp.Answer != "Montei o ranking de frequência." {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Dashboard == nil || resp.Dashboard.ID == "" || resp.Dashboard.ViewMode != models.ViewExecutive {
		t.Fatalf("dashboard not normalised: %+v", resp.Dashboard)
	}
	if resp.Similarity == nil || *resp.Similarity != 0 {
		t.Errorf("expected similarity 0 without an active dashboard, got %v", resp.Similarity)
	}

	state, _ := dashboards.GetState(ctx, "u1", "s1")
	if state.Active == nil || state.Active.Title != "Frequência por escola" {
		t.Errorf("registry not updated: %+v", state.Active)
	}

	if len(store.messages) != 2 {
		t.Fatalf("expected 2 saved messages, got %d", len(store.messages))
	}
	if store.messages[1].Action != dto.ActionCreate || store.messages[1].ExpiresAt.IsZero() {
		t.Errorf("unexpected assistant message: %+v", store.messages[1])
	}

	prompt := llm.requests[0].System
	for _, want := range []string{"school director", "RankedTable", "Active dashboard: none"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestAIQueryReportsSimilarityBeforeCreate(t *testing.T) {
	second := strings.Replace(createReply, `"metric": "attendance"`, `"metric": "grade"`, 1)
	llm := &fakeLLMClient{responses: []dto.LLMResponse{{Text: createReply}, {Text: second}}}
	svc, dashboards := newTestAIService(llm, &fakeAIStore{})
	ctx := context.Background()

	if _, err := svc.Query(ctx, "u1", models.RoleDirector, "s1", "frequência"); err != nil {
		t.Fatalf("Query error: %v", err)
	}
	resp, err := svc.Query(ctx, "u1", models.RoleDirector, "s1", "e as notas?")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if resp.Similarity == nil || *resp.Similarity != 0.5 {
		t.Fatalf("similarity = %v, want 0.5", resp.Similarity)
	}
	state, _ := dashboards.GetState(ctx, "u1", "s1")
	if state.HistorySize != 1 {
		t.Errorf("HistorySize = %d", state.HistorySize)
	}

	// the second request carries the first exchange and the active dashboard
	req := llm.requests[1]
	if len(req.Messages) != 3 || req.Messages[1].Role != dto.LLMRoleAssistant {
		t.Errorf("unexpected conversation: %+v", req.Messages)
	}
	if !strings.Contains(req.System, "Frequência por escola") {
		t.Error("system prompt should summarise the active dashboard")
	}
}

func TestAIQueryUpdateAppliesPatches(t *testing.T) {
	update := `{"action":"update","message":"Renomeei.","patches":[{"op":"replace","path":"/widgets/0/title","value":"Top 10"}]}`
	llm := &fakeLLMClient{responses: []dto.LLMResponse{{Text: createReply}, {Text: update}}}
	svc, _ := newTestAIService(llm, &fakeAIStore{})
	ctx := context.Background()

	if _, err := svc.Query(ctx, "u1", models.RoleTeacher, "s1", "cria"); err != nil {
		t.Fatalf("Query error: %v", err)
	}
	resp, err := svc.Query(ctx, "u1", models.RoleTeacher, "s1", "renomeia")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if resp.Action != dto.ActionUpdate || resp.Dashboard.Widgets[0].Title != "Top 10" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Similarity != nil {
		t.Error("similarity is only reported for create")
	}
}

func TestAIQueryUpdateWithoutActiveFallsBackToCreate(t *testing.T) {
	reply := strings.Replace(createReply, `"action": "create"`, `"action": "update"`, 1)
	llm := &fakeLLMClient{responses: []dto.LLMResponse{{Text: reply}}}
	svc, _ := newTestAIService(llm, &fakeAIStore{})

	resp, err := svc.Query(context.Background(), "u1", models.RoleCoordinator, "s1", "oi")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if resp.Action != dto.ActionCreate || resp.Dashboard == nil {
		t.Fatalf("expected create fallback, got %+v", resp)
	}
}

func TestAIQueryRejectedDecisionDegradesToAnswer(t *testing.T) {
	bad := `{"action":"update","message":"Tentei.","patches":[{"op":"replace","path":"/widgets/0/type","value":"Gauge"}]}`
	llm := &fakeLLMClient{responses: []dto.LLMResponse{{Text: createReply}, {Text: bad}}}
	svc, dashboards := newTestAIService(llm, &fakeAIStore{})
	ctx := context.Background()

	if _, err := svc.Query(ctx, "u1", models.RoleDirector, "s1", "cria"); err != nil {
		t.Fatalf("Query error: %v", err)
	}
	resp, err := svc.Query(ctx, "u1", models.RoleDirector, "s1", "muda")
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if resp.Action != dto.ActionNone || resp.Answer != "Tentei." || resp.Dashboard != nil {
		t.Fatalf("unexpected response: %+v", resp)
	}
	state, _ := dashboards.GetState(ctx, "u1", "s1")
	if state.Active.Widgets[0].Type != models.WidgetRankedTable {
		t.Error("rejected patch must not change the dashboard")
	}
}

func TestAIQueryClearAndMarkdown(t *testing.T) {
	llm := &fakeLLMClient{responses: []dto.LLMResponse{
		{Text: createReply},
		{Text: `{"action":"clear","message":"Pronto."}`},
		{Text: "A média geral é **7,2**."},
	}}
	svc, _ := newTestAIService(llm, &fakeAIStore{})
	ctx := context.Background()

	if _, err := svc.Query(ctx, "u1", models.RoleDirector, "s1", "cria"); err != nil {
		t.Fatalf("Query error: %v", err)
	}
	resp, err := svc.Query(ctx, "u1", models.RoleDirector, "s1", "limpa")
	if err != nil || resp.Action != dto.ActionClear || resp.Dashboard != nil {
		t.Fatalf("unexpected clear response: %+v (%v)", resp, err)
	}
	resp, err = svc.Query(ctx, "u1", models.RoleDirector, "s1", "média?")
	if err != nil || resp.Action != dto.ActionNone || resp.Answer != "A média geral é **7,2**." {
		t.Fatalf("unexpected markdown response: %+v (%v)", resp, err)
	}
}

func TestAIQueryStreamForwardsDeltas(t *testing.T) {
	llm := &fakeLLMClient{responses: []dto.LLMResponse{{Text: `{"action":"none","message":"Olá!"}`}}}
	svc, _ := newTestAIService(llm, &fakeAIStore{})

	var chunks []string
	resp, err := svc.QueryStream(context.Background(), "u1", models.RoleStudent, "s1", "oi", func(s string) error {
		chunks = append(chunks, s)
		return nil
	})
	if err != nil {
		t.Fatalf("QueryStream error: %v", err)
	}
	if !llm.streamed || len(chunks) != 2 || strings.Join(chunks, "") != `{"action":"none","message":"Olá!"}` {
		t.Errorf("unexpected chunks: %v", chunks)
	}
	if resp.Answer != "Olá!" {
		t.Errorf("Answer = %q", resp.Answer)
	}
}

func TestAIQueryErrors(t *testing.T) {
	ctx := context.Background()

	svc, _ := newTestAIService(&fakeLLMClient{}, &fakeAIStore{})
	_, err := svc.Query(ctx, "u1", "janitor", "s1", "oi")
	assertErrType[*errs.ValidationError](t, err)
	_, err = svc.Query(ctx, "u1", models.RoleTeacher, "s1", "   ")
	assertErrType[*errs.ValidationError](t, err)

	svc, _ = newTestAIService(&fakeLLMClient{responses: []dto.LLMResponse{{Text: "  "}}}, &fakeAIStore{})
	_, err = svc.Query(ctx, "u1", models.RoleTeacher, "s1", "oi")
	assertErrType[*errs.MalformedReplyError](t, err)

	upstream := errs.NewExternalServiceError("vertex", "down", true, nil)
	store := &fakeAIStore{}
	svc, _ = newTestAIService(&fakeLLMClient{err: upstream}, store)
	_, err = svc.Query(ctx, "u1", models.RoleTeacher, "s1", "oi")
	assertErrType[*errs.ExternalServiceError](t, err)
	if len(store.messages) != 0 {
		t.Error("failed queries must not be persisted")
	}
}

func TestConvertMessagesDropsLeadingAssistant(t *testing.T) {
	got := convertMessages([]models.AIMessage{
		{Role: dto.LLMRoleAssistant, Content: "orphan"},
		{Role: dto.LLMRoleUser, Content: "q1"},
		{Role: dto.LLMRoleAssistant, Content: "a1"},
		{Role: "system", Content: "ignored"},
	}, "q2")
	if len(got) != 3 || got[0].Content != "q1" || got[2].Content != "q2" {
		t.Errorf("unexpected conversion: %+v", got)
	}
}
