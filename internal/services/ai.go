package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
	"github.com/aprendu/aprendu-backend/pkg/helpers"
	"github.com/aprendu/aprendu-backend/pkg/logger"
)

const (
	chatHistoryLimit = 8
	replyTemperature = 0.2
	replyMaxTokens   = 4096
)

type llmClient interface {
	Generate(ctx context.Context, req dto.LLMRequest) (dto.LLMResponse, error)
	Stream(ctx context.Context, req dto.LLMRequest, onDelta func(string) error) (dto.LLMResponse, error)
}

type aiStore interface {
	SaveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error
	ListMessages(ctx context.Context, uid, sessionID string, limit int) ([]models.AIMessage, error)
}

// dashboardSessions is the part of the session service the copilot drives.
type dashboardSessions interface {
	GetState(ctx context.Context, uid, sessionID string) (dto.DashboardState, error)
	CreateDashboard(ctx context.Context, uid, sessionID string, d models.Dashboard) (dto.DashboardState, error)
	ApplyPatch(ctx context.Context, uid, sessionID string, ops []models.PatchOperation) (dto.DashboardState, error)
	ClearDashboard(ctx context.Context, uid, sessionID string) (dto.DashboardState, error)
	AxesSimilarity(ctx context.Context, uid, sessionID string, candidate models.Axes) (float64, error)
}

type aiService struct {
	llm        llmClient
	store      aiStore
	dashboards dashboardSessions
	ttl        time.Duration
	clockNow   func() time.Time
}

func NewAIService(llm llmClient, store aiStore, dashboards dashboardSessions, ttl time.Duration) *aiService {
	return &aiService{
		llm:        llm,
		store:      store,
		dashboards: dashboards,
		ttl:        ttl,
		clockNow:   time.Now,
	}
}

func (s *aiService) Query(ctx context.Context, uid string, role models.Role, sessionID, message string) (dto.AIQueryResponse, error) {
	return s.run(ctx, uid, role, sessionID, message, nil)
}

// QueryStream behaves like Query but forwards raw model text to onDelta as it
// is generated.
func (s *aiService) QueryStream(ctx context.Context, uid string, role models.Role, sessionID, message string, onDelta func(string) error) (dto.AIQueryResponse, error) {
	if onDelta == nil {
		onDelta = func(string) error { return nil }
	}
	return s.run(ctx, uid, role, sessionID, message, onDelta)
}

func (s *aiService) run(ctx context.Context, uid string, role models.Role, sessionID, message string, onDelta func(string) error) (dto.AIQueryResponse, error) {
	log := logger.FromContext(ctx)

	if !models.IsRole(role) {
		return dto.AIQueryResponse{}, errs.NewValidationError("unknown role: " + string(role))
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return dto.AIQueryResponse{}, errs.NewValidationError("message is required")
	}

	history, err := s.store.ListMessages(ctx, uid, sessionID, chatHistoryLimit)
	if err != nil {
		return dto.AIQueryResponse{}, err
	}
	state, err := s.dashboards.GetState(ctx, uid, sessionID)
	if err != nil {
		return dto.AIQueryResponse{}, err
	}

	req := dto.LLMRequest{
		System:          systemPrompt(s.clockNow(), role, state),
		Messages:        convertMessages(history, message),
		Temperature:     helpers.Ptr(float32(replyTemperature)),
		MaxOutputTokens: helpers.Ptr(int32(replyMaxTokens)),
	}

	if logger.IsDebugEnabled(ctx) {
		log.Debug("ai prompt", "system", req.System, "turns", len(req.Messages))
	}

	var resp dto.LLMResponse
	if onDelta != nil {
		resp, err = s.llm.Stream(ctx, req, onDelta)
	} else {
		resp, err = s.llm.Generate(ctx, req)
	}
	if err != nil {
		return dto.AIQueryResponse{}, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return dto.AIQueryResponse{}, errs.NewMalformedReplyError("model returned an empty reply")
	}

	reply := parseReply(resp.Text)
	out, err := s.apply(ctx, uid, sessionID, state, reply)
	if err != nil {
		return dto.AIQueryResponse{}, err
	}

	if err := s.saveMessage(ctx, uid, sessionID, models.AIMessage{
		Role:    dto.LLMRoleUser,
		Content: message,
	}); err != nil {
		return dto.AIQueryResponse{}, err
	}
	if out.Answer != "" {
		if err := s.saveMessage(ctx, uid, sessionID, models.AIMessage{
			Role:    dto.LLMRoleAssistant,
			Content: out.Answer,
			Action:  out.Action,
		}); err != nil {
			return dto.AIQueryResponse{}, err
		}
	}

	log.Info("ai query completed", "session_id", sessionID, "role", role, "action", out.Action)
	return out, nil
}

// apply carries the model decision into the session registry. Decisions the
// registry rejects degrade to a plain answer.
func (s *aiService) apply(ctx context.Context, uid, sessionID string, current dto.DashboardState, reply dto.AIReply) (dto.AIQueryResponse, error) {
	log := logger.FromContext(ctx)
	out := dto.AIQueryResponse{Answer: reply.Message, Action: dto.ActionNone}

	action := reply.Action
	if action == dto.ActionUpdate && current.Active == nil && reply.Dashboard != nil {
		action = dto.ActionCreate
	}

	var (
		state dto.DashboardState
		err   error
	)
	switch action {
	case dto.ActionCreate:
		if reply.Dashboard == nil {
			log.Warn("model requested create without a dashboard")
			return out, nil
		}
		similarity, simErr := s.dashboards.AxesSimilarity(ctx, uid, sessionID, reply.Dashboard.Axes)
		if simErr != nil {
			return dto.AIQueryResponse{}, simErr
		}
		state, err = s.dashboards.CreateDashboard(ctx, uid, sessionID, *reply.Dashboard)
		if err == nil {
			out.Similarity = &similarity
		}
	case dto.ActionUpdate:
		if len(reply.Patches) == 0 {
			return out, nil
		}
		state, err = s.dashboards.ApplyPatch(ctx, uid, sessionID, reply.Patches)
	case dto.ActionClear:
		state, err = s.dashboards.ClearDashboard(ctx, uid, sessionID)
	default:
		return out, nil
	}

	if err != nil {
		var vErr *errs.ValidationError
		var nfErr *errs.NotFoundError
		if errors.As(err, &vErr) || errors.As(err, &nfErr) {
			log.Warn("model decision rejected", "action", action, "error", err)
			return out, nil
		}
		return dto.AIQueryResponse{}, err
	}

	out.Action = action
	out.Dashboard = state.Active
	return out, nil
}

// convertMessages maps stored history to LLM turns. Leading assistant turns
// are dropped so the conversation always opens with the user.
func convertMessages(history []models.AIMessage, current string) []dto.LLMMessage {
	out := make([]dto.LLMMessage, 0, len(history)+1)
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case dto.LLMRoleUser:
			out = append(out, dto.LLMMessage{Role: dto.LLMRoleUser, Content: msg.Content})
		case dto.LLMRoleAssistant:
			if len(out) == 0 {
				continue
			}
			out = append(out, dto.LLMMessage{Role: dto.LLMRoleAssistant, Content: msg.Content})
		}
	}
	return append(out, dto.LLMMessage{Role: dto.LLMRoleUser, Content: current})
}

func (s *aiService) saveMessage(ctx context.Context, uid, sessionID string, msg models.AIMessage) error {
	now := s.clockNow()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if s.ttl > 0 {
		msg.ExpiresAt = now.Add(s.ttl)
	}
	return s.store.SaveMessage(ctx, uid, sessionID, msg)
}

var roleScopes = map[models.Role]string{
	models.RoleStudent:         "The user is a student. Only discuss their own grades, attendance and activities.",
	models.RoleTeacher:         "The user is a teacher. Focus on their classes, students, grades and attendance.",
	models.RoleCoordinator:     "The user is a pedagogical coordinator. Focus on classes, teachers and learning outcomes across their school.",
	models.RoleDirector:        "The user is a school director. Focus on school-wide performance, compliance and operations.",
	models.RoleSecretary:       "The user is a school secretary. Focus on enrolment, documents and administrative deadlines.",
	models.RoleRegionalManager: "The user is a regional manager. Focus on comparisons across schools and regions.",
}

type widgetSummary struct {
	Index int               `json:"index"`
	ID    string            `json:"id"`
	Type  models.WidgetType `json:"type"`
	Title string            `json:"title"`
}

type dashboardSummary struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Intent   models.Intent   `json:"intent"`
	ViewMode models.ViewMode `json:"viewMode"`
	Filters  models.Filters  `json:"filters,omitempty"`
	Axes     models.Axes     `json:"axes"`
	Widgets  []widgetSummary `json:"widgets"`
}

func summarizeDashboard(d *models.Dashboard) string {
	if d == nil {
		return "none"
	}
	summary := dashboardSummary{
		ID:       d.ID,
		Title:    d.Title,
		Intent:   d.Intent,
		ViewMode: d.ViewMode,
		Filters:  d.Filters,
		Axes:     d.Axes,
		Widgets:  make([]widgetSummary, 0, len(d.Widgets)),
	}
	for i, w := range d.Widgets {
		summary.Widgets = append(summary.Widgets, widgetSummary{Index: i, ID: w.ID, Type: w.Type, Title: w.Title})
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return "none"
	}
	return string(raw)
}

func systemPrompt(now time.Time, role models.Role, state dto.DashboardState) string {
	var b strings.Builder
	b.WriteString("You are Aprendu's analytics copilot for school management. ")
	b.WriteString(roleScopes[role])
	b.WriteString(" Answer in the user's language. Today is " + now.Format("2006-01-02") + ".\n\n")

	b.WriteString("Reply with a single JSON object and nothing else:\n")
	b.WriteString(`{"action":"create|update|clear|none","message":"markdown shown to the user","dashboard":{...},"patches":[...]}` + "\n")
	b.WriteString("- create: build a new dashboard in \"dashboard\" when the subject changes.\n")
	b.WriteString("- update: refine the active dashboard with RFC 6902 \"patches\" (add, replace, remove) addressed by widget index, e.g. /widgets/0/title.\n")
	b.WriteString("- clear: dismiss the active dashboard.\n")
	b.WriteString("- none: just answer.\n")
	b.WriteString("Plain markdown is accepted when no dashboard change is needed.\n\n")

	b.WriteString("Dashboard fields: id, title, subtitle, intent (")
	intents := make([]string, len(models.Intents))
	for i, intent := range models.Intents {
		intents[i] = string(intent)
	}
	b.WriteString(strings.Join(intents, ", "))
	b.WriteString("), viewMode (executive, operational), filters, axes {entity, time, metric, region}, widgets.\n")
	b.WriteString("Widget types:\n")
	for _, info := range dto.WidgetCatalog() {
		b.WriteString("- " + string(info.Type) + " (data." + string(info.Shape) + "): " + info.Description + "\n")
	}
	b.WriteString("Never invent figures that were not provided by the user or the current dashboard.\n\n")

	b.WriteString("Active dashboard: " + summarizeDashboard(state.Active) + "\n")
	if len(state.Filters) > 0 {
		raw, _ := json.Marshal(state.Filters)
		b.WriteString("Session filters: " + string(raw) + "\n")
	}
	return b.String()
}
