package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aprendu/aprendu-backend/internal/dto"
	"github.com/aprendu/aprendu-backend/internal/errs"
	"github.com/aprendu/aprendu-backend/internal/models"
	"github.com/aprendu/aprendu-backend/internal/registry"
	"github.com/aprendu/aprendu-backend/pkg/logger"
)

// savedDashboardStore persists dashboards a user chose to keep.
type savedDashboardStore interface {
	Save(ctx context.Context, uid string, d *models.SavedDashboard) error
	Get(ctx context.Context, uid, id string) (*models.SavedDashboard, error)
	List(ctx context.Context, uid string) ([]*models.SavedDashboard, error)
	Delete(ctx context.Context, uid, id string) error
}

type payloadCipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

type structValidator interface {
	Struct(s any) error
}

type sessionKey struct {
	uid       string
	sessionID string
}

type session struct {
	mu       sync.Mutex
	reg      *registry.Registry
	lastUsed time.Time
}

type dashboardService struct {
	mu           sync.Mutex
	sessions     map[sessionKey]*session
	historyLimit int
	ttl          time.Duration

	store    savedDashboardStore
	cipher   payloadCipher
	validate structValidator
	clockNow func() time.Time
	newID    func() string
}

func NewDashboardService(store savedDashboardStore, cipher payloadCipher, validate structValidator, historyLimit int, ttl time.Duration) *dashboardService {
	return &dashboardService{
		sessions:     make(map[sessionKey]*session),
		historyLimit: historyLimit,
		ttl:          ttl,
		store:        store,
		cipher:       cipher,
		validate:     validate,
		clockNow:     time.Now,
		newID:        func() string { return uuid.New().String() },
	}
}

// --- Session plumbing ---

func (s *dashboardService) session(uid, sessionID string) (*session, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, errs.NewUnauthorizedError("missing user")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, errs.NewValidationError("sessionId is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{uid: uid, sessionID: sessionID}
	sess, ok := s.sessions[key]
	if !ok {
		sess = &session{reg: registry.New(s.historyLimit)}
		s.sessions[key] = sess
	}
	sess.lastUsed = s.clockNow()
	return sess, nil
}

// withRegistry runs fn while holding the session lock and returns the
// resulting state.
func (s *dashboardService) withRegistry(uid, sessionID string, fn func(reg *registry.Registry) error) (dto.DashboardState, error) {
	sess, err := s.session(uid, sessionID)
	if err != nil {
		return dto.DashboardState{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := fn(sess.reg); err != nil {
		return dto.DashboardState{}, err
	}
	return snapshot(sess.reg), nil
}

func snapshot(reg *registry.Registry) dto.DashboardState {
	state := dto.DashboardState{
		Filters:     reg.Filters(),
		HistorySize: reg.HistoryLen(),
	}
	if active, ok := reg.ActiveDashboard(); ok {
		state.Active = &active
	}
	if state.Filters == nil {
		state.Filters = models.Filters{}
	}
	return state
}

func activeOrNotFound(reg *registry.Registry) (models.Dashboard, error) {
	active, ok := reg.ActiveDashboard()
	if !ok {
		return models.Dashboard{}, errs.NewNotFoundError("no active dashboard")
	}
	return active, nil
}

// Sweep evicts sessions idle for longer than the configured TTL and returns
// how many were dropped.
func (s *dashboardService) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, sess := range s.sessions {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.sessions, key)
			evicted++
		}
	}
	return evicted
}

// --- Public service methods ---

func (s *dashboardService) GetState(ctx context.Context, uid, sessionID string) (dto.DashboardState, error) {
	return s.withRegistry(uid, sessionID, func(*registry.Registry) error { return nil })
}

func (s *dashboardService) CreateDashboard(ctx context.Context, uid, sessionID string, d models.Dashboard) (dto.DashboardState, error) {
	log := logger.FromContext(ctx)

	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		d = s.normalize(d, reg.Filters())
		if err := s.validate.Struct(d); err != nil {
			return err
		}
		reg.CreateDashboard(d)
		log.Info("dashboard created", "session_id", sessionID, "dashboard_id", d.ID, "intent", d.Intent, "widgets", len(d.Widgets))
		return nil
	})
}

// normalize fills the fields a generated dashboard commonly omits. Filter
// keys missing from the dashboard are seeded from the session filters.
func (s *dashboardService) normalize(d models.Dashboard, sessionFilters models.Filters) models.Dashboard {
	d = d.Clone()
	if d.ID == "" {
		d.ID = s.newID()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.clockNow().UTC()
	}
	if d.ViewMode == "" {
		d.ViewMode = models.ViewExecutive
	}
	if d.Intent == "" {
		d.Intent = models.IntentGeneralQuery
	}
	for i := range d.Widgets {
		if d.Widgets[i].ID == "" {
			d.Widgets[i].ID = s.newID()
		}
	}
	if len(sessionFilters) > 0 {
		merged := sessionFilters.Merge(d.Filters)
		d.Filters = merged
	}
	return d
}

func (s *dashboardService) ApplyPatch(ctx context.Context, uid, sessionID string, ops []models.PatchOperation) (dto.DashboardState, error) {
	log := logger.FromContext(ctx)

	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		active, err := activeOrNotFound(reg)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			return nil
		}
		patched, err := registry.Patch(active, ops)
		if err != nil {
			return errs.NewValidationError(fmt.Sprintf("patch rejected: %v", err))
		}
		if err := s.validate.Struct(patched); err != nil {
			return err
		}
		reg.ApplyPatch(ops)
		log.Info("dashboard patched", "session_id", sessionID, "dashboard_id", active.ID, "ops", len(ops))
		return nil
	})
}

func (s *dashboardService) UpdateWidget(ctx context.Context, uid, sessionID, widgetID string, partial map[string]any) (dto.DashboardState, error) {
	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		active, err := activeOrNotFound(reg)
		if err != nil {
			return err
		}
		idx := active.WidgetIndex(widgetID)
		if idx < 0 {
			return errs.NewNotFoundError("widget not found")
		}
		if len(partial) == 0 {
			return nil
		}

		patched, err := registry.MergeWidget(active, widgetID, partial)
		if err != nil {
			return errs.NewValidationError(fmt.Sprintf("widget update rejected: %v", err))
		}
		if err := s.validate.Struct(patched); err != nil {
			return err
		}
		reg.UpdateWidget(widgetID, partial)
		return nil
	})
}

func (s *dashboardService) AddWidget(ctx context.Context, uid, sessionID string, w models.Widget) (dto.DashboardState, error) {
	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		active, err := activeOrNotFound(reg)
		if err != nil {
			return err
		}
		if w.ID == "" {
			w.ID = s.newID()
		}
		if active.WidgetIndex(w.ID) >= 0 {
			return errs.NewAlreadyExistsError(fmt.Sprintf("widget %s already exists", w.ID))
		}
		if err := s.validate.Struct(w); err != nil {
			return err
		}
		reg.AddWidget(w)
		return nil
	})
}

func (s *dashboardService) RemoveWidget(ctx context.Context, uid, sessionID, widgetID string) (dto.DashboardState, error) {
	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		active, err := activeOrNotFound(reg)
		if err != nil {
			return err
		}
		if active.WidgetIndex(widgetID) < 0 {
			return errs.NewNotFoundError("widget not found")
		}
		reg.RemoveWidget(widgetID)
		return nil
	})
}

func (s *dashboardService) ClearDashboard(ctx context.Context, uid, sessionID string) (dto.DashboardState, error) {
	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		reg.ClearDashboard()
		return nil
	})
}

func (s *dashboardService) UpdateFilters(ctx context.Context, uid, sessionID string, partial models.Filters) (dto.DashboardState, error) {
	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		reg.UpdateFilters(partial)
		return nil
	})
}

func (s *dashboardService) ToggleViewMode(ctx context.Context, uid, sessionID string) (dto.DashboardState, error) {
	return s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		if _, err := activeOrNotFound(reg); err != nil {
			return err
		}
		reg.ToggleViewMode()
		return nil
	})
}

func (s *dashboardService) AxesSimilarity(ctx context.Context, uid, sessionID string, candidate models.Axes) (float64, error) {
	var score float64
	_, err := s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		score = reg.CalculateAxesSimilarity(candidate)
		return nil
	})
	return score, err
}

func (s *dashboardService) History(ctx context.Context, uid, sessionID string) ([]models.Dashboard, error) {
	var history []models.Dashboard
	_, err := s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		history = reg.History()
		return nil
	})
	if history == nil {
		history = []models.Dashboard{}
	}
	return history, err
}

// --- Saved dashboards ---

func (s *dashboardService) SaveDashboard(ctx context.Context, uid, sessionID, title string) (*models.SavedDashboard, error) {
	var active models.Dashboard
	_, err := s.withRegistry(uid, sessionID, func(reg *registry.Registry) error {
		var err error
		active, err = activeOrNotFound(reg)
		return err
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(active)
	if err != nil {
		return nil, fmt.Errorf("encode dashboard: %w", err)
	}
	payload, err := s.cipher.Encrypt(ctx, string(raw))
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(title) == "" {
		title = active.Title
	}
	saved := &models.SavedDashboard{
		ID:      s.newID(),
		Title:   title,
		Intent:  active.Intent,
		Payload: payload,
	}
	if err := s.store.Save(ctx, uid, saved); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("dashboard saved", "saved_id", saved.ID, "dashboard_id", active.ID)
	return saved, nil
}

func (s *dashboardService) ListSaved(ctx context.Context, uid string) ([]*models.SavedDashboard, error) {
	return s.store.List(ctx, uid)
}

// LoadSaved makes a saved dashboard the active one of the session, pushing
// the current dashboard onto history.
func (s *dashboardService) LoadSaved(ctx context.Context, uid, sessionID, savedID string) (dto.DashboardState, error) {
	saved, err := s.store.Get(ctx, uid, savedID)
	if err != nil {
		return dto.DashboardState{}, err
	}
	raw, err := s.cipher.Decrypt(ctx, saved.Payload)
	if err != nil {
		return dto.DashboardState{}, err
	}
	var d models.Dashboard
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return dto.DashboardState{}, fmt.Errorf("decode saved dashboard %s: %w", savedID, err)
	}
	return s.CreateDashboard(ctx, uid, sessionID, d)
}

func (s *dashboardService) DeleteSaved(ctx context.Context, uid, savedID string) error {
	return s.store.Delete(ctx, uid, savedID)
}
