package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain/model"
)

// newTestLogger creates a silent logger for tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

// --- Mock TextGenerator ---

// mockGen replays scripted responses in call order. Err (if set) fails every
// call instead.
type mockGen struct {
	mu        sync.Mutex
	responses []string
	calls     int
	prompts   []string
	Err       error
}

func (m *mockGen) Name() string { return "mock" }

func (m *mockGen) Generate(_ context.Context, prompt string, _ int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if m.calls >= len(m.responses) {
		return "", errors.New("mock exhausted")
	}
	out := m.responses[m.calls]
	m.calls++
	return out, nil
}

func (m *mockGen) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Mock SessionDirectory ---

type mockSessions struct {
	ctx      model.PlanContext
	authErr  error
	ctxErr   error
	lastUser string
}

func (m *mockSessions) Authorize(_ context.Context, _, userID string) error {
	m.lastUser = userID
	return m.authErr
}

func (m *mockSessions) PlanContext(context.Context, string) (model.PlanContext, error) {
	if m.ctxErr != nil {
		return model.PlanContext{}, m.ctxErr
	}
	return m.ctx, nil
}

// validPlanText builds a candidate that clears every rule for the given
// shape. Mirrors the template tier without going through it.
func validPlanText(days int, hoursPerDay float64) string {
	pc := model.PlanContext{Days: days, HoursPerDay: hoursPerDay, Subject: "Algebra"}
	out, _ := NewTemplateGenerator().Generate(context.Background(), pc)
	return out
}
