//go:build !integration

package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"study-plan-assistant/internal/domain"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(nil)
	return &logger
}

type stubGen struct {
	name  string
	out   string
	err   error
	calls int
}

func (s *stubGen) Name() string { return s.name }

func (s *stubGen) Generate(context.Context, string, int) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.out, nil
}

func TestMultiAdapterUsesFirstHealthyProvider(t *testing.T) {
	first := &stubGen{name: "first", out: "from first"}
	second := &stubGen{name: "second", out: "from second"}
	m := NewMultiAdapter(newTestLogger(), first, second)

	out, err := m.Generate(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from first" {
		t.Fatalf("expected the first provider's answer, got %q", out)
	}
	if second.calls != 0 {
		t.Fatal("second provider must not be touched when the first succeeds")
	}
}

func TestMultiAdapterFailsOver(t *testing.T) {
	first := &stubGen{name: "first", err: errors.New("down")}
	second := &stubGen{name: "second", out: "from second"}
	m := NewMultiAdapter(newTestLogger(), first, second)

	out, err := m.Generate(context.Background(), "prompt", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from second" {
		t.Fatalf("expected failover to the second provider, got %q", out)
	}
}

func TestMultiAdapterReturnsLastErrorWhenAllFail(t *testing.T) {
	first := &stubGen{name: "first", err: errors.New("first down")}
	second := &stubGen{name: "second", err: errors.New("second down")}
	m := NewMultiAdapter(newTestLogger(), first, second)

	_, err := m.Generate(context.Background(), "prompt", 100)
	if err == nil || err.Error() != "second down" {
		t.Fatalf("expected the last provider's error, got %v", err)
	}
}

func TestMultiAdapterEmptyChain(t *testing.T) {
	m := NewMultiAdapter(newTestLogger())
	if _, err := m.Generate(context.Background(), "prompt", 100); !errors.Is(err, domain.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestMultiAdapterStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := &stubGen{name: "first", err: errors.New("down")}
	second := &stubGen{name: "second", out: "never"}
	m := NewMultiAdapter(newTestLogger(), first, second)

	cancel()
	if _, err := m.Generate(ctx, "prompt", 100); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if second.calls != 0 {
		t.Fatal("must not try further providers after cancellation")
	}
}
