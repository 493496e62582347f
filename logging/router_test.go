package logging_test

import (
	"context"
	"testing"
	"time"

	"riftward/server/logging"
	"riftward/server/logging/sinks"
)

func routeAndClose(t *testing.T, cfg logging.Config, events ...logging.Event) []logging.Event {
	t.Helper()
	memory := sinks.NewMemory()
	clock := logging.ClockFunc(func() time.Time {
		return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	})
	router, err := logging.NewRouter(clock, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	for _, event := range events {
		router.Publish(context.Background(), event)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close router: %v", err)
	}
	return memory.Events()
}

func TestRouterDeliversEventsWithTimestamp(t *testing.T) {
	events := routeAndClose(t, logging.DefaultConfig(), logging.Event{
		Type:     "cast.resolved",
		Tick:     12,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCast,
		Actor:    logging.EntityRef{ID: "caster-1", Kind: logging.EntityKindCaster},
	})
	if len(events) != 1 {
		t.Fatalf("expected 1 routed event, got %d", len(events))
	}
	event := events[0]
	if event.Type != "cast.resolved" || event.Tick != 12 {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Time.IsZero() {
		t.Fatalf("expected clock timestamp injected")
	}
	if event.Actor.ID != "caster-1" {
		t.Fatalf("expected actor preserved, got %+v", event.Actor)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	events := routeAndClose(t, cfg,
		logging.Event{Type: "debug.noise", Severity: logging.SeverityDebug},
		logging.Event{Type: "info.noise", Severity: logging.SeverityInfo},
		logging.Event{Type: "warn.signal", Severity: logging.SeverityWarn},
	)
	if len(events) != 1 || events[0].Type != "warn.signal" {
		t.Fatalf("expected only the warning routed, got %+v", events)
	}
}

func TestRouterAttachesStaticFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"service": "riftward", "region": "eu"}
	events := routeAndClose(t, cfg, logging.Event{
		Type:     "network.request_dropped",
		Severity: logging.SeverityWarn,
		Extra:    map[string]any{"region": "local"},
	})
	if len(events) != 1 {
		t.Fatalf("expected 1 routed event, got %d", len(events))
	}
	extra := events[0].Extra
	if extra["service"] != "riftward" {
		t.Fatalf("expected static field attached, got %+v", extra)
	}
	// Event-local values win over static fields.
	if extra["region"] != "local" {
		t.Fatalf("expected event field preserved, got %+v", extra)
	}
}

func TestRouterIgnoresUntypedAndPostCloseEvents(t *testing.T) {
	memory := sinks.NewMemory()
	router, err := logging.NewRouter(logging.SystemClock{}, logging.DefaultConfig(),
		[]logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	router.Publish(context.Background(), logging.Event{Type: "late.event"})

	if events := memory.Events(); len(events) != 0 {
		t.Fatalf("expected nothing routed, got %+v", events)
	}
	if stats := router.Stats(); stats.EventsTotal != 0 {
		t.Fatalf("expected zero counted events, got %+v", stats)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		raw  string
		want logging.Severity
	}{
		{raw: "debug", want: logging.SeverityDebug},
		{raw: "info", want: logging.SeverityInfo},
		{raw: "WARN", want: logging.SeverityWarn},
		{raw: "warning", want: logging.SeverityWarn},
		{raw: " error ", want: logging.SeverityError},
		{raw: "nonsense", want: logging.SeverityInfo},
		{raw: "", want: logging.SeverityInfo},
	}
	for _, tt := range tests {
		if got := logging.ParseSeverity(tt.raw); got != tt.want {
			t.Fatalf("ParseSeverity(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestWithFieldsPublisher(t *testing.T) {
	var captured []logging.Event
	base := logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = append(captured, event)
	})
	publisher := logging.WithFields(base, map[string]any{"arena": "main"})
	publisher.Publish(context.Background(), logging.Event{Type: "cast.rejected"})

	if len(captured) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(captured))
	}
	if captured[0].Extra["arena"] != "main" {
		t.Fatalf("expected static field, got %+v", captured[0].Extra)
	}

	if logging.WithFields(nil, nil) == nil {
		t.Fatalf("expected nop publisher for nil base")
	}
}
