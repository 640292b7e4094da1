package accesscore

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type captureSink struct {
	events chan AuditEvent
}

func newCaptureSink(buffer int) *captureSink {
	return &captureSink{events: make(chan AuditEvent, buffer)}
}

func (s *captureSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *captureSink) next(t *testing.T) AuditEvent {
	t.Helper()
	select {
	case event := <-s.events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) { s.count.Add(1) }

// gateSink blocks deliveries until released, forcing the buffer to fill.
type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) { <-s.gate }

func buildAuditEngine(t *testing.T, cfg Config, sink AuditSink) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithUserProvider(testUsers()).
		WithPasswordHasher(plainHasher{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return engine
}

func TestAuditEmitsLoginEvents(t *testing.T) {
	sink := newCaptureSink(16)
	engine := buildAuditEngine(t, testConfig(), sink)
	defer engine.Close()
	ctx := context.Background()

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	event := sink.next(t)
	if event.Event != EventLoginSuccess || !event.Success {
		t.Fatalf("event = %+v, want successful %s", event, EventLoginSuccess)
	}
	if event.Identity != "alice@example.com" {
		t.Fatalf("identity = %q", event.Identity)
	}
	if event.Time.IsZero() {
		t.Fatal("event time not stamped")
	}

	engine.Login(ctx, "alice@example.com", "wrong")
	event = sink.next(t)
	if event.Event != EventLoginFailure || event.Success {
		t.Fatalf("event = %+v, want failed %s", event, EventLoginFailure)
	}
}

func TestAuditDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false
	sink := &countingSink{}
	engine := buildAuditEngine(t, cfg, sink)

	engine.Login(context.Background(), "alice@example.com", "correct-horse")
	engine.Close()

	if sink.count.Load() != 0 {
		t.Fatalf("disabled audit delivered %d events", sink.count.Load())
	}
}

func TestAuditDropsWhenSaturated(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.BufferSize = 1
	cfg.Audit.DropIfFull = true

	sink := &gateSink{gate: make(chan struct{})}
	engine := buildAuditEngine(t, cfg, sink)
	ctx := context.Background()

	// One event in flight at the sink, one in the buffer, the rest shed.
	for i := 0; i < 8; i++ {
		engine.emitAudit(ctx, AuditEvent{Event: EventLogout})
	}

	if engine.AuditDropped() == 0 {
		t.Fatal("expected dropped events with a saturated buffer")
	}

	close(sink.gate)
	engine.Close()
}

func TestAuditCloseDrainsBuffer(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.BufferSize = 64

	sink := &countingSink{}
	engine := buildAuditEngine(t, cfg, sink)
	ctx := context.Background()

	const emitted = 10
	for i := 0; i < emitted; i++ {
		engine.emitAudit(ctx, AuditEvent{Event: EventLogout})
	}
	engine.Close()

	if got := sink.count.Load(); got != emitted {
		t.Fatalf("delivered = %d, want %d", got, emitted)
	}
}

func TestAuditEmitAfterCloseIsNoOp(t *testing.T) {
	sink := &countingSink{}
	engine := buildAuditEngine(t, testConfig(), sink)
	engine.Close()

	engine.emitAudit(context.Background(), AuditEvent{Event: EventLogout})
	if engine.AuditDropped() != 0 {
		t.Fatal("emit after close must not count as dropped")
	}
}
