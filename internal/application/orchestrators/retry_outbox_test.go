package orchestrators

import (
	"context"
	"errors"
	"testing"
	"time"

	"crm/internal/adapters/email"
	"crm/internal/domain/outbox"

	"go.uber.org/goleak"
)

type failingSender struct {
	calls int
}

func (s *failingSender) Send(context.Context, email.SendRequest) (email.SendResult, error) {
	s.calls++
	return email.SendResult{}, errBoom
}

func emailEntry(t *testing.T, to string, created time.Time) outbox.Entry {
	t.Helper()
	e, err := outbox.NewEmailEntry(outbox.EmailPayload{To: to, Subject: "Re: help", HTML: "<p>hi</p>", Text: "hi", TicketID: "tk-1"}, created)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// TestOutboxProcessor_DeliversEmail marks a sent entry done with the provider ID.
func TestOutboxProcessor_DeliversEmail(t *testing.T) {
	sender := email.NewNoopSender()
	entry := emailEntry(t, "ana@crm.test", fixedNow)
	store := newMemOutboxStore(entry)
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeEmail: &EmailExecutor{Sender: sender},
	}, OutboxOptions{Now: nowFn})

	n, err := p.ProcessPending(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("ProcessPending = %d, %v", n, err)
	}
	got, _ := store.GetByID(context.Background(), entry.ID)
	if got.Status != outbox.StatusDone || got.ExternalID == "" || got.Attempts != 1 {
		t.Errorf("entry = %+v", got)
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "ana@crm.test" || sent[0].Tags["ticket_id"] != "tk-1" {
		t.Errorf("sent = %+v", sent)
	}
}

// TestOutboxProcessor_BackoffAndExhaustion verifies retries wait and eventually fail.
func TestOutboxProcessor_BackoffAndExhaustion(t *testing.T) {
	sender := &failingSender{}
	entry := emailEntry(t, "ana@crm.test", fixedNow)
	entry.MaxAttempts = 2
	store := newMemOutboxStore(entry)
	now := fixedNow
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeEmail: &EmailExecutor{Sender: sender},
	}, OutboxOptions{BaseDelay: time.Minute, MaxDelay: time.Hour, Now: func() time.Time { return now }})
	ctx := context.Background()

	if n, _ := p.ProcessPending(ctx); n != 1 {
		t.Fatalf("first pass attempted %d", n)
	}
	if n, _ := p.ProcessPending(ctx); n != 0 {
		t.Fatalf("entry retried before its backoff elapsed")
	}
	got, _ := store.GetByID(ctx, entry.ID)
	if got.Status != outbox.StatusRetrying || got.ErrorMessage != errBoom.Error() {
		t.Errorf("after first failure = %+v", got)
	}

	now = now.Add(3 * time.Minute)
	if n, _ := p.ProcessPending(ctx); n != 1 {
		t.Fatalf("second pass attempted %d", n)
	}
	got, _ = store.GetByID(ctx, entry.ID)
	if got.Status != outbox.StatusFailed || got.Attempts != 2 || sender.calls != 2 {
		t.Errorf("after exhaustion = %+v, calls = %d", got, sender.calls)
	}

	retried, err := p.RetryEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("RetryEntry: %v", err)
	}
	if retried.Attempts != 1 || sender.calls != 3 {
		t.Errorf("manual retry = %+v, calls = %d", retried, sender.calls)
	}
}

// TestOutboxProcessor_UnknownActionAndAbandon covers missing executors and admin abandon.
func TestOutboxProcessor_UnknownActionAndAbandon(t *testing.T) {
	entry := outbox.Entry{ID: "e1", ActionType: "webhook", Payload: "{}", Status: outbox.StatusPending, MaxAttempts: 3, CreatedAt: fixedNow}
	store := newMemOutboxStore(entry)
	p := NewOutboxProcessor(store, nil, OutboxOptions{Now: nowFn})
	ctx := context.Background()

	if _, err := p.ProcessPending(ctx); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetByID(ctx, "e1")
	if got.Attempts != 1 || got.ErrorMessage == "" {
		t.Errorf("entry = %+v", got)
	}

	abandoned, err := p.AbandonEntry(ctx, "e1")
	if err != nil || abandoned.Status != outbox.StatusAbandoned {
		t.Fatalf("AbandonEntry = %+v, %v", abandoned, err)
	}
	if _, err := p.AbandonEntry(ctx, "e1"); !errors.Is(err, outbox.ErrNotAbandonable) {
		t.Errorf("second abandon = %v", err)
	}
	if _, err := p.RetryEntry(ctx, "e1"); !errors.Is(err, outbox.ErrNotRetryable) {
		t.Errorf("retry abandoned = %v", err)
	}
}

// TestOutboxProcessor_RunStopsOnCancel verifies the worker drains and leaves no goroutines.
func TestOutboxProcessor_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := email.NewNoopSender()
	store := newMemOutboxStore(emailEntry(t, "bia@crm.test", fixedNow))
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		outbox.ActionTypeEmail: &EmailExecutor{Sender: sender},
	}, OutboxOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(sender.Sent()) == 0 {
		select {
		case <-deadline:
			t.Fatal("worker never delivered the entry")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
