package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crm/internal/adapters/email"
	outboxStore "crm/internal/adapters/storage/outbox"
	domain "crm/internal/domain/outbox"
)

// Outbox retry defaults.
const (
	DefaultOutboxBaseDelay = 30 * time.Second
	DefaultOutboxMaxDelay  = time.Hour
	DefaultOutboxBatchSize = 10
)

// ErrNoExecutor is recorded on entries whose action type has no executor.
var ErrNoExecutor = errors.New("no executor registered for action type")

// OutboxProcessor delivers queued side effects with exponential backoff.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// ActionExecutor executes a specific type of external action.
type ActionExecutor interface {
	// Execute runs the external action with the given entry.
	// Returns the external ID (e.g. provider message ID) and any error.
	Execute(ctx context.Context, entry domain.Entry) (string, error)
}

// OutboxOptions tunes an OutboxProcessor. Zero fields take the defaults.
type OutboxOptions struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	BatchSize int
	Now       func() time.Time
}

// NewOutboxProcessor creates a new outbox processor.
func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor, opts OutboxOptions) *OutboxProcessor {
	p := &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: opts.BaseDelay,
		maxDelay:  opts.MaxDelay,
		batchSize: opts.BatchSize,
		now:       opts.Now,
	}
	if p.baseDelay <= 0 {
		p.baseDelay = DefaultOutboxBaseDelay
	}
	if p.maxDelay <= 0 {
		p.maxDelay = DefaultOutboxMaxDelay
	}
	if p.batchSize <= 0 {
		p.batchSize = DefaultOutboxBatchSize
	}
	return p
}

// ProcessPending attempts every due entry of one batch.
// PRE: Context is valid
// POST: Due entries are attempted; failures stay queued until attempts run out
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox entries: %w", err)
	}

	attempted := 0
	for _, entry := range entries {
		if !entry.IsDue(clock(p.now), p.baseDelay, p.maxDelay) {
			continue
		}
		attempted++
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_event", "event", "process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err)
		}
	}
	return attempted, nil
}

// attempt runs one delivery of entry and persists the outcome.
func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	entry.MarkAttempt(clock(p.now))
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkFailed(fmt.Errorf("%w: %s", ErrNoExecutor, entry.ActionType))
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_event", "event", "action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err)
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_event", "event", "action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// RetryEntry gives an entry a fresh set of attempts and delivers it now.
// PRE: entryID is non-empty
// POST: Entry attempted once; its status reflects the outcome
func (p *OutboxProcessor) RetryEntry(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.ResetForRetry(); err != nil {
		return domain.Entry{}, err
	}
	if err := p.attempt(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	return p.store.GetByID(ctx, entryID)
}

// AbandonEntry marks an entry as abandoned by admin.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	if err := entry.MarkAbandoned(); err != nil {
		return domain.Entry{}, err
	}
	if err := p.store.Save(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	slog.Info("outbox_event", "event", "abandoned", "entry_id", entry.ID)
	return entry, nil
}

// Run processes the queue every interval until ctx is cancelled.
// POST: returns only after ctx is done
func (p *OutboxProcessor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("outbox_event", "event", "worker_started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox_event", "event", "worker_stopped")
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := p.ProcessPending(runCtx); err != nil {
				slog.Error("outbox_event", "event", "batch_failed", "error", err)
			}
			cancel()
		}
	}
}

// EmailExecutor delivers ActionTypeEmail entries through a Sender.
type EmailExecutor struct {
	Sender email.Sender
}

// Execute sends the email described by the entry payload.
// PRE: entry.Payload is a JSON EmailPayload
// POST: returns the provider message ID
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, entry domain.Entry) (string, error) {
	p, err := entry.EmailPayload()
	if err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	req := email.SendRequest{
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    p.HTML,
		Text:    p.Text,
		Tags:    map[string]string{"outbox_id": entry.ID},
	}
	if p.TicketID != "" {
		req.Tags["ticket_id"] = p.TicketID
	}
	res, err := e.Sender.Send(ctx, req)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
