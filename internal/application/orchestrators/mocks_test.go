package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	studioStore "crm/internal/adapters/storage/studio"
	"crm/internal/domain/account"
	"crm/internal/domain/audit"
	"crm/internal/domain/deal"
	"crm/internal/domain/instructor"
	"crm/internal/domain/outbox"
	"crm/internal/domain/studio"
	"crm/internal/domain/ticket"
	"crm/internal/domain/turma"
)

// --- in-memory test doubles ---

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func nowFn() time.Time { return fixedNow }

func notFound(kind string) error {
	return fmt.Errorf("%s not found: %w", kind, sql.ErrNoRows)
}

var (
	adminActor   = audit.Actor{ID: "admin-1", Email: "admin@crm.test", Role: account.RoleAdmin}
	partnerActor = audit.Actor{ID: "partner-1", Email: "partner@crm.test", Role: account.RolePartner}
	studentActor = audit.Actor{ID: "student-1", Email: "student@crm.test", Role: account.RoleStudent}
)

type memAccountStore struct {
	byID map[string]account.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{byID: make(map[string]account.Account)}
}

func (s *memAccountStore) GetByID(_ context.Context, id string) (account.Account, error) {
	a, ok := s.byID[id]
	if !ok {
		return account.Account{}, notFound("account")
	}
	return a, nil
}

func (s *memAccountStore) GetByEmail(_ context.Context, email string) (account.Account, error) {
	for _, a := range s.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return account.Account{}, notFound("account")
}

func (s *memAccountStore) Save(_ context.Context, a account.Account) error {
	s.byID[a.ID] = a
	return nil
}

func (s *memAccountStore) Count(_ context.Context) (int, error) {
	return len(s.byID), nil
}

type memDealStore struct {
	byID    map[string]deal.Deal
	saveErr error
}

func newMemDealStore() *memDealStore {
	return &memDealStore{byID: make(map[string]deal.Deal)}
}

func (s *memDealStore) GetByID(_ context.Context, id string) (deal.Deal, error) {
	d, ok := s.byID[id]
	if !ok {
		return deal.Deal{}, notFound("deal")
	}
	return d, nil
}

func (s *memDealStore) GetByEmail(_ context.Context, email string) (deal.Deal, error) {
	for _, d := range s.byID {
		if email != "" && d.Email == email {
			return d, nil
		}
	}
	return deal.Deal{}, notFound("deal")
}

func (s *memDealStore) Save(_ context.Context, d deal.Deal) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.byID[d.ID] = d
	return nil
}

func (s *memDealStore) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

type memClassStore struct {
	byID map[string]turma.Turma
}

func newMemClassStore(classes ...turma.Turma) *memClassStore {
	s := &memClassStore{byID: make(map[string]turma.Turma)}
	for _, c := range classes {
		s.byID[c.ID] = c
	}
	return s
}

func (s *memClassStore) GetByID(_ context.Context, id string) (turma.Turma, error) {
	t, ok := s.byID[id]
	if !ok {
		return turma.Turma{}, notFound("class")
	}
	return t, nil
}

func (s *memClassStore) GetByCode(_ context.Context, code string) (turma.Turma, error) {
	for _, t := range s.byID {
		if t.HasCode(code) {
			return t, nil
		}
	}
	return turma.Turma{}, notFound("class")
}

func (s *memClassStore) Save(_ context.Context, t turma.Turma) error {
	s.byID[t.ID] = t
	return nil
}

func (s *memClassStore) CodeInUse(_ context.Context, code, excludeID string) (bool, error) {
	for _, t := range s.byID {
		if t.ID != excludeID && t.HasCode(code) {
			return true, nil
		}
	}
	return false, nil
}

type memInstructorStore struct {
	byID map[string]instructor.Instructor
}

func newMemInstructorStore(list ...instructor.Instructor) *memInstructorStore {
	s := &memInstructorStore{byID: make(map[string]instructor.Instructor)}
	for _, in := range list {
		s.byID[in.ID] = in
	}
	return s
}

func (s *memInstructorStore) GetByID(_ context.Context, id string) (instructor.Instructor, error) {
	in, ok := s.byID[id]
	if !ok {
		return instructor.Instructor{}, notFound("instructor")
	}
	return in, nil
}

func (s *memInstructorStore) GetByAccountID(_ context.Context, accountID string) (instructor.Instructor, error) {
	for _, in := range s.byID {
		if in.AccountID == accountID {
			return in, nil
		}
	}
	return instructor.Instructor{}, notFound("instructor")
}

func (s *memInstructorStore) Save(_ context.Context, in instructor.Instructor) error {
	s.byID[in.ID] = in
	return nil
}

type memStudioStore struct {
	byID  map[string]studio.Studio
	items map[string]studio.Item
}

func newMemStudioStore(list ...studio.Studio) *memStudioStore {
	s := &memStudioStore{byID: make(map[string]studio.Studio), items: make(map[string]studio.Item)}
	for _, st := range list {
		s.byID[st.ID] = st
	}
	return s
}

func (s *memStudioStore) GetByID(_ context.Context, id string) (studio.Studio, error) {
	st, ok := s.byID[id]
	if !ok {
		return studio.Studio{}, notFound("studio")
	}
	return st, nil
}

func (s *memStudioStore) Save(_ context.Context, st studio.Studio) error {
	s.byID[st.ID] = st
	return nil
}

func (s *memStudioStore) List(_ context.Context, filter studioStore.ListFilter) ([]studio.Studio, error) {
	var out []studio.Studio
	for _, st := range s.byID {
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStudioStore) GetItem(_ context.Context, id string) (studio.Item, error) {
	it, ok := s.items[id]
	if !ok {
		return studio.Item{}, notFound("item")
	}
	return it, nil
}

func (s *memStudioStore) SaveItem(_ context.Context, item studio.Item) error {
	for _, it := range s.items {
		if it.ID != item.ID && it.StudioID == item.StudioID && it.SKU == item.SKU {
			return studio.ErrDuplicateSKU
		}
	}
	s.items[item.ID] = item
	return nil
}

func (s *memStudioStore) AdjustItemQuantity(_ context.Context, id string, delta int, now time.Time) (studio.Item, error) {
	it, ok := s.items[id]
	if !ok {
		return studio.Item{}, notFound("item")
	}
	if err := it.Adjust(delta, now); err != nil {
		return studio.Item{}, err
	}
	s.items[id] = it
	return it, nil
}

func (s *memStudioStore) DeleteItem(_ context.Context, id string) error {
	delete(s.items, id)
	return nil
}

type memTicketStore struct {
	byID     map[string]ticket.Ticket
	messages []ticket.Message
}

func newMemTicketStore() *memTicketStore {
	return &memTicketStore{byID: make(map[string]ticket.Ticket)}
}

func (s *memTicketStore) GetByID(_ context.Context, id string) (ticket.Ticket, error) {
	t, ok := s.byID[id]
	if !ok {
		return ticket.Ticket{}, notFound("ticket")
	}
	return t, nil
}

func (s *memTicketStore) Save(_ context.Context, t ticket.Ticket) error {
	s.byID[t.ID] = t
	return nil
}

func (s *memTicketStore) SaveWithMessage(_ context.Context, t ticket.Ticket, msg ticket.Message) error {
	s.byID[t.ID] = t
	s.messages = append(s.messages, msg)
	return nil
}

type memAuditStore struct {
	events []audit.Event
	err    error
}

func (s *memAuditStore) Save(_ context.Context, e audit.Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memAuditStore) actions() []audit.Action {
	out := make([]audit.Action, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Action)
	}
	return out
}

type memOutboxStore struct {
	mu      sync.Mutex
	entries map[string]outbox.Entry
}

func newMemOutboxStore(entries ...outbox.Entry) *memOutboxStore {
	s := &memOutboxStore{entries: make(map[string]outbox.Entry)}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return s
}

func (s *memOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return outbox.Entry{}, notFound("outbox entry")
	}
	return e, nil
}

func (s *memOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	return nil
}

func (s *memOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Entry
	for _, e := range s.entries {
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memOutboxStore) List(ctx context.Context, status string, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []outbox.Entry
	for _, e := range s.entries {
		if status == "" || e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memOutboxStore) CountByStatus(_ context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, e := range s.entries {
		out[e.Status]++
	}
	return out, nil
}

func (s *memOutboxStore) all() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]outbox.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

type recordingCache struct {
	deleted []string
	bumped  []string
}

func (c *recordingCache) Set(_ context.Context, key string, _ []byte, _ time.Duration) error {
	c.bumped = append(c.bumped, key)
	return nil
}

func (c *recordingCache) Delete(_ context.Context, keys ...string) error {
	c.deleted = append(c.deleted, keys...)
	return nil
}

type published struct {
	topic, eventType string
	payload          any
}

type recordingPublisher struct {
	events []published
}

func (p *recordingPublisher) Publish(topic, eventType string, payload any) {
	p.events = append(p.events, published{topic, eventType, payload})
}

var errBoom = errors.New("boom")
