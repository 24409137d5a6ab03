package registry

import (
	"context"
	"sync"
	"time"

	"epay/internal/domain"
	"epay/internal/models"
)

// Memory is the in-memory registry: a map of per-key-locked entries. Used in
// tests and development; production uses Gorm so intents survive the
// full-page redirect gap and process restarts.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	byRef   map[string]string
}

type memoryEntry struct {
	mu     sync.Mutex
	intent models.PaymentIntent
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*memoryEntry),
		byRef:   make(map[string]string),
	}
}

func (m *Memory) Create(ctx context.Context, intent *models.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[intent.TransactionID]; ok {
		return ErrDuplicateKey
	}
	now := time.Now()
	intent.CreatedAt = now
	intent.UpdatedAt = now
	m.entries[intent.TransactionID] = &memoryEntry{intent: *intent}
	if intent.GatewayRef != "" {
		m.byRef[intent.GatewayRef] = intent.TransactionID
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, transactionID string) (*models.PaymentIntent, error) {
	m.mu.RLock()
	e, ok := m.entries[transactionID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if expire(&e.intent, time.Now()) {
		e.intent.UpdatedAt = time.Now()
	}
	out := e.intent
	return &out, nil
}

func (m *Memory) FindByRef(ctx context.Context, ref string) (*models.PaymentIntent, error) {
	m.mu.RLock()
	id, ok := m.byRef[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *Memory) AttachRef(ctx context.Context, transactionID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[transactionID]
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	e.intent.GatewayRef = ref
	e.intent.UpdatedAt = time.Now()
	e.mu.Unlock()
	m.byRef[ref] = transactionID
	return nil
}

func (m *Memory) Transition(ctx context.Context, transactionID string, to domain.IntentState) error {
	m.mu.RLock()
	e, ok := m.entries[transactionID]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !legalTransition(e.intent.State, to) {
		return ErrIllegalTransition
	}
	e.intent.State = to
	e.intent.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.RLock()
	entries := make([]*memoryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		entries = append(entries, e)
	}
	m.mu.RUnlock()
	swept := 0
	for _, e := range entries {
		e.mu.Lock()
		if expire(&e.intent, now) {
			e.intent.UpdatedAt = now
			swept++
		}
		e.mu.Unlock()
	}
	return swept, nil
}
