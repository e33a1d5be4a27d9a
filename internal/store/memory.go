package store

import (
	"context"
	"sync"

	"github.com/kamathanirudh/labstack/pkg/types"
)

// Memory is an in-memory RecordStore for tests and local development.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*types.LabRecord
}

// NewMemory creates an empty in-memory record store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*types.LabRecord)}
}

func (m *Memory) Get(_ context.Context, labID string) (*types.LabRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[labID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *Memory) Put(_ context.Context, rec *types.LabRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	m.records[rec.LabID] = &cp
	return nil
}

func (m *Memory) MarkReady(_ context.Context, labID, accessURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[labID]
	if !ok {
		return ErrNotFound
	}
	if rec.Status != types.LabStatusPending {
		return nil // lost the race, duplicate write is harmless
	}
	rec.Status = types.LabStatusReady
	rec.AccessURL = &accessURL
	return nil
}

func (m *Memory) MarkTerminated(_ context.Context, labID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[labID]
	if !ok {
		return ErrNotFound
	}
	rec.Status = types.LabStatusTerminated
	return nil
}

func (m *Memory) ListPending(_ context.Context) ([]*types.LabRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*types.LabRecord
	for _, rec := range m.records {
		if rec.Status == types.LabStatusPending {
			cp := *rec
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *Memory) Close() error {
	return nil
}
