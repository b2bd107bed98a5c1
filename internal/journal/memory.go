package journal

import (
	"context"
	"sync"
)

// Memory keeps passes in process memory.
type Memory struct {
	mu     sync.Mutex
	passes []Pass
}

// NewMemory returns an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) RecordPass(_ context.Context, pass Pass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pass.Groups = append([]Group(nil), pass.Groups...)
	m.passes = append(m.passes, pass)
	return nil
}

func (m *Memory) RecentPasses(_ context.Context, limit int) ([]Pass, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > len(m.passes) {
		limit = len(m.passes)
	}
	out := make([]Pass, 0, limit)
	for i := len(m.passes) - 1; i >= 0 && len(out) < limit; i-- {
		p := m.passes[i]
		p.Groups = append([]Group(nil), p.Groups...)
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
