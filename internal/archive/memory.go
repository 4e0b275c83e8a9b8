package archive

import (
	"context"
	"sort"
	"sync"

	"github.com/dlemaire/chessmate/internal/game"
)

// Memory is a development-only archive used when no DATABASE_URL is set.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]*game.Game
}

func NewMemoryArchive() *Memory {
	return &Memory{byID: make(map[string]*game.Game)}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) SaveResult(_ context.Context, g *game.Game) error {
	if g == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *g
	m.byID[g.ID] = &cp
	return nil
}

// Recent returns up to limit archived games, newest first.
func (m *Memory) Recent(_ context.Context, limit int) []*game.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*game.Game, 0, len(m.byID))
	for _, g := range m.byID {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
