package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
)

type memorySession struct {
	info  chatModel.SessionInfo
	turns []chatModel.Turn
}

type InMemorySessionStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string]*memorySession
}

func InitSessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string]*memorySession),
	}
}

func (store *InMemorySessionStore) GetInfo(ctx context.Context, id string) (chatModel.SessionInfo, bool, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	s, ok := store.chatMap[id]
	if !ok {
		return chatModel.SessionInfo{}, false, nil
	}
	return s.info, true, nil
}

func (store *InMemorySessionStore) CreateSession(ctx context.Context, info chatModel.SessionInfo) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	if _, ok := store.chatMap[info.ID]; !ok {
		store.chatMap[info.ID] = &memorySession{info: info}
	}
	return nil
}

func (store *InMemorySessionStore) AppendTurns(ctx context.Context, id string, lastActive time.Time, turns ...chatModel.Turn) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	s, ok := store.chatMap[id]
	if !ok {
		return errSessionMissing(id)
	}
	s.turns = append(s.turns, turns...)
	s.info.TurnCount = len(s.turns)
	s.info.LastActiveAt = lastActive
	return nil
}

func (store *InMemorySessionStore) GetTurns(ctx context.Context, id string, n int) ([]chatModel.Turn, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	s, ok := store.chatMap[id]
	if !ok {
		return nil, errSessionMissing(id)
	}
	from := 0
	if n > 0 && len(s.turns) > n {
		from = len(s.turns) - n
	}
	out := make([]chatModel.Turn, len(s.turns)-from)
	copy(out, s.turns[from:])
	return out, nil
}

func (store *InMemorySessionStore) ClearTurns(ctx context.Context, id string, at time.Time) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	s, ok := store.chatMap[id]
	if !ok {
		return errSessionMissing(id)
	}
	s.turns = nil
	s.info.TurnCount = 0
	s.info.LastActiveAt = at
	return nil
}

func (store *InMemorySessionStore) DeleteSession(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	delete(store.chatMap, id)
	return nil
}

func (store *InMemorySessionStore) ListSessions(ctx context.Context) ([]chatModel.SessionInfo, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	out := make([]chatModel.SessionInfo, 0, len(store.chatMap))
	for _, s := range store.chatMap {
		out = append(out, s.info)
	}
	sortSessions(out)
	return out, nil
}

func sortSessions(sessions []chatModel.SessionInfo) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].LastActiveAt.Equal(sessions[j].LastActiveAt) {
			return sessions[i].LastActiveAt.After(sessions[j].LastActiveAt)
		}
		return sessions[i].ID < sessions[j].ID
	})
}
