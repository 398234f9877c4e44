// Package conversation keeps per-session chat history. Every mutation of one
// session is serialized; different sessions never contend.
package conversation

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/akolanti/PdfRAG/internal/data/keyLock"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

const maxSessionIDLength = 128

type Service interface {
	GetOrCreate(ctx context.Context, sessionID string) (chatModel.SessionInfo, error)
	AppendTurn(ctx context.Context, sessionID string, turn NewTurn) (chatModel.Turn, error)
	// Record appends all turns or none of them.
	Record(ctx context.Context, sessionID string, turns ...NewTurn) ([]chatModel.Turn, error)
	ContextWindow(ctx context.Context, sessionID string, maxTurns int) ([]chatModel.Turn, error)
	History(ctx context.Context, sessionID string) (chatModel.Session, error)
	Clear(ctx context.Context, sessionID string) error
	Export(ctx context.Context, sessionID string) ([]byte, error)
	Delete(ctx context.Context, sessionID string) error
	Sessions(ctx context.Context) ([]chatModel.SessionInfo, error)
	ReapExpired(ctx context.Context, maxIdle time.Duration) (int, error)
	RunReaper(ctx context.Context, interval, maxIdle time.Duration)
}

// NewTurn is a turn before it gets an id and timestamp.
type NewTurn struct {
	Role      chatModel.Role
	Content   string
	Citations []commonModels.Citation
}

type ExportedTurn struct {
	Role      chatModel.Role          `json:"role"`
	Content   string                  `json:"content"`
	Timestamp time.Time               `json:"timestamp"`
	Citations []commonModels.Citation `json:"citations"`
}

type service struct {
	store  chatModel.SessionStore
	locks  *keyLock.KeyLock
	now    func() time.Time
	logger *logger_i.Logger

	entropyMu sync.Mutex
	entropy   *rand.Rand
}

type Option func(*service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

func NewService(store chatModel.SessionStore, opts ...Option) Service {
	s := &service{
		store:   store,
		locks:   keyLock.New(),
		now:     time.Now,
		logger:  logger_i.NewLogger("Conversation"),
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func validateID(op, id string) error {
	if strings.TrimSpace(id) == "" {
		return ragErrors.Validation(op, "session_id is required")
	}
	if len(id) > maxSessionIDLength {
		return ragErrors.Validation(op, "session_id longer than %d bytes", maxSessionIDLength)
	}
	return nil
}

func (s *service) newID(at time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

// clock returns wall time without the monotonic reading so persisted and
// in-memory timestamps compare the same way.
func (s *service) clock() time.Time {
	return s.now().UTC()
}

func (s *service) GetOrCreate(ctx context.Context, sessionID string) (chatModel.SessionInfo, error) {
	if err := validateID("conversation.getOrCreate", sessionID); err != nil {
		return chatModel.SessionInfo{}, err
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.getOrCreateLocked(ctx, sessionID)
}

func (s *service) getOrCreateLocked(ctx context.Context, sessionID string) (chatModel.SessionInfo, error) {
	info, ok, err := s.store.GetInfo(ctx, sessionID)
	if err != nil || ok {
		return info, err
	}
	now := s.clock()
	info = chatModel.SessionInfo{ID: sessionID, CreatedAt: now, LastActiveAt: now}
	if err := s.store.CreateSession(ctx, info); err != nil {
		return chatModel.SessionInfo{}, err
	}
	s.logger.FromContext(ctx).Info("session created", "sessionId", sessionID)
	return info, nil
}

func (s *service) AppendTurn(ctx context.Context, sessionID string, turn NewTurn) (chatModel.Turn, error) {
	turns, err := s.Record(ctx, sessionID, turn)
	if err != nil {
		return chatModel.Turn{}, err
	}
	return turns[0], nil
}

func (s *service) Record(ctx context.Context, sessionID string, newTurns ...NewTurn) ([]chatModel.Turn, error) {
	const op = "conversation.record"
	if err := validateID(op, sessionID); err != nil {
		return nil, err
	}
	if len(newTurns) == 0 {
		return nil, ragErrors.Validation(op, "no turns to record")
	}
	for _, t := range newTurns {
		if t.Role != chatModel.RoleUser && t.Role != chatModel.RoleAssistant {
			return nil, ragErrors.Validation(op, "unknown role %q", t.Role)
		}
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	info, err := s.getOrCreateLocked(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	last := info.LastActiveAt
	turns := make([]chatModel.Turn, len(newTurns))
	for i, t := range newTurns {
		at := s.clock()
		if !at.After(last) {
			at = last.Add(time.Nanosecond)
		}
		last = at
		citations := t.Citations
		if citations == nil {
			citations = []commonModels.Citation{}
		}
		turns[i] = chatModel.Turn{
			ID:        s.newID(at),
			Role:      t.Role,
			Content:   t.Content,
			Timestamp: at,
			Citations: citations,
		}
	}

	if err := s.store.AppendTurns(ctx, sessionID, last, turns...); err != nil {
		s.logger.FromContext(ctx).Error("could not record turns", "sessionId", sessionID, "error", err)
		return nil, err
	}
	return turns, nil
}

// ContextWindow returns the last maxTurns turns, oldest first. Unknown sessions
// have an empty window.
func (s *service) ContextWindow(ctx context.Context, sessionID string, maxTurns int) ([]chatModel.Turn, error) {
	const op = "conversation.contextWindow"
	if err := validateID(op, sessionID); err != nil {
		return nil, err
	}
	if maxTurns <= 0 {
		return []chatModel.Turn{}, nil
	}
	_, ok, err := s.store.GetInfo(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []chatModel.Turn{}, nil
	}
	return s.store.GetTurns(ctx, sessionID, maxTurns)
}

func (s *service) History(ctx context.Context, sessionID string) (chatModel.Session, error) {
	const op = "conversation.history"
	info, err := s.existing(ctx, op, sessionID)
	if err != nil {
		return chatModel.Session{}, err
	}
	turns, err := s.store.GetTurns(ctx, sessionID, 0)
	if err != nil {
		return chatModel.Session{}, err
	}
	if turns == nil {
		turns = []chatModel.Turn{}
	}
	return chatModel.Session{
		ID:           info.ID,
		CreatedAt:    info.CreatedAt,
		LastActiveAt: info.LastActiveAt,
		Turns:        turns,
	}, nil
}

func (s *service) Clear(ctx context.Context, sessionID string) error {
	const op = "conversation.clear"
	if err := validateID(op, sessionID); err != nil {
		return err
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	info, err := s.existing(ctx, op, sessionID)
	if err != nil {
		return err
	}
	at := s.clock()
	if !at.After(info.LastActiveAt) {
		at = info.LastActiveAt.Add(time.Nanosecond)
	}
	if err := s.store.ClearTurns(ctx, sessionID, at); err != nil {
		return err
	}
	s.logger.FromContext(ctx).Info("session cleared", "sessionId", sessionID)
	return nil
}

func (s *service) Export(ctx context.Context, sessionID string) ([]byte, error) {
	session, err := s.History(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	out := make([]ExportedTurn, len(session.Turns))
	for i, t := range session.Turns {
		citations := t.Citations
		if citations == nil {
			citations = []commonModels.Citation{}
		}
		out[i] = ExportedTurn{Role: t.Role, Content: t.Content, Timestamp: t.Timestamp, Citations: citations}
	}
	return json.MarshalIndent(out, "", "  ")
}

func (s *service) Delete(ctx context.Context, sessionID string) error {
	const op = "conversation.delete"
	if err := validateID(op, sessionID); err != nil {
		return err
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if _, err := s.existing(ctx, op, sessionID); err != nil {
		return err
	}
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	s.logger.FromContext(ctx).Info("session deleted", "sessionId", sessionID)
	return nil
}

func (s *service) Sessions(ctx context.Context) ([]chatModel.SessionInfo, error) {
	return s.store.ListSessions(ctx)
}

// ReapExpired deletes sessions idle for longer than maxIdle.
func (s *service) ReapExpired(ctx context.Context, maxIdle time.Duration) (int, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	reaped := 0
	for _, info := range sessions {
		if s.clock().Sub(info.LastActiveAt) <= maxIdle {
			continue
		}
		removed, err := s.reapOne(ctx, info.ID, maxIdle)
		if err != nil {
			return reaped, err
		}
		if removed {
			reaped++
		}
	}
	if reaped > 0 {
		s.logger.Info("reaped idle sessions", "count", reaped, "maxIdle", maxIdle)
	}
	return reaped, nil
}

// reapOne rechecks idleness under the session lock, since a turn may have
// landed after the listing.
func (s *service) reapOne(ctx context.Context, sessionID string, maxIdle time.Duration) (bool, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	info, ok, err := s.store.GetInfo(ctx, sessionID)
	if err != nil || !ok {
		return false, err
	}
	if s.clock().Sub(info.LastActiveAt) <= maxIdle {
		return false, nil
	}
	return true, s.store.DeleteSession(ctx, sessionID)
}

func (s *service) RunReaper(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session reaper stopped")
			return
		case <-ticker.C:
			if _, err := s.ReapExpired(ctx, maxIdle); err != nil {
				s.logger.Error("session reaping failed", "error", err)
			}
		}
	}
}

func (s *service) existing(ctx context.Context, op, sessionID string) (chatModel.SessionInfo, error) {
	if err := validateID(op, sessionID); err != nil {
		return chatModel.SessionInfo{}, err
	}
	info, ok, err := s.store.GetInfo(ctx, sessionID)
	if err != nil {
		return chatModel.SessionInfo{}, err
	}
	if !ok {
		return chatModel.SessionInfo{}, ragErrors.NotFound(op, "session %s not found", sessionID)
	}
	return info, nil
}
