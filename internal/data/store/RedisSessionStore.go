package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akolanti/PdfRAG/internal/data/redisStore"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
	"github.com/akolanti/PdfRAG/pkg/logger_i"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps each session as two keys: a JSON info document and a
// list of JSON turns. Both share the same TTL, refreshed on every write.
type RedisSessionStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func NewRedisSessionStore(store *redisStore.Store, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		store:  store,
		ttl:    ttl,
		logger: logger_i.NewLogger("SessionStore"),
	}
}

func infoKey(id string) string  { return sessionKeyPrefix + id + ":info" }
func turnsKey(id string) string { return sessionKeyPrefix + id + ":turns" }

func (s *RedisSessionStore) GetInfo(ctx context.Context, id string) (chatModel.SessionInfo, bool, error) {
	var info chatModel.SessionInfo
	val, err := s.store.Get(ctx, infoKey(id))
	if s.store.IsNil(err) {
		return info, false, nil
	} else if err != nil {
		return info, false, upstream("sessions.getInfo", err)
	}
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		return info, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	n, err := s.store.ListLen(ctx, turnsKey(id))
	if err != nil {
		return info, false, upstream("sessions.getInfo", err)
	}
	info.TurnCount = int(n)
	return info, true, nil
}

func (s *RedisSessionStore) CreateSession(ctx context.Context, info chatModel.SessionInfo) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, infoKey(info.ID), data, s.ttl); err != nil {
		return upstream("sessions.create", err)
	}
	s.logger.FromContext(ctx).Debug("session created", "sessionId", info.ID)
	return nil
}

func (s *RedisSessionStore) AppendTurns(ctx context.Context, id string, lastActive time.Time, turns ...chatModel.Turn) error {
	info, ok, err := s.GetInfo(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errSessionMissing(id)
	}
	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	info.LastActiveAt = lastActive
	info.TurnCount += len(turns)
	infoData, err := json.Marshal(info)
	if err != nil {
		return err
	}

	err = s.store.Tx(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, turnsKey(id), values...)
		pipe.Set(ctx, infoKey(id), infoData, s.ttl)
		if s.ttl > 0 {
			pipe.Expire(ctx, turnsKey(id), s.ttl)
		}
		return nil
	})
	if err != nil {
		s.logger.FromContext(ctx).Error("error saving turns", "sessionId", id, "error", err)
		return upstream("sessions.append", err)
	}
	return nil
}

func (s *RedisSessionStore) GetTurns(ctx context.Context, id string, n int) ([]chatModel.Turn, error) {
	raw, err := s.store.ListTail(ctx, turnsKey(id), n)
	if err != nil {
		return nil, upstream("sessions.turns", err)
	}
	turns := make([]chatModel.Turn, 0, len(raw))
	for _, r := range raw {
		var t chatModel.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			return nil, fmt.Errorf("decode turn in session %s: %w", id, err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisSessionStore) ClearTurns(ctx context.Context, id string, at time.Time) error {
	info, ok, err := s.GetInfo(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errSessionMissing(id)
	}
	info.LastActiveAt = at
	info.TurnCount = 0
	infoData, err := json.Marshal(info)
	if err != nil {
		return err
	}
	err = s.store.Tx(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, turnsKey(id))
		pipe.Set(ctx, infoKey(id), infoData, s.ttl)
		return nil
	})
	if err != nil {
		return upstream("sessions.clear", err)
	}
	return nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.Del(ctx, infoKey(id), turnsKey(id)); err != nil {
		return upstream("sessions.delete", err)
	}
	return nil
}

func (s *RedisSessionStore) ListSessions(ctx context.Context) ([]chatModel.SessionInfo, error) {
	keys, err := s.store.ScanKeys(ctx, sessionKeyPrefix+"*:info")
	if err != nil {
		return nil, upstream("sessions.list", err)
	}
	out := make([]chatModel.SessionInfo, 0, len(keys))
	for _, k := range keys {
		id := strings.TrimSuffix(strings.TrimPrefix(k, sessionKeyPrefix), ":info")
		info, ok, err := s.GetInfo(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, info)
		}
	}
	sortSessions(out)
	return out, nil
}

func upstream(op string, err error) error {
	return ragErrors.Upstream(op, err, true)
}

func errSessionMissing(id string) error {
	return ragErrors.NotFound("sessions", "session %s not found", id)
}
