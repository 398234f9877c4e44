package conversation_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/PdfRAG/internal/conversation"
	"github.com/akolanti/PdfRAG/internal/data/redisStore"
	"github.com/akolanti/PdfRAG/internal/data/store"
	"github.com/akolanti/PdfRAG/internal/domain/chatModel"
	"github.com/akolanti/PdfRAG/internal/domain/commonModels"
	"github.com/akolanti/PdfRAG/internal/domain/ragErrors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newService(t *testing.T) (conversation.Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	return conversation.NewService(store.InitSessionStore(), conversation.WithClock(clock.Now)), clock
}

func exchange(q, a string) []conversation.NewTurn {
	return []conversation.NewTurn{
		{Role: chatModel.RoleUser, Content: q},
		{Role: chatModel.RoleAssistant, Content: a, Citations: []commonModels.Citation{{SourceID: "a.pdf", Page: 1, Excerpt: "x"}}},
	}
}

func TestRecord_StrictlyIncreasingTimestamps(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	// the clock never moves, timestamps must still increase
	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, "s", exchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))...)
		require.NoError(t, err)
	}

	h, err := svc.History(ctx, "s")
	require.NoError(t, err)
	require.Len(t, h.Turns, 6)
	for i := 1; i < len(h.Turns); i++ {
		assert.True(t, h.Turns[i].Timestamp.After(h.Turns[i-1].Timestamp), "turn %d", i)
		assert.NotEqual(t, h.Turns[i].ID, h.Turns[i-1].ID)
	}
	assert.True(t, h.LastActiveAt.Equal(h.Turns[5].Timestamp))
}

func TestRecord_Validation(t *testing.T) {
	svc, _ := newService(t)
	tests := []struct {
		name  string
		id    string
		turns []conversation.NewTurn
	}{
		{"empty id", "  ", exchange("q", "a")},
		{"no turns", "s", nil},
		{"bad role", "s", []conversation.NewTurn{{Role: "system", Content: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Record(context.Background(), tt.id, tt.turns...)
			assert.True(t, ragErrors.Is(err, ragErrors.KindValidation))
		})
	}
}

func TestContextWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	window, err := svc.ContextWindow(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, window)

	for i := 0; i < 4; i++ {
		_, err := svc.Record(ctx, "s", exchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))...)
		require.NoError(t, err)
	}

	window, err = svc.ContextWindow(ctx, "s", 3)
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, "a2", window[0].Content)
	assert.Equal(t, "q3", window[1].Content)
	assert.Equal(t, "a3", window[2].Content)

	h, err := svc.History(ctx, "s")
	require.NoError(t, err)
	assert.Len(t, h.Turns, 8, "the window never truncates the stored log")
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.History(ctx, "ghost")
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
	assert.True(t, ragErrors.Is(svc.Clear(ctx, "ghost"), ragErrors.KindNotFound))
	_, err = svc.Export(ctx, "ghost")
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
	assert.True(t, ragErrors.Is(svc.Delete(ctx, "ghost"), ragErrors.KindNotFound))
}

func TestClearAndExport(t *testing.T) {
	ctx := context.Background()
	svc, clock := newService(t)

	_, err := svc.Record(ctx, "s", exchange("what is go?", "a language")...)
	require.NoError(t, err)
	before, err := svc.History(ctx, "s")
	require.NoError(t, err)

	data, err := svc.Export(ctx, "s")
	require.NoError(t, err)
	var exported []map[string]any
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 2)
	assert.Equal(t, "user", exported[0]["role"])
	assert.Equal(t, "what is go?", exported[0]["content"])
	assert.Contains(t, exported[0], "timestamp")
	assert.Equal(t, []any{}, exported[0]["citations"])
	assert.Len(t, exported[1]["citations"], 1)

	clock.Advance(time.Minute)
	require.NoError(t, svc.Clear(ctx, "s"))

	after, err := svc.History(ctx, "s")
	require.NoError(t, err)
	assert.Empty(t, after.Turns)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))

	data, err = svc.Export(ctx, "s")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))

	_, err = svc.Record(ctx, "s", exchange("again", "sure")...)
	require.NoError(t, err)
	h, _ := svc.History(ctx, "s")
	assert.True(t, h.Turns[0].Timestamp.After(before.Turns[1].Timestamp))
}

func TestConcurrentRecordsKeepExchangesTogether(t *testing.T) {
	ctx := context.Background()
	svc := conversation.NewService(store.InitSessionStore())

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Record(ctx, "shared", exchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))...)
			assert.NoError(t, err)
			_, err = svc.Record(ctx, fmt.Sprintf("own-%d", i), exchange("q", "a")...)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	h, err := svc.History(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, h.Turns, 2*writers)
	for i := 0; i < len(h.Turns); i += 2 {
		q, a := h.Turns[i], h.Turns[i+1]
		assert.Equal(t, chatModel.RoleUser, q.Role)
		assert.Equal(t, "a"+q.Content[1:], a.Content, "answer follows its question")
		if i > 0 {
			assert.True(t, q.Timestamp.After(h.Turns[i-1].Timestamp))
		}
	}

	sessions, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, writers+1)
}

func TestReapExpired(t *testing.T) {
	ctx := context.Background()
	svc, clock := newService(t)

	_, err := svc.GetOrCreate(ctx, "old")
	require.NoError(t, err)
	clock.Advance(90 * time.Minute)
	_, err = svc.Record(ctx, "fresh", exchange("q", "a")...)
	require.NoError(t, err)

	reaped, err := svc.ReapExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)

	_, err = svc.History(ctx, "old")
	assert.True(t, ragErrors.Is(err, ragErrors.KindNotFound))
	_, err = svc.History(ctx, "fresh")
	assert.NoError(t, err)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.Record(ctx, "s", exchange("q", "a")...)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "s"))
	sessions, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisBackedConversation(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	svc := conversation.NewService(store.NewRedisSessionStore(redisStore.NewTestStore(client), time.Hour))

	_, err := svc.Record(ctx, "r", exchange("q1", "a1")...)
	require.NoError(t, err)
	_, err = svc.Record(ctx, "r", exchange("q2", "a2")...)
	require.NoError(t, err)

	window, err := svc.ContextWindow(ctx, "r", 2)
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "q2", window[0].Content)

	h, err := svc.History(ctx, "r")
	require.NoError(t, err)
	require.Len(t, h.Turns, 4)
	for i := 1; i < 4; i++ {
		assert.True(t, h.Turns[i].Timestamp.After(h.Turns[i-1].Timestamp))
	}

	require.NoError(t, svc.Clear(ctx, "r"))
	data, err := svc.Export(ctx, "r")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(data))
}

func TestAppendTurn_LogVersusWindow(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.AppendTurn(ctx, "new", conversation.NewTurn{Role: chatModel.RoleUser, Content: "hi"})
	require.NoError(t, err)
	_, err = svc.AppendTurn(ctx, "new", conversation.NewTurn{Role: chatModel.RoleUser, Content: "follow-up"})
	require.NoError(t, err)

	data, err := svc.Export(ctx, "new")
	require.NoError(t, err)
	var exported []conversation.ExportedTurn
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 2)
	assert.True(t, exported[1].Timestamp.After(exported[0].Timestamp))

	const maxHistory = 3
	for n := 3; n <= 6; n++ {
		_, err := svc.AppendTurn(ctx, "new", conversation.NewTurn{Role: chatModel.RoleUser, Content: fmt.Sprintf("m%d", n)})
		require.NoError(t, err)
		h, err := svc.History(ctx, "new")
		require.NoError(t, err)
		window, err := svc.ContextWindow(ctx, "new", maxHistory)
		require.NoError(t, err)
		assert.Len(t, h.Turns, n)
		assert.Len(t, window, min(n, maxHistory))
	}
}
