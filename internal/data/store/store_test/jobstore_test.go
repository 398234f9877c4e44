package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/akolanti/PdfRAG/internal/config"
	"github.com/akolanti/PdfRAG/internal/data/redisStore"
	"github.com/akolanti/PdfRAG/internal/data/store"
	"github.com/akolanti/PdfRAG/internal/domain/jobModel"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redisStore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, redisStore.NewTestStore(client)
}

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr, internalStore := newRedis(t)
	jobStore := store.NewRedisJobStore(internalStore, time.Hour)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:     jobID,
		Status: jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			SourceID: "manual.pdf",
			FileName: "manual.pdf",
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if retrievedJob.JobPayload.SourceID != testJob.JobPayload.SourceID {
			t.Errorf("Data mismatch! Got %s, want %s",
				retrievedJob.JobPayload.SourceID, testJob.JobPayload.SourceID)
		}
	})

	t.Run("TTL applied", func(t *testing.T) {
		mr.FastForward(2 * time.Hour)
		if _, found := jobStore.GetJob(ctx, jobID); found {
			t.Error("Job should have expired")
		}
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if _, found := jobStore.GetJob(ctx, jobID); found {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestInMemoryJobStore(t *testing.T) {
	ctx := context.Background()
	jobStore := store.InitInMemoryJobStore()

	if err := jobStore.SaveJob(ctx, jobModel.Job{Id: "a", Status: jobModel.JobStatusQueued}); err != nil {
		t.Fatal(err)
	}
	job, found := jobStore.GetJob(ctx, "a")
	if !found || job.Status != jobModel.JobStatusQueued {
		t.Fatalf("unexpected job %+v found=%v", job, found)
	}
	jobStore.DeleteJob(ctx, "a")
	if _, found := jobStore.GetJob(ctx, "a"); found {
		t.Error("job should be gone")
	}
}

func TestInMemoryJobStore_Expiry(t *testing.T) {
	ctx := context.Background()
	jobStore := store.NewInMemoryJobStore(10 * time.Millisecond)

	if err := jobStore.SaveJob(ctx, jobModel.Job{Id: "old", Status: jobModel.JobStatusQueued}); err != nil {
		t.Fatal(err)
	}
	if _, found := jobStore.GetJob(ctx, "old"); !found {
		t.Fatal("fresh job should be readable")
	}
	time.Sleep(30 * time.Millisecond)

	if _, found := jobStore.GetJob(ctx, "old"); found {
		t.Error("job should have expired")
	}
	if err := jobStore.SaveJob(ctx, jobModel.Job{Id: "new", Status: jobModel.JobStatusQueued}); err != nil {
		t.Fatal(err)
	}
	if n := jobStore.Len(); n != 1 {
		t.Errorf("expected only the new job, got %d", n)
	}
}

func TestRedisJobStore_Race(t *testing.T) {
	_, internalStore := newRedis(t)
	jobStore := store.NewRedisJobStore(internalStore, time.Minute)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	if _, found := jobStore.GetJob(ctx, "race-job"); !found {
		t.Error("job missing after concurrent saves")
	}
}
