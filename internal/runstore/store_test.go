package runstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/supportflow/config"
	"github.com/BaSui01/supportflow/internal/database"
	"github.com/BaSui01/supportflow/types"
	"github.com/BaSui01/supportflow/workflow"
)

type queryLog struct {
	mu  sync.Mutex
	ops []string
}

func (q *queryLog) RecordDBQuery(_, operation string, _ time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ops = append(q.ops, operation)
}

func newTestStore(t *testing.T) (*Store, *queryLog) {
	t.Helper()
	cfg := config.DefaultDatabaseConfig()
	cfg.Driver = "sqlite"
	cfg.Name = "file::memory:"
	cfg.MaxOpenConns = 1
	cfg.MaxIdleConns = 1

	pool, err := database.Open(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	ql := &queryLog{}
	store := NewStore(pool, ql, zaptest.NewLogger(t))
	require.NoError(t, store.Migrate(context.Background()))
	return store, ql
}

func sampleResult(id string, startedAt time.Time) *workflow.Result {
	conf := 0.85
	return &workflow.Result{
		RunID:       id,
		Question:    "Can I keep my number when switching plans?",
		FinalAnswer: "Yes, number porting is free.\n\n**Sources:** plans.md",
		FinalStatus: workflow.StatusSuccess,
		Sources:     []string{"plans.md"},
		RetryCount:  1,
		MaxRetries:  3,
		Confidence:  &conf,
		StartedAt:   startedAt,
		Duration:    2500 * time.Millisecond,
		AuditTrail: []workflow.StepRecord{
			{Node: workflow.NodeRetrieve, Outcome: "retrieved", Details: map[string]any{"count": 3}, StartedAt: startedAt, Duration: 40 * time.Millisecond},
			{Node: workflow.NodeGrade, Outcome: "graded", Details: map[string]any{"relevant": 2, "total": 3}, StartedAt: startedAt, Duration: 300 * time.Millisecond},
			{Node: workflow.NodeGenerate, Outcome: "generated", StartedAt: startedAt, Duration: time.Second},
			{Node: workflow.NodeValidate, Outcome: "not_grounded", StartedAt: startedAt, Duration: 200 * time.Millisecond},
			{Node: workflow.NodeRegenerate, Outcome: "generated", StartedAt: startedAt, Duration: 700 * time.Millisecond},
			{Node: workflow.NodeValidate, Outcome: "grounded", StartedAt: startedAt, Duration: 200 * time.Millisecond},
			{Node: workflow.NodeEndSuccess, Outcome: "success", StartedAt: startedAt},
		},
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store, ql := newTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, sampleResult("run-1", started)))

	got, err := store.Get(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusSuccess, got.FinalStatus)
	assert.Equal(t, []string{"plans.md"}, got.Sources)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, 3, got.MaxRetries)
	assert.Equal(t, 2500*time.Millisecond, got.Duration)
	assert.True(t, started.Equal(got.StartedAt))
	require.NotNil(t, got.Confidence)
	assert.InDelta(t, 0.85, *got.Confidence, 1e-9)

	require.Len(t, got.AuditTrail, 7)
	assert.Equal(t, workflow.NodeRetrieve, got.AuditTrail[0].Node)
	assert.Equal(t, workflow.NodeRegenerate, got.AuditTrail[4].Node)
	assert.Equal(t, workflow.NodeEndSuccess, got.AuditTrail[6].Node)
	assert.EqualValues(t, 2, got.AuditTrail[1].Details["relevant"])
	assert.Nil(t, got.AuditTrail[2].Details)

	assert.Contains(t, ql.ops, "save_run")
	assert.Contains(t, ql.ops, "get_run")
}

func TestStore_GetNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestStore_SaveRejectsMissingID(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Save(context.Background(), &workflow.Result{})
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(store.Save(context.Background(), nil)))
}

func TestStore_DuplicateRunIsStorageError(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	res := sampleResult("dup", time.Now().UTC())

	require.NoError(t, store.Save(ctx, res))
	err := store.Save(ctx, res)
	assert.Equal(t, types.ErrStorage, types.GetErrorCode(err))
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Save(ctx, sampleResult(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := store.List(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "run-4", got[0].RunID)
	assert.Equal(t, "run-3", got[1].RunID)
	assert.Equal(t, "run-2", got[2].RunID)
	assert.Equal(t, workflow.StatusSuccess, got[0].FinalStatus)

	all, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestStore_RunCompletedObserver(t *testing.T) {
	store, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store.RunCompleted(ctx, sampleResult("observed", time.Now().UTC()))

	cached := sampleResult("cached", time.Now().UTC())
	cached.Cached = true
	store.RunCompleted(context.Background(), cached)
	store.RunCompleted(context.Background(), nil)

	_, err := store.Get(context.Background(), "observed")
	assert.NoError(t, err, "a cancelled request context must not drop the record")

	_, err = store.Get(context.Background(), "cached")
	assert.Equal(t, types.ErrNotFound, types.GetErrorCode(err))
}

func TestStore_Ping(t *testing.T) {
	store, _ := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
