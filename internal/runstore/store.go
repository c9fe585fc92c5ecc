package runstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/supportflow/internal/database"
	"github.com/BaSui01/supportflow/types"
	"github.com/BaSui01/supportflow/workflow"
)

const (
	// DefaultListLimit 列表默认条数
	DefaultListLimit = 20
	// MaxListLimit 列表最大条数
	MaxListLimit = 200

	saveTimeout = 5 * time.Second
	saveRetries = 3
)

// QueryRecorder 记录查询耗时，internal/metrics.Collector 实现了该接口
type QueryRecorder interface {
	RecordDBQuery(database, operation string, duration time.Duration)
}

// Store 运行记录存储
type Store struct {
	workflow.BaseObserver

	pool     *database.PoolManager
	recorder QueryRecorder
	logger   *zap.Logger
}

var _ workflow.Observer = (*Store)(nil)

// NewStore 创建存储，recorder 可为 nil
func NewStore(pool *database.PoolManager, recorder QueryRecorder, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		pool:     pool,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "runstore")),
	}
}

// Migrate 创建或更新表结构
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&RunRecord{}, &StepRow{}); err != nil {
		return fmt.Errorf("migrate run tables: %w", err)
	}
	return nil
}

// Save 在一个事务中写入运行与全部节点记录
func (s *Store) Save(ctx context.Context, res *workflow.Result) error {
	if res == nil || res.RunID == "" {
		return types.NewError(types.ErrInvalidRequest, "run result without id")
	}
	rec, err := toRecord(res)
	if err != nil {
		return types.NewError(types.ErrStorage, "encode run").WithCause(err)
	}

	defer s.observe("save_run", time.Now())
	err = s.pool.WithTransactionRetry(ctx, saveRetries, func(tx *gorm.DB) error {
		return tx.Create(rec).Error
	})
	if err != nil {
		return types.NewError(types.ErrStorage, "save run").WithCause(err)
	}
	return nil
}

// Get 读取单次运行及其审计轨迹
func (s *Store) Get(ctx context.Context, runID string) (*workflow.Result, error) {
	defer s.observe("get_run", time.Now())

	var rec RunRecord
	err := s.pool.DB().WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		First(&rec, "id = ?", runID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("run %s not found", runID)).
			WithHTTPStatus(404)
	}
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "load run").WithCause(err)
	}
	res, err := rec.toResult()
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "decode run").WithCause(err)
	}
	return res, nil
}

// List 按开始时间倒序返回最近的运行摘要
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	defer s.observe("list_runs", time.Now())

	var recs []RunRecord
	err := s.pool.DB().WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, types.NewError(types.ErrStorage, "list runs").WithCause(err)
	}
	out := make([]Summary, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].summary())
	}
	return out, nil
}

// Ping 检查底层数据库
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// RunCompleted 持久化终态运行。写库失败只记录日志，不影响已经返回给调用方的答案。
func (s *Store) RunCompleted(ctx context.Context, res *workflow.Result) {
	if res == nil || res.Cached {
		return
	}
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()

	if err := s.Save(saveCtx, res); err != nil {
		s.logger.Error("persist run failed",
			zap.String("run_id", res.RunID),
			zap.Error(err),
		)
	}
}

func (s *Store) observe(operation string, start time.Time) {
	if s.recorder != nil {
		s.recorder.RecordDBQuery(s.pool.DB().Dialector.Name(), operation, time.Since(start))
	}
}
