package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/workflow"
)

// HitRecorder 记录缓存命中情况，internal/metrics.Collector 实现了该接口
type HitRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

const answerCacheType = "answer"

// AnswerCache 缓存终态为 success 的运行结果。
// 键由规范化后的问题和运行参数组成，不同 max_retries/top_k 的请求互不命中。
type AnswerCache struct {
	manager  *Manager
	prefix   string
	ttl      time.Duration
	recorder HitRecorder
	logger   *zap.Logger
}

// NewAnswerCache 创建答案缓存，recorder 可为 nil
func NewAnswerCache(manager *Manager, prefix string, ttl time.Duration, recorder HitRecorder, logger *zap.Logger) *AnswerCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "supportflow:answer:"
	}
	return &AnswerCache{
		manager:  manager,
		prefix:   prefix,
		ttl:      ttl,
		recorder: recorder,
		logger:   logger.With(zap.String("component", "answer_cache")),
	}
}

// Key 计算请求的缓存键，req 应已经过 Engine.Normalize
func (c *AnswerCache) Key(req workflow.RunRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d|%d", normalizeQuestion(req.Question), req.MaxRetries, req.TopK, req.MinRelevantDocs)
	return c.prefix + hex.EncodeToString(h.Sum(nil))
}

// Get 查询缓存。Redis 故障按未命中处理，只记录日志。
// 命中时 Question 改为本次请求的原文；RunID 仍指向产生该答案的原始运行，
// 可通过运行记录查询其审计轨迹。
func (c *AnswerCache) Get(ctx context.Context, req workflow.RunRequest) (*workflow.Result, bool) {
	var res workflow.Result
	err := c.manager.GetJSON(ctx, c.Key(req), &res)
	if err != nil {
		if !IsCacheMiss(err) {
			c.logger.Warn("answer cache lookup failed", zap.Error(err))
		}
		c.miss()
		return nil, false
	}
	c.hit()
	res.Question = req.Question
	res.Cached = true
	return &res, true
}

// Put 写入缓存，非 success 结果直接忽略
func (c *AnswerCache) Put(ctx context.Context, req workflow.RunRequest, res *workflow.Result) {
	if res == nil || res.FinalStatus != workflow.StatusSuccess {
		return
	}
	stored := *res
	stored.Cached = false
	if err := c.manager.SetJSON(ctx, c.Key(req), &stored, c.ttl); err != nil {
		c.logger.Warn("answer cache store failed", zap.String("run_id", res.RunID), zap.Error(err))
	}
}

func (c *AnswerCache) hit() {
	if c.recorder != nil {
		c.recorder.RecordCacheHit(answerCacheType)
	}
}

func (c *AnswerCache) miss() {
	if c.recorder != nil {
		c.recorder.RecordCacheMiss(answerCacheType)
	}
}

// normalizeQuestion 小写并折叠空白
func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
