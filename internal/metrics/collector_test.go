package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/types"
	"github.com/BaSui01/supportflow/workflow"
)

var collectorNamespaceSeq uint64

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.httpRequestsTotal)
	assert.NotNil(t, collector.llmRequestsTotal)
	assert.NotNil(t, collector.runsTotal)
	assert.NotNil(t, collector.nodeVisitsTotal)
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordHTTPRequest("POST", "/api/v1/ask", 200, 100*time.Millisecond, 2048)
	collector.RecordHTTPRequest("POST", "/api/v1/ask", 201, 50*time.Millisecond, 1024)
	collector.RecordHTTPRequest("POST", "/api/v1/ask", 503, 10*time.Millisecond, 64)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/ask", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("POST", "/api/v1/ask", "5xx")))
}

func TestCollector_RecordLLMRequest(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordLLMRequest("openai", "gpt-4o-mini", "success", 500*time.Millisecond, 100, 50)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.llmRequestsTotal.WithLabelValues("openai", "gpt-4o-mini", "success")))
	assert.Equal(t, 100.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "prompt")))
	assert.Equal(t, 50.0, testutil.ToFloat64(collector.llmTokensUsed.WithLabelValues("openai", "gpt-4o-mini", "completion")))
}

func TestCollector_WorkflowObserver(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)
	ctx := context.Background()

	collector.NodeCompleted(ctx, "run-1", workflow.StepRecord{Node: workflow.NodeRetrieve, Duration: 20 * time.Millisecond})
	collector.NodeCompleted(ctx, "run-1", workflow.StepRecord{Node: workflow.NodeValidate, Duration: time.Second})
	collector.NodeCompleted(ctx, "run-1", workflow.StepRecord{Node: workflow.NodeValidate, Duration: time.Second})
	collector.FailPolicyApplied("grader", workflow.FailOpen)

	conf := 0.8
	collector.RunCompleted(ctx, &workflow.Result{FinalStatus: workflow.StatusSuccess, RetryCount: 1, Duration: 3 * time.Second, Confidence: &conf})
	collector.RunFailed(ctx, "run-2", types.NewError(types.ErrRetrievalUnavailable, "down"))
	collector.RunFailed(ctx, "run-3", errors.New("plain"))

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.nodeVisitsTotal.WithLabelValues("validate_answer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.failPolicyTotal.WithLabelValues("grader", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.runsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.runErrorsTotal.WithLabelValues("RETRIEVAL_UNAVAILABLE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.runErrorsTotal.WithLabelValues("INTERNAL_ERROR")))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.runRetries))
}

func TestCollector_RecordCacheOperation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordCacheHit("answer")
	collector.RecordCacheMiss("answer")
	collector.RecordCacheMiss("answer")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.cacheHits.WithLabelValues("answer")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.cacheMisses.WithLabelValues("answer")))
}

func TestCollector_RecordDatabase(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	collector.RecordDBQuery("postgres", "insert_run", 20*time.Millisecond)
	collector.RecordDBConnections("postgres", 10, 5)

	assert.Greater(t, testutil.CollectAndCount(collector.dbQueryDuration), 0)
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.dbConnectionsOpen.WithLabelValues("postgres")))
	assert.Equal(t, 5.0, testutil.ToFloat64(collector.dbConnectionsIdle.WithLabelValues("postgres")))
}

func TestCollector_ConcurrentRecording(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.RecordHTTPRequest("GET", "/health", 200, time.Millisecond, 16)
			collector.FailPolicyApplied("validator", workflow.FailClosed)
			collector.RecordCacheHit("answer")
		}()
	}
	wg.Wait()

	assert.Equal(t, 10.0, testutil.ToFloat64(collector.httpRequestsTotal.WithLabelValues("GET", "/health", "2xx")))
	assert.Equal(t, 10.0, testutil.ToFloat64(collector.failPolicyTotal.WithLabelValues("validator", "closed")))
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, "2xx", statusCode(204))
	assert.Equal(t, "3xx", statusCode(302))
	assert.Equal(t, "4xx", statusCode(429))
	assert.Equal(t, "5xx", statusCode(502))
	assert.Equal(t, "unknown", statusCode(0))
}
