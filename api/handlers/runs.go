package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/api"
	"github.com/BaSui01/supportflow/internal/runstore"
	"github.com/BaSui01/supportflow/types"
	"github.com/BaSui01/supportflow/workflow"
)

// RunReader 读取持久化的运行记录，runstore.Store 实现了该接口
type RunReader interface {
	Get(ctx context.Context, runID string) (*workflow.Result, error)
	List(ctx context.Context, limit int) ([]runstore.Summary, error)
}

// RunsHandler 运行记录处理器
type RunsHandler struct {
	store  RunReader
	logger *zap.Logger
}

// NewRunsHandler 创建运行记录处理器
func NewRunsHandler(store RunReader, logger *zap.Logger) *RunsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunsHandler{store: store, logger: logger.With(zap.String("handler", "runs"))}
}

// HandleGet 处理 GET /api/v1/runs/{id}
// @Summary 回放运行
// @Tags 运行记录
// @Produce json
// @Param id path string true "运行 ID"
// @Success 200 {object} Response{data=api.RunDetail}
// @Failure 404 {object} Response "运行不存在"
// @Router /api/v1/runs/{id} [get]
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "run id is required", h.logger)
		return
	}
	res, err := h.store.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteSuccess(w, r, api.NewRunDetail(res))
}

// HandleList 处理 GET /api/v1/runs?limit=n
// @Summary 最近的运行
// @Tags 运行记录
// @Produce json
// @Param limit query int false "条数，默认 20，最大 200"
// @Success 200 {object} Response{data=api.RunList}
// @Router /api/v1/runs [get]
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be a non-negative integer", h.logger)
			return
		}
		limit = n
	}

	summaries, err := h.store.List(r.Context(), limit)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	out := api.RunList{Runs: make([]api.RunSummary, 0, len(summaries))}
	for _, s := range summaries {
		out.Runs = append(out.Runs, api.RunSummary{
			RunID:      s.RunID,
			Question:   s.Question,
			Status:     s.FinalStatus,
			RetryCount: s.RetryCount,
			Confidence: s.Confidence,
			StartedAt:  s.StartedAt,
			DurationMS: s.Duration.Milliseconds(),
		})
	}
	out.Count = len(out.Runs)
	WriteSuccess(w, r, out)
}
