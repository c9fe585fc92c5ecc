package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/supportflow/api"
	"github.com/BaSui01/supportflow/workflow"
)

// Asker 执行一次问答，supportflow.Service 实现了该接口
type Asker interface {
	Ask(ctx context.Context, req workflow.RunRequest) (*workflow.Result, error)
}

// AskHandler 问答处理器
type AskHandler struct {
	asker  Asker
	logger *zap.Logger
}

// NewAskHandler 创建问答处理器
func NewAskHandler(asker Asker, logger *zap.Logger) *AskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskHandler{asker: asker, logger: logger.With(zap.String("handler", "ask"))}
}

// HandleAsk 处理 POST /api/v1/ask
// @Summary 回答客服问题
// @Description 检索、评估、生成并校验答案，返回终态与来源
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body api.AskRequest true "问答请求"
// @Success 200 {object} Response{data=api.AskResponse} "终态为 success / insufficient_data / validation_failed"
// @Failure 400 {object} Response "请求或参数无效"
// @Failure 503 {object} Response "检索服务不可用"
// @Router /api/v1/ask [post]
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.AskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	res, err := h.asker.Ask(r.Context(), req.ToRunRequest())
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("question answered",
		zap.String("run_id", res.RunID),
		zap.String("status", string(res.FinalStatus)),
		zap.Int("retry_count", res.RetryCount),
		zap.Bool("cached", res.Cached),
		zap.Duration("duration", res.Duration),
	)
	WriteSuccess(w, r, api.NewAskResponse(res, req.IncludeTrace))
}
