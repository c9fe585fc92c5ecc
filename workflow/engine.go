package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/supportflow/internal/ctxkeys"
	"github.com/BaSui01/supportflow/rag"
	"github.com/BaSui01/supportflow/types"
)

const tracerName = "github.com/BaSui01/supportflow/workflow"

// RunRequest 单次运行请求，零值字段使用引擎默认值，负值视为配置错误
type RunRequest struct {
	Question        string `json:"question"`
	MaxRetries      int    `json:"max_retries,omitempty"`
	TopK            int    `json:"top_k,omitempty"`
	MinRelevantDocs int    `json:"min_relevant_docs,omitempty"`
}

// Result 运行结果
type Result struct {
	RunID       string        `json:"run_id"`
	Question    string        `json:"question"`
	FinalAnswer string        `json:"final_answer"`
	FinalStatus Status        `json:"final_status"`
	Sources     []string      `json:"sources"`
	AuditTrail  []StepRecord  `json:"audit_trail"`
	RetryCount  int           `json:"retry_count"`
	MaxRetries  int           `json:"max_retries"`
	Confidence  *float64      `json:"confidence,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	// Cached 结果来自答案缓存
	Cached bool `json:"cached,omitempty"`
}

// Engine 自纠正工作流编排器，可被多个运行并发使用
type Engine struct {
	retriever rag.Retriever
	grader    Grader
	generator Generator
	validator Validator
	opts      Options

	logger    *zap.Logger
	tracer    trace.Tracer
	observers []Observer
	now       func() time.Time
	newRunID  func() string
}

// EngineOption 引擎可选项
type EngineOption func(*Engine)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer 设置 Tracer，默认使用全局 TracerProvider
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithObserver 追加观察者
func WithObserver(observers ...Observer) EngineOption {
	return func(e *Engine) {
		for _, o := range observers {
			if o != nil {
				e.observers = append(e.observers, o)
			}
		}
	}
}

// WithClock 替换时钟
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRunIDGenerator 替换 RunID 生成器
func WithRunIDGenerator(gen func() string) EngineOption {
	return func(e *Engine) {
		if gen != nil {
			e.newRunID = gen
		}
	}
}

// NewEngine 创建引擎
func NewEngine(retriever rag.Retriever, grader Grader, generator Generator, validator Validator, opts Options, options ...EngineOption) (*Engine, error) {
	switch {
	case retriever == nil:
		return nil, invalidConfig("retriever is required")
	case grader == nil:
		return nil, invalidConfig("grader is required")
	case generator == nil:
		return nil, invalidConfig("generator is required")
	case validator == nil:
		return nil, invalidConfig("validator is required")
	}
	if opts.GradeConcurrency == 0 {
		opts.GradeConcurrency = 1
	}
	if opts.FailPolicy == "" {
		opts.FailPolicy = FailOpen
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		retriever: retriever,
		grader:    grader,
		generator: generator,
		validator: validator,
		opts:      opts,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range options {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "workflow_engine"))
	return e, nil
}

// Options 返回引擎配置
func (e *Engine) Options() Options { return e.opts }

// Ask 以默认参数运行，maxRetries 为 0 时使用默认值
func (e *Engine) Ask(ctx context.Context, question string, maxRetries int) (*Result, error) {
	return e.Run(ctx, RunRequest{Question: question, MaxRetries: maxRetries})
}

// Normalize 校验请求并用引擎默认值填充零值字段
func (e *Engine) Normalize(req RunRequest) (RunRequest, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return req, types.NewError(types.ErrInvalidRequest, "question is empty")
	}
	switch {
	case req.MaxRetries < 0:
		return req, invalidConfig("max_retries must not be negative, got %d", req.MaxRetries)
	case req.TopK < 0:
		return req, invalidConfig("top_k must not be negative, got %d", req.TopK)
	case req.MinRelevantDocs < 0:
		return req, invalidConfig("min_relevant_docs must not be negative, got %d", req.MinRelevantDocs)
	}
	defaults := RunRequest{
		MaxRetries:      e.opts.MaxRetries,
		TopK:            e.opts.TopK,
		MinRelevantDocs: e.opts.MinRelevantDocs,
	}
	if err := mergo.Merge(&req, defaults); err != nil {
		return req, types.NewError(types.ErrInternalError, "merge run defaults").WithCause(err)
	}
	return req, nil
}

// run 单次运行上下文
type run struct {
	id     string
	state  *State
	params RunRequest
	logger *zap.Logger
}

// Run 执行一次完整的工作流。只有致命错误以 *types.Error 返回。
func (e *Engine) Run(ctx context.Context, req RunRequest) (*Result, error) {
	params, err := e.Normalize(req)
	if err != nil {
		return nil, err
	}

	if e.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RunTimeout)
		defer cancel()
	}

	r := &run{
		id:     e.newRunID(),
		state:  NewState(params.Question, params.MaxRetries),
		params: params,
	}
	r.logger = e.logger.With(zap.String("run_id", r.id))
	if traceID, ok := ctxkeys.TraceID(ctx); ok {
		r.logger = r.logger.With(zap.String("trace_id", traceID))
	}
	ctx = ctxkeys.WithRunID(ctx, r.id)

	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("run_id", r.id),
		attribute.Int("max_retries", params.MaxRetries),
		attribute.Int("top_k", params.TopK),
	))
	defer span.End()

	started := e.now()
	if err := e.execute(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		for _, o := range e.observers {
			o.RunFailed(ctx, r.id, err)
		}
		r.logger.Warn("run aborted",
			zap.Error(err),
			zap.Int("steps", len(r.state.AuditTrail)))
		return nil, err
	}

	s := r.state
	res := &Result{
		RunID:       r.id,
		Question:    s.Question,
		FinalAnswer: s.FinalAnswer,
		FinalStatus: s.FinalStatus,
		Sources:     s.Sources,
		AuditTrail:  s.AuditTrail,
		RetryCount:  s.RetryCount,
		MaxRetries:  s.MaxRetries,
		Confidence:  s.Confidence,
		StartedAt:   started,
		Duration:    e.now().Sub(started),
	}
	if res.Sources == nil {
		res.Sources = []string{}
	}

	span.SetAttributes(
		attribute.String("final_status", string(res.FinalStatus)),
		attribute.Int("retry_count", res.RetryCount),
	)
	for _, o := range e.observers {
		o.RunCompleted(ctx, res)
	}
	r.logger.Info("run completed",
		zap.String("status", string(res.FinalStatus)),
		zap.Int("retry_count", res.RetryCount),
		zap.Int("steps", len(res.AuditTrail)),
		zap.Duration("duration", res.Duration))

	return res, nil
}

// execute 驱动状态机直到终止节点
func (e *Engine) execute(ctx context.Context, r *run) error {
	limit := MaxVisits(r.params.MaxRetries)
	node := NodeRetrieve
	for {
		if len(r.state.AuditTrail) >= limit {
			return types.NewError(types.ErrInternalError,
				fmt.Sprintf("visit bound %d exceeded before node %s", limit, node))
		}
		if err := ctx.Err(); err != nil {
			return types.FromContext(err)
		}
		if err := e.visit(ctx, r, node); err != nil {
			return err
		}
		if node.IsTerminal() {
			return nil
		}
		node = e.next(node, r)
	}
}

// next 根据当前节点与状态选择下一个节点
func (e *Engine) next(from NodeID, r *run) NodeID {
	s := r.state
	switch from {
	case NodeRetrieve:
		return NodeGrade
	case NodeGrade:
		return CheckSufficiency(len(s.RelevantPassages), r.params.MinRelevantDocs)
	case NodeGenerate, NodeRegenerate:
		return NodeValidate
	case NodeValidate:
		return CheckValidation(s.IsGrounded, s.RetryCount, s.MaxRetries)
	default:
		return ""
	}
}

// visit 执行一个节点，成功后合并更新并追加审计条目
func (e *Engine) visit(ctx context.Context, r *run, node NodeID) error {
	started := e.now()
	nctx, span := e.tracer.Start(ctx, "workflow."+string(node), trace.WithAttributes(
		attribute.String("node", string(node)),
	))
	defer span.End()
	nctx = ctxkeys.WithNode(nctx, string(node))

	upd, err := e.runNode(nctx, r, node)
	if err == nil {
		err = r.state.Apply(upd)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	rec := StepRecord{
		Node:      node,
		Outcome:   upd.Outcome,
		Details:   upd.Details,
		StartedAt: started,
		Duration:  e.now().Sub(started),
	}
	r.state.record(rec)
	span.SetAttributes(attribute.String("outcome", rec.Outcome))

	for _, o := range e.observers {
		o.NodeCompleted(ctx, r.id, rec)
	}
	r.logger.Debug("node completed",
		zap.String("node", string(node)),
		zap.String("outcome", rec.Outcome),
		zap.Duration("duration", rec.Duration))
	return nil
}

func (e *Engine) runNode(ctx context.Context, r *run, node NodeID) (Update, error) {
	switch node {
	case NodeRetrieve:
		return e.retrieve(ctx, r)
	case NodeGrade:
		return e.grade(ctx, r)
	case NodeGenerate:
		return e.generate(ctx, r, false)
	case NodeRegenerate:
		return e.generate(ctx, r, true)
	case NodeValidate:
		return e.validate(ctx, r)
	case NodeEndInsufficient, NodeEndSuccess, NodeEndFailed:
		return e.finish(r, node), nil
	default:
		return Update{}, types.NewError(types.ErrInternalError, fmt.Sprintf("unknown node %q", node))
	}
}

func (e *Engine) retrieve(ctx context.Context, r *run) (Update, error) {
	callCtx, cancel := withTimeout(ctx, e.opts.RetrieveTimeout)
	defer cancel()

	passages, err := e.retriever.Retrieve(callCtx, r.state.Question, r.params.TopK)
	if err != nil {
		return Update{}, retrievalError(ctx, err)
	}
	if passages == nil {
		passages = []rag.Passage{}
	}
	if len(passages) > r.params.TopK {
		passages = passages[:r.params.TopK]
	}

	sources := make([]string, len(passages))
	scores := make([]float64, 0, len(passages))
	for i, p := range passages {
		sources[i] = p.Source
		if p.Score != nil {
			scores = append(scores, *p.Score)
		}
	}

	return Update{
		Retrieved: passages,
		Outcome:   fmt.Sprintf("retrieved %d passages", len(passages)),
		Details: map[string]any{
			"count":   len(passages),
			"sources": sources,
			"scores":  scores,
		},
	}, nil
}

func retrievalError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return types.FromContext(ctxErr)
	}
	switch types.GetErrorCode(err) {
	case types.ErrInvalidRequest, types.ErrRetrievalUnavailable:
		return err
	}
	return types.NewError(types.ErrRetrievalUnavailable, "retrieval failed").WithCause(err)
}

func (e *Engine) grade(ctx context.Context, r *run) (Update, error) {
	passages := r.state.RetrievedPassages
	grades := make([]Grade, len(passages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.GradeConcurrency)
	for i, p := range passages {
		g.Go(func() error {
			grade, err := e.gradeOne(gctx, r, p)
			if err != nil {
				return err
			}
			grades[i] = grade
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Update{}, err
	}

	relevant := make([]rag.Passage, 0, len(passages))
	results := make([]map[string]any, len(passages))
	failed := 0
	for i, grade := range grades {
		if grade.Relevant {
			relevant = append(relevant, passages[i])
		}
		if grade.PolicyApplied != "" {
			failed++
		}
		results[i] = map[string]any{
			"source":         passages[i].Source,
			"relevant":       grade.Relevant,
			"rationale":      grade.Rationale,
			"policy_applied": string(grade.PolicyApplied),
		}
	}

	return Update{
		Relevant: relevant,
		Grades:   grades,
		Outcome:  fmt.Sprintf("%d/%d relevant", len(relevant), len(passages)),
		Details: map[string]any{
			"relevant": len(relevant),
			"total":    len(passages),
			"failed":   failed,
			"grades":   results,
		},
	}, nil
}

func (e *Engine) gradeOne(ctx context.Context, r *run, p rag.Passage) (Grade, error) {
	callCtx, cancel := withTimeout(ctx, e.opts.GradeTimeout)
	defer cancel()

	grade, err := e.grader.Grade(callCtx, r.state.Question, p)
	if err == nil {
		return grade, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Grade{}, types.FromContext(ctxErr)
	}

	e.failPolicyApplied("grader")
	r.logger.Warn("grading failed, applying fail policy",
		zap.String("source", p.Source),
		zap.String("policy", string(e.opts.FailPolicy)),
		zap.Error(err))

	return Grade{
		Relevant:      e.opts.FailPolicy == FailOpen,
		Rationale:     "grading failed: " + err.Error(),
		PolicyApplied: e.opts.FailPolicy,
	}, nil
}

func (e *Engine) generate(ctx context.Context, r *run, strict bool) (Update, error) {
	s := r.state
	req := GenerateRequest{
		Question: s.Question,
		Passages: s.RelevantPassages,
		Strict:   strict,
	}
	if strict {
		req.Attempt = s.RetryCount + 1
		req.MaxAttempts = s.MaxRetries
	}

	callCtx, cancel := withTimeout(ctx, e.opts.GenerateTimeout)
	defer cancel()

	draft, err := e.generator.Generate(callCtx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Update{}, types.FromContext(ctxErr)
		}
		r.logger.Error("generation failed, using degraded draft", zap.Bool("strict", strict), zap.Error(err))
		draft = DegradedDraft()
	}
	draft.Confidence = clampConfidence(draft.Confidence)

	outcome := "generated"
	switch {
	case draft.Degraded:
		outcome = "degraded"
	case draft.Fallback:
		outcome = "fallback"
	}
	details := map[string]any{
		"confidence": draft.Confidence,
		"reasoning":  draft.Reasoning,
		"fallback":   draft.Fallback,
		"degraded":   draft.Degraded,
	}
	if strict {
		details["attempt"] = req.Attempt
		details["max"] = req.MaxAttempts
	}

	answer, confidence := draft.Answer, draft.Confidence
	return Update{
		Draft:          &answer,
		Confidence:     &confidence,
		Sources:        rag.Sources(s.RelevantPassages),
		IncrementRetry: strict,
		Outcome:        outcome,
		Details:        details,
	}, nil
}

func (e *Engine) validate(ctx context.Context, r *run) (Update, error) {
	s := r.state
	callCtx, cancel := withTimeout(ctx, e.opts.ValidateTimeout)
	defer cancel()

	verdict, err := e.validator.Validate(callCtx, s.Question, s.DraftAnswer, s.RelevantPassages)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Update{}, types.FromContext(ctxErr)
		}
		e.failPolicyApplied("validator")
		r.logger.Warn("validation failed, applying fail policy",
			zap.String("policy", string(e.opts.FailPolicy)),
			zap.Error(err))
		verdict = Verdict{
			Grounded:      e.opts.FailPolicy == FailOpen,
			Rationale:     "validation failed: " + err.Error(),
			PolicyApplied: e.opts.FailPolicy,
		}
	}

	outcome := "not_grounded"
	if verdict.Grounded {
		outcome = "grounded"
	}
	grounded := verdict.Grounded
	return Update{
		Grounded: &grounded,
		Outcome:  outcome,
		Details: map[string]any{
			"grounded":       verdict.Grounded,
			"reasoning":      verdict.Rationale,
			"policy_applied": string(verdict.PolicyApplied),
			"retry_count":    s.RetryCount,
		},
	}, nil
}

func (e *Engine) finish(r *run, node NodeID) Update {
	s := r.state
	status := terminalStatus(node)

	var answer string
	switch status {
	case StatusInsufficientData:
		answer = InsufficientDataMessage(s.Question, e.opts.TopicHints)
	case StatusSuccess:
		answer = SuccessAnswer(s.DraftAnswer, s.Sources)
	case StatusValidationFailed:
		answer = ValidationFailedAnswer(s.DraftAnswer, s.Sources)
	}

	details := map[string]any{"status": string(status)}
	switch status {
	case StatusInsufficientData:
		details["relevant"] = len(s.RelevantPassages)
		details["min_relevant_docs"] = r.params.MinRelevantDocs
	default:
		details["sources"] = s.Sources
		details["retry_count"] = s.RetryCount
	}

	return Update{
		Final:   &Final{Answer: answer, Status: status},
		Outcome: string(status),
		Details: details,
	}
}

func (e *Engine) failPolicyApplied(component string) {
	for _, o := range e.observers {
		o.FailPolicyApplied(component, e.opts.FailPolicy)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
