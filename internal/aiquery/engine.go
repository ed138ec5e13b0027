// Package aiquery runs the closed set of read-only query templates the assistant
// may call, scoped by the caller's AIQueryContext.
package aiquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"aiquery-workers/internal/common/config"
	apperrors "aiquery-workers/internal/common/errors"
	"aiquery-workers/internal/common/logger"
	"aiquery-workers/internal/common/metrics"
	"aiquery-workers/internal/models"
	"aiquery-workers/internal/store"
)

const tracerName = "aiquery-workers/aiquery"

const (
	defaultCrossOrgSearchLimit = 50
	unknownTemplateLabel       = "unknown"
)

// Engine dispatches template calls. It is safe for concurrent use; the
// registry is built in NewEngine and never changes.
type Engine struct {
	store   store.Reader
	logger  logger.Logger
	limiter RateLimiter
	tracer  trace.Tracer
	now     func() time.Time

	timeout             time.Duration
	fanOutLimit         int
	crossOrgSearchLimit int

	registry map[models.TemplateName]executor
}

type Option func(*Engine)

func WithRateLimiter(l RateLimiter) Option {
	return func(e *Engine) { e.limiter = l }
}

// WithTimeout bounds every call. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithFanOutLimit caps concurrent store reads within one call. Zero means unbounded.
func WithFanOutLimit(n int) Option {
	return func(e *Engine) { e.fanOutLimit = n }
}

func WithCrossOrgSearchLimit(n int) Option {
	return func(e *Engine) { e.crossOrgSearchLimit = n }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// WithConfig applies the aiquery section of the service config.
func WithConfig(cfg config.AIQueryConfig) Option {
	return func(e *Engine) {
		e.timeout = time.Duration(cfg.Timeout) * time.Millisecond
		e.fanOutLimit = cfg.FanOutLimit
		if cfg.CrossOrgSearchLimit > 0 {
			e.crossOrgSearchLimit = cfg.CrossOrgSearchLimit
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(r store.Reader, log logger.Logger, opts ...Option) (*Engine, error) {
	if r == nil {
		return nil, errors.New("aiquery: store is required")
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	e := &Engine{
		store:               r,
		logger:              log,
		tracer:              otel.Tracer(tracerName),
		now:                 time.Now,
		crossOrgSearchLimit: defaultCrossOrgSearchLimit,
	}
	for _, opt := range opts {
		opt(e)
	}

	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}

	e.registry = make(map[models.TemplateName]executor, len(schemas))
	for _, name := range models.AllTemplateNames() {
		schema, ok := schemas[name]
		if !ok {
			return nil, fmt.Errorf("aiquery: no parameter schema for %s", name)
		}
		run, err := e.executorFor(name, schema)
		if err != nil {
			return nil, err
		}
		e.registry[name] = run
	}
	return e, nil
}

func (e *Engine) executorFor(name models.TemplateName, schema *gojsonschema.Schema) (executor, error) {
	switch name {
	case models.TemplateCurrentPrice:
		return bind(schema, e.currentPrice), nil
	case models.TemplatePriceAtDate:
		return bind(schema, e.priceAtDate), nil
	case models.TemplatePriceHistory:
		return bind(schema, e.priceHistory), nil
	case models.TemplateTopPriceChanges:
		return bind(schema, e.topPriceChanges), nil
	case models.TemplateMonthlyExpenses:
		return bind(schema, e.monthlyExpenses), nil
	case models.TemplateExpensesByCategory:
		return bind(schema, e.expensesByCategory), nil
	case models.TemplateTopVendors:
		return bind(schema, e.topVendors), nil
	case models.TemplateSearchItems:
		return bind(schema, e.searchItems), nil
	case models.TemplateCrossOrgItemPrices:
		return bind(schema, e.crossOrgItemPrices), nil
	case models.TemplateRecurringTemplates:
		return bind(schema, e.recurringTemplates), nil
	case models.TemplateRecurringExpenseHistory:
		return bind(schema, e.recurringExpenseHistory), nil
	case models.TemplateCrossOrgSpending:
		return bind(schema, e.crossOrgSpending), nil
	default:
		return nil, fmt.Errorf("aiquery: no executor for %s", name)
	}
}

// Request is a typed convenience for Go callers.
type Request struct {
	Template models.TemplateName
	Params   interface{}
}

// Execute marshals req.Params and runs ExecuteQuery.
func (e *Engine) Execute(ctx context.Context, qc models.AIQueryContext, req Request) models.QueryResult {
	var raw json.RawMessage
	switch p := req.Params.(type) {
	case nil:
	case json.RawMessage:
		raw = p
	case []byte:
		raw = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return models.Failure(apperrors.NewInvalidParamsError("params must be a JSON object").Message)
		}
		raw = b
	}
	return e.ExecuteQuery(ctx, qc, req.Template, raw)
}

// ExecuteQuery runs one template. It never panics and never returns both data
// and error; internal failure detail is logged, not returned.
func (e *Engine) ExecuteQuery(ctx context.Context, qc models.AIQueryContext, name models.TemplateName, params json.RawMessage) models.QueryResult {
	start := time.Now()
	requestID := uuid.NewString()

	label := string(name)
	if !name.Valid() {
		label = unknownTemplateLabel
	}

	ctx, span := e.tracer.Start(ctx, "aiquery.ExecuteQuery", trace.WithAttributes(
		attribute.String("aiquery.template", label),
		attribute.String("aiquery.request_id", requestID),
		attribute.String("aiquery.scope", string(qc.Scope())),
	))
	defer span.End()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := e.logger.WithFields(map[string]interface{}{
		"requestId": requestID,
		"template":  logger.SanitizeString(string(name), logger.MaxSearchTermLength),
		"userId":    qc.UserID(),
		"scope":     string(qc.Scope()),
	})

	data, err := e.dispatch(ctx, qc, name, params)
	if err == nil && ctx.Err() != nil {
		// finished after cancellation; drop the result
		err = ctx.Err()
	}

	elapsed := time.Since(start)
	metrics.AIQueryDuration.WithLabelValues(label).Observe(elapsed.Seconds())

	if err != nil {
		stdErr := e.normalize(ctx, name, err)
		metrics.AIQueryExecutions.WithLabelValues(label, outcomeLabel(stdErr.Code)).Inc()
		span.SetStatus(codes.Error, string(stdErr.Code))
		span.SetAttributes(attribute.String("aiquery.error_code", string(stdErr.Code)))
		e.logFailure(log, stdErr, elapsed)
		return models.Failure(stdErr.Message)
	}

	metrics.AIQueryExecutions.WithLabelValues(label, "success").Inc()
	span.SetStatus(codes.Ok, "")
	log.Debug("Query executed", map[string]interface{}{"durationMs": elapsed.Milliseconds()})
	return models.Success(data)
}

func (e *Engine) dispatch(ctx context.Context, qc models.AIQueryContext, name models.TemplateName, params json.RawMessage) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("panic in %s: %v\n%s", name, r, debug.Stack()))
		}
	}()

	run, ok := e.registry[name]
	if !ok {
		return nil, apperrors.NewUnknownTemplateError(logger.SanitizeString(string(name), logger.MaxSearchTermLength))
	}
	if err := qc.Validate(); err != nil {
		return nil, apperrors.NewInvalidContextError(err)
	}
	if err := e.preflight(qc, name, params); err != nil {
		return nil, err
	}
	return run(ctx, qc, params)
}

// preflight decides scope before parameters are validated, so a caller outside
// scope learns nothing about the template's parameters.
func (e *Engine) preflight(qc models.AIQueryContext, name models.TemplateName, params json.RawMessage) error {
	if name.IsCrossOrg() {
		return RequireCrossOrg(qc)
	}
	_, err := EnforceOrgScope(qc, requestedOrg(params))
	return err
}

func (e *Engine) normalize(ctx context.Context, name models.TemplateName, err error) *apperrors.StandardError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewQueryTimeoutError(string(name), err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewQueryCancelledError(err)
	}
	if stdErr, ok := apperrors.As(err); ok {
		return stdErr
	}
	return apperrors.NewStoreFailureError(string(name), err)
}

func (e *Engine) logFailure(log logger.Logger, stdErr *apperrors.StandardError, elapsed time.Duration) {
	fields := map[string]interface{}{
		"errorCode":     string(stdErr.Code),
		"errorCategory": apperrors.GetErrorCategory(stdErr.Code),
		"message":       stdErr.Message,
		"durationMs":    elapsed.Milliseconds(),
	}
	if stdErr.Details != "" {
		fields["details"] = logger.SanitizeString(stdErr.Details, logger.MaxErrorMessageLength)
	}

	switch stdErr.Code {
	case apperrors.ErrCodeStoreFailure, apperrors.ErrCodeInternal, apperrors.ErrCodeQueryTimeout:
		log.Error("Query failed", fields)
	case apperrors.ErrCodeAccessDenied, apperrors.ErrCodeInvalidContext, apperrors.ErrCodeRateLimited:
		log.Warn("Query rejected", fields)
	default:
		log.Info("Query returned an error result", fields)
	}
}

func outcomeLabel(code apperrors.ErrorCode) string {
	switch code {
	case apperrors.ErrCodeNotFound:
		return "not_found"
	case apperrors.ErrCodeAccessDenied, apperrors.ErrCodeMissingOrgScope, apperrors.ErrCodeInvalidContext:
		return "denied"
	case apperrors.ErrCodeInvalidParams, apperrors.ErrCodeUnknownTemplate:
		return "invalid"
	case apperrors.ErrCodeQueryCancelled:
		return "cancelled"
	case apperrors.ErrCodeQueryTimeout:
		return "timeout"
	case apperrors.ErrCodeRateLimited:
		return "rate_limited"
	default:
		return "error"
	}
}

// fanOut runs task for 0..n-1 concurrently and waits for all of them.
// The first error cancels the others and is returned. A panicking task
// becomes an internal error; dispatch's recover does not see other goroutines.
func (e *Engine) fanOut(ctx context.Context, name models.TemplateName, n int, task func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if e.fanOutLimit > 0 {
		g.SetLimit(e.fanOutLimit)
	}
	reads := metrics.AIQueryFanOutReads.WithLabelValues(string(name))
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = apperrors.NewInternalError(fmt.Sprintf("panic in %s fan-out: %v\n%s", name, r, debug.Stack()))
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			reads.Inc()
			return task(gctx, i)
		})
	}
	return g.Wait()
}

// allowCrossOrg applies the per-user cross-org limit. A limiter outage lets the
// call through.
func (e *Engine) allowCrossOrg(ctx context.Context, qc models.AIQueryContext, name models.TemplateName) error {
	if e.limiter == nil {
		return nil
	}
	allowed, used, err := e.limiter.Allow(ctx, qc.UserID(), e.now())
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("Cross-org rate limiter unavailable", map[string]interface{}{
			"template": string(name),
			"userId":   qc.UserID(),
			"error":    err,
		})
		return nil
	}
	if !allowed {
		metrics.AIQueryRateLimited.WithLabelValues(string(name)).Inc()
		return apperrors.NewRateLimitedError(fmt.Sprintf("user %s used %d cross-org calls this hour", qc.UserID(), used))
	}
	return nil
}

// notFoundOr maps store.ErrNotFound to a NotFound error carrying message.
func notFoundOr(err error, message string) error {
	if store.IsNotFound(err) {
		return apperrors.NewNotFoundError(message, err.Error())
	}
	return err
}
