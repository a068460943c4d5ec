package listquery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/parish/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rezkam/parish/internal/listquery"

// Request describes one page fetch.
type Request struct {
	Resource string
	Columns  string // raw column selection, empty selects all columns
	Filters  domain.FilterSpec
	Order    []domain.Order
	Window   domain.PageWindow
}

// Validate rejects requests before any backend call is made.
func (r Request) Validate() error {
	if r.Resource == "" {
		return fmt.Errorf("%w: resource is required", domain.ErrInvalidArgument)
	}
	if err := r.Window.Validate(); err != nil {
		return err
	}
	for i, o := range r.Order {
		if o.Column == "" {
			return fmt.Errorf("%w: order entry %d has no column", domain.ErrInvalidArgument, i)
		}
	}
	return r.Filters.Validate()
}

// Engine runs paginated list queries against an injected client.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	client   Client
	tracer   trace.Tracer
	duration metric.Float64Histogram
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *engineOptions) { o.tracerProvider = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *engineOptions) { o.meterProvider = mp }
}

// NewEngine creates an engine issuing queries through client.
func NewEngine(client Client, opts ...Option) *Engine {
	o := engineOptions{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meterProvider.Meter(instrumentationName)
	duration, err := meter.Float64Histogram("listquery.query.duration",
		metric.WithDescription("Duration of list count and data queries"),
		metric.WithUnit("s"),
	)
	if err != nil {
		slog.Warn("Failed to create query duration histogram", "error", err)
		duration, _ = noop.NewMeterProvider().Meter(instrumentationName).Float64Histogram("listquery.query.duration")
	}

	return &Engine{
		client:   client,
		tracer:   o.tracerProvider.Tracer(instrumentationName),
		duration: duration,
	}
}

// FetchPage returns one page of req.Resource together with the total count.
//
// The count query and the data query receive identical filters; only the data
// query is ordered and limited. The count runs first and a count failure
// means the data query is never issued. Backend failures are returned as
// *domain.QueryError, context cancellation as domain.ErrCancelled.
func (e *Engine) FetchPage(ctx context.Context, req Request) (*domain.PageResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	queryID := uuid.NewString()

	count := Apply(ctx, e.client.Select(req.Resource, req.Columns, ModeCount), req.Filters)
	data := Apply(ctx, e.client.Select(req.Resource, req.Columns, ModeRows), req.Filters)
	for _, o := range req.Order {
		data = data.Order(o.Column, o.Ascending)
	}
	from, to := req.Window.Range()
	data = data.Range(from, to)

	countResult, err := e.execute(ctx, req, queryID, domain.QueryCount, count)
	if err != nil {
		return nil, err
	}

	dataResult, err := e.execute(ctx, req, queryID, domain.QueryData, data)
	if err != nil {
		return nil, err
	}

	return assemble(dataResult.Rows, countResult.Count, req.Window), nil
}

func (e *Engine) execute(ctx context.Context, req Request, queryID string, kind domain.QueryKind, b Builder) (Result, error) {
	ctx, span := e.tracer.Start(ctx, "listquery."+string(kind),
		trace.WithAttributes(
			attribute.String("listquery.resource", req.Resource),
			attribute.String("listquery.query_id", queryID),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "cancelled")
		return Result{}, cancelled(req.Resource, kind, err)
	}

	start := time.Now()
	result, err := b.Execute(ctx)
	outcome := "ok"
	defer func() {
		e.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
			attribute.String("listquery.resource", req.Resource),
			attribute.String("listquery.query", string(kind)),
			attribute.String("listquery.outcome", outcome),
		))
	}()

	if err == nil {
		return result, nil
	}

	span.RecordError(err)
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = "cancelled"
		span.SetStatus(codes.Error, "cancelled")
		if ctxErr == nil {
			ctxErr = err
		}
		slog.WarnContext(ctx, "List query cancelled",
			"resource", req.Resource,
			"query", kind,
			"query_id", queryID,
			"error", err)
		return Result{}, cancelled(req.Resource, kind, ctxErr)
	}

	outcome = "error"
	span.SetStatus(codes.Error, err.Error())

	qerr := &domain.QueryError{
		Query:    kind,
		Resource: req.Resource,
		Message:  err.Error(),
		Err:      err,
	}
	var backendErr *domain.BackendError
	if errors.As(err, &backendErr) {
		qerr.Code = backendErr.Code
	}

	slog.ErrorContext(ctx, "List query failed",
		"resource", req.Resource,
		"query", kind,
		"query_id", queryID,
		"filters", req.Filters.String(),
		"code", qerr.Code,
		"error", err)

	return Result{}, qerr
}

func cancelled(resource string, kind domain.QueryKind, cause error) error {
	return fmt.Errorf("%w: %s query on %s: %w", domain.ErrCancelled, kind, resource, cause)
}
