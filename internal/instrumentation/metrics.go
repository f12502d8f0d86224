package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrCommand   = "command"
	attrDomain    = "account_domain"
)

// Metrics provides methods for recording observability metrics.
// A nil or zero-value Metrics is a safe no-op recorder.
type Metrics struct {
	// HTTP metrics for the loopback UI server
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Sync metrics
	syncRunsTotal       metric.Int64Counter
	syncDuration        metric.Float64Histogram
	batchFallbacksTotal metric.Int64Counter
	droppedThreadsTotal metric.Int64Counter

	// Command metrics
	commandInvocationsTotal metric.Int64Counter
	commandDuration         metric.Float64Histogram

	// Mirror metrics
	mirrorPushesTotal metric.Int64Counter

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	// Google API Metrics
	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	// Sync Metrics
	m.syncRunsTotal, err = meter.Int64Counter(
		"sync_runs_total",
		metric.WithDescription("Total number of incremental sync runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_runs_total counter: %w", err)
	}

	m.syncDuration, err = meter.Float64Histogram(
		"sync_duration_seconds",
		metric.WithDescription("Incremental sync run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync_duration_seconds histogram: %w", err)
	}

	m.batchFallbacksTotal, err = meter.Int64Counter(
		"batch_fallbacks_total",
		metric.WithDescription("Total number of batch chunks that fell back to sequential fetch"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch_fallbacks_total counter: %w", err)
	}

	m.droppedThreadsTotal, err = meter.Int64Counter(
		"dropped_threads_total",
		metric.WithDescription("Total number of thread IDs dropped after batch and sequential fetch both failed"),
		metric.WithUnit("{thread}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dropped_threads_total counter: %w", err)
	}

	// Command Metrics
	m.commandInvocationsTotal, err = meter.Int64Counter(
		"command_invocations_total",
		metric.WithDescription("Total number of UI command invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create command_invocations_total counter: %w", err)
	}

	m.commandDuration, err = meter.Float64Histogram(
		"command_duration_seconds",
		metric.WithDescription("UI command execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create command_duration_seconds histogram: %w", err)
	}

	// Mirror Metrics
	m.mirrorPushesTotal, err = meter.Int64Counter(
		"mirror_pushes_total",
		metric.WithDescription("Total number of card pushes to the remote key-value mirror"),
		metric.WithUnit("{push}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mirror_pushes_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (gmail, calendar, people)
//   - operation: Operation type (list, get, batch_get, history, send, etc.)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSyncRun records one incremental sync run for an account.
// Result should be one of: "delta", "full", "cursor_expired", "error".
// The account email is reduced to its domain, and only included when
// detailedLabels is enabled.
func (m *Metrics) RecordSyncRun(ctx context.Context, accountEmail, result string, duration time.Duration) {
	if m == nil || m.syncRunsTotal == nil || m.syncDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}
	if m.detailedLabels && accountEmail != "" {
		attrs = append(attrs, attribute.String(attrDomain, ExtractUserDomain(accountEmail)))
	}

	m.syncRunsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordBatchFallback records one batch chunk falling back to sequential fetch.
func (m *Metrics) RecordBatchFallback(ctx context.Context) {
	if m == nil || m.batchFallbacksTotal == nil {
		return // Instrumentation not initialized
	}

	m.batchFallbacksTotal.Add(ctx, 1)
}

// RecordDroppedThreads records thread IDs that failed both the batch path and
// the sequential fallback and were dropped from a fetch result.
func (m *Metrics) RecordDroppedThreads(ctx context.Context, count int) {
	if m == nil || m.droppedThreadsTotal == nil || count <= 0 {
		return
	}

	m.droppedThreadsTotal.Add(ctx, int64(count))
}

// RecordCommand records a UI command invocation with command name, status, and duration.
func (m *Metrics) RecordCommand(ctx context.Context, command, status string, duration time.Duration) {
	if m == nil || m.commandInvocationsTotal == nil || m.commandDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrCommand, command),
		attribute.String(attrStatus, status),
	}

	m.commandInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.commandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordMirrorPush records a push of the card list to the remote mirror.
// Result should be "success" or "error".
func (m *Metrics) RecordMirrorPush(ctx context.Context, result string) {
	if m == nil || m.mirrorPushesTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.mirrorPushesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}
