package typegraph

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"modelgql/internal/logging"
)

// FetchErrorPolicy decides what a resolver does when the backend fails.
type FetchErrorPolicy string

const (
	// FetchErrorsSurface returns a *FetchError for the field. The executor
	// records it and keeps resolving sibling fields.
	FetchErrorsSurface FetchErrorPolicy = "surface"
	// FetchErrorsSwallow logs the failure and resolves to an empty
	// connection or null.
	FetchErrorsSwallow FetchErrorPolicy = "swallow"
)

// Metrics receives one observation per backend call.
type Metrics interface {
	RecordFetch(ctx context.Context, model, op string, duration time.Duration, err error)
}

const (
	opRelatedCollection = "fetch_related_collection"
	opNodeByID          = "fetch_node_by_id"
	opAllOfType         = "fetch_all_of_type"
	opCreate            = "create_node"
	opUpdate            = "update_node"
	opDelete            = "delete_node"
)

// fetcher wraps every backend call with a span, a metric observation and
// the configured failure policy.
type fetcher struct {
	backend Backend
	policy  FetchErrorPolicy
	logger  *slog.Logger
	metrics Metrics
}

func (f *fetcher) observe(ctx context.Context, model, field, op string, call func(ctx context.Context) error) error {
	ctx, span := startResolverSpan(ctx, "typegraph."+op,
		attribute.String("graphql.model", model),
		attribute.String("graphql.field", field),
	)
	start := time.Now()
	err := call(ctx)
	if f.metrics != nil {
		f.metrics.RecordFetch(ctx, model, op, time.Since(start), err)
	}
	finishResolverSpan(span, err, "")
	if err != nil {
		return &FetchError{Model: model, Field: field, Op: op, Err: err}
	}
	return nil
}

func (f *fetcher) relatedCollection(ctx context.Context, model, parentID, field string, page Pagination) ([]Node, error) {
	var nodes []Node
	err := f.observe(ctx, model, field, opRelatedCollection, func(ctx context.Context) error {
		var err error
		nodes, err = f.backend.FetchRelatedCollection(ctx, model, parentID, field, page)
		return err
	})
	return nodes, err
}

func (f *fetcher) nodeByID(ctx context.Context, model, field, target, id string) (Node, error) {
	var node Node
	err := f.observe(ctx, model, field, opNodeByID, func(ctx context.Context) error {
		var err error
		node, err = f.backend.FetchNodeByID(ctx, target, id)
		return err
	})
	return node, err
}

func (f *fetcher) allOfType(ctx context.Context, model, field string, page Pagination) ([]Node, error) {
	var nodes []Node
	err := f.observe(ctx, model, field, opAllOfType, func(ctx context.Context) error {
		var err error
		nodes, err = f.backend.FetchAllOfType(ctx, model, page)
		return err
	})
	return nodes, err
}

// failed applies the policy to a fetch error. fallback is what the field
// resolves to when failures are swallowed.
func (f *fetcher) failed(ctx context.Context, err error, fallback interface{}) (interface{}, error) {
	if f.policy != FetchErrorsSwallow {
		return nil, err
	}
	logger := f.logger
	if requestID := logging.GetRequestID(ctx); requestID != "" {
		logger = logger.With(slog.String("request_id", requestID))
	}
	logger.Warn("backend fetch failed, resolving to empty result", slog.String("error", err.Error()))
	return fallback, nil
}
