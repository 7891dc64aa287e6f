package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

type queryStartKey struct{}

// RegisterDBTracing installs otelgorm on db plus a callback that flags slow
// queries and marks failed statements on the active span. Query variables
// are never exported.
func RegisterDBTracing(db *gorm.DB, slowQuery time.Duration, logger *zap.Logger) error {
	if slowQuery <= 0 {
		slowQuery = defaultSlowQueryThreshold
	}
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(db.Dialector.Name()),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey{}, time.Now())
		}
	}
	after := func(tx *gorm.DB) { annotateSpan(tx, slowQuery) }

	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("bizhub_timing:before_create", before),
		cb.Query().Before("gorm:query").Register("bizhub_timing:before_query", before),
		cb.Update().Before("gorm:update").Register("bizhub_timing:before_update", before),
		cb.Delete().Before("gorm:delete").Register("bizhub_timing:before_delete", before),
		cb.Row().Before("gorm:row").Register("bizhub_timing:before_row", before),
		cb.Raw().Before("gorm:raw").Register("bizhub_timing:before_raw", before),
		cb.Create().After("gorm:create").Register("bizhub_timing:after_create", after),
		cb.Query().After("gorm:query").Register("bizhub_timing:after_query", after),
		cb.Update().After("gorm:update").Register("bizhub_timing:after_update", after),
		cb.Delete().After("gorm:delete").Register("bizhub_timing:after_delete", after),
		cb.Row().After("gorm:row").Register("bizhub_timing:after_row", after),
		cb.Raw().After("gorm:raw").Register("bizhub_timing:after_raw", after),
	}
	if err := errors.Join(registrations...); err != nil {
		return err
	}

	logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", slowQuery))
	return nil
}

func annotateSpan(tx *gorm.DB, slowQuery time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if start, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > slowQuery {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
