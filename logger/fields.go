package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across fedlens.
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldCount     = "count"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldMethod    = "method"
	FieldURL       = "url"

	FieldResource  = "resource"  // repository identifier
	FieldSubject   = "subject"   // RDF subject IRI
	FieldPredicate = "predicate" // RDF predicate IRI
	FieldAttribute = "attribute" // model attribute name
	FieldModel     = "model"     // model type name
	FieldLens      = "lens"      // lens kind
	FieldETag      = "etag"
)

type contextKey string

const (
	resourceKey  contextKey = "logger_resource"
	componentKey contextKey = "logger_component"
)

// WithResource adds a resource identifier to the context for logging
func WithResource(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, resourceKey, id)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from ctx as key-value pairs.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}
	if id, ok := ctx.Value(resourceKey).(string); ok && id != "" {
		fields = append(fields, FieldResource, id)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}
	return fields
}

// LoggerFromContext returns the global logger enriched with ctx fields.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
//	repo := ldp.NewSQLiteRepository(conn, base, container, logger.ComponentLogger("ldp.sqlite"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
