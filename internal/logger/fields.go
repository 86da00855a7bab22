package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldGenerator is the structured log field key for the answer generator name.
	FieldGenerator = "generator"
	// FieldModel is the structured log field key for the model identifier.
	FieldModel = "model"
)

// GeneratorFields returns standard zap fields describing an answer generator
// and its model. Empty values are omitted to keep log entries compact when
// information is missing.
func GeneratorFields(generator, model string) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if v := strings.TrimSpace(generator); v != "" {
		fields = append(fields, zap.String(FieldGenerator, v))
	}
	if v := strings.TrimSpace(model); v != "" {
		fields = append(fields, zap.String(FieldModel, v))
	}
	return fields
}

// WithFields safely attaches the provided fields to the logger. A nil logger
// defaults to a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}
