// Package logger builds the zap logger of the trscan command and bridges
// the library's slog output into it.
package logger

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

func New(verbosity string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, err
	}
	config.Level = level
	return config.Build()
}

// Slog returns a *slog.Logger that writes through l, so records from
// trscan.SetLogger share the command's encoder, sink and level.
func Slog(l *zap.Logger) *slog.Logger {
	return slog.New(zapslog.NewHandler(l.Core(), zapslog.WithName(l.Name())))
}
