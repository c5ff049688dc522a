// Package main — точка входа утилиты mdxgen: генератора конвейеров
// диспетчеризации по манифесту структурных фактов.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

func main() {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(logger)

	if err := newRootCmd(logger, level).ExecuteContext(context.Background()); err != nil {
		logger.Error("фатальная ошибка", "error", err)
		os.Exit(1)
	}
}
