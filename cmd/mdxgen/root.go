package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// newRootCmd создает корневую команду и регистрирует подкоманды.
func newRootCmd(logger *slog.Logger, level *slog.LevelVar) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "mdxgen",
		Short: "Генератор конвейеров диспетчеризации по манифесту фактов",
		// Отрисовку фатальных ошибок берет на себя main через логгер.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.AddCommand(newGenerateCmd(logger))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Подробное логирование")

	return root
}
