package main

import (
	"os"

	"github.com/spf13/cobra"

	"dp-normalizer/api/internal/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "dp-normalizer",
		Short:         "Normalize model answers for Déclaration Préalable filings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, _ := cmd.Flags().GetString("log-level")
			asJSON, _ := cmd.Flags().GetBool("log-json")
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			if !cmd.Flags().Changed("log-json") && os.Getenv("LOG_JSON") == "true" {
				asJSON = true
			}
			logger.SetupLogger(level, asJSON)
		},
	}
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(modelsCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.GetDefault().Error(err.Error())
		os.Exit(1)
	}
}
