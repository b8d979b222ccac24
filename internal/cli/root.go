package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the quiz-engine CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "quiz-engine",
		Short: "Timed quiz session engine for the student dashboard",
		Long: `quiz-engine serves timed multiple-choice quiz sessions over a websocket:
question generation, a session-wide countdown with answer locking, and a
bounded history of completed runs.`,
		SilenceUsage: true,
	}

	configPath := envOr("CONFIG_PATH", "config/config.yaml")
	root.PersistentFlags().StringVar(&configPath, "config", configPath, "path to the YAML config file")

	// An empty port falls through to the config file, then to 8080.
	port := os.Getenv("PORT")
	start := NewStartCmd(&configPath, &port)
	start.Flags().StringVar(&port, "port", port, "listen port (overrides config)")

	root.AddCommand(start)
	root.AddCommand(NewMigrateCmd(&configPath))
	return root
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
