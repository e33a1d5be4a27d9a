package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var baseURL string

var rootCmd = &cobra.Command{
	Use:   "labctl",
	Short: "labstack CLI - Manage ephemeral lab sandboxes from the command line",
	Long: `labctl is a command-line tool for the labstack control plane.

It provides commands to create labs, poll them until they are reachable,
terminate them, and list the available lab templates.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", getEnvOrDefault("LABSTACK_API_URL", "http://localhost:8080"), "labstack API base URL")
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}
