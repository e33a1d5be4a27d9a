package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamathanirudh/labstack/pkg/client"
	"github.com/kamathanirudh/labstack/pkg/types"
)

var labCmd = &cobra.Command{
	Use:   "lab",
	Short: "Manage labs",
	Long:  `Create, inspect, and terminate ephemeral lab sandboxes.`,
}

var createCmd = &cobra.Command{
	Use:   "create <lab-type>",
	Short: "Create a new lab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")

		// Only send a TTL when --ttl was given, so the server default
		// applies otherwise and an explicit --ttl 0 is honored.
		var ttl *int
		if cmd.Flags().Changed("ttl") {
			v, _ := cmd.Flags().GetInt("ttl")
			ttl = &v
		}

		c := client.NewClient(baseURL)
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		created, err := c.CreateLab(ctx, args[0], ttl)
		if err != nil {
			return fmt.Errorf("failed to create lab: %w", err)
		}

		fmt.Printf("✓ Lab created: %s\n", created.LabID)
		if !wait {
			fmt.Printf("  Poll with: labctl lab status %s\n", created.LabID)
			return nil
		}

		return pollUntilReady(c, created.LabID)
	},
}

// pollUntilReady polls lab status every few seconds until the lab is ready,
// terminated, or the wait times out.
func pollUntilReady(c *client.Client, labID string) error {
	deadline := time.Now().Add(5 * time.Minute)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		status, err := c.LabStatus(ctx, labID)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to poll lab: %w", err)
		}

		switch status.Status {
		case types.LabStatusReady:
			fmt.Printf("  Status: ready\n")
			fmt.Printf("  Access URL: %s\n", *status.AccessURL)
			return nil
		case types.LabStatusTerminated:
			fmt.Printf("  Status: terminated\n")
			return nil
		}

		fmt.Println("  Status: pending, waiting...")
		time.Sleep(5 * time.Second)
	}
	return fmt.Errorf("lab %s did not become ready in time", labID)
}

var statusCmd = &cobra.Command{
	Use:   "status <lab-id>",
	Short: "Show the current status of a lab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(baseURL)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		status, err := c.LabStatus(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get lab status: %w", err)
		}

		fmt.Printf("Status: %s\n", status.Status)
		if status.AccessURL != nil {
			fmt.Printf("Access URL: %s\n", *status.AccessURL)
		}
		return nil
	},
}

var terminateCmd = &cobra.Command{
	Use:   "terminate <lab-id>",
	Short: "Terminate a lab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(baseURL)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := c.TerminateLab(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to terminate lab: %w", err)
		}

		fmt.Printf("✓ Lab %s terminated\n", args[0])
		return nil
	},
}

func init() {
	createCmd.Flags().Int("ttl", 0, "TTL in minutes from VM boot (omit to use the server default; 0 shuts down at boot)")
	createCmd.Flags().Bool("wait", false, "Poll until the lab is reachable")

	labCmd.AddCommand(createCmd)
	labCmd.AddCommand(statusCmd)
	labCmd.AddCommand(terminateCmd)
	rootCmd.AddCommand(labCmd)
}
