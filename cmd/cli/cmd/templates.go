package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamathanirudh/labstack/pkg/client"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available lab templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.NewClient(baseURL)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		templates, err := c.ListTemplates(ctx)
		if err != nil {
			return fmt.Errorf("failed to list templates: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tIMAGE\tHOST PORT\tCONTAINER PORT")
		for _, t := range templates {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", t.Name, t.Image, t.HostPort, t.ContainerPort)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}
