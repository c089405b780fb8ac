package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// age renders an RFC 3339 timestamp as a relative duration, or the raw
// string if it does not parse.
func age(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return humanize.Time(t)
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered DAGs",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/dags")
			if err != nil {
				return fmt.Errorf("list DAGs: %w", err)
			}

			var data []map[string]any
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(data) == 0 {
				fmt.Println("No DAGs found.")
				return nil
			}

			fmt.Printf("%-24s  %-12s  %-40s  %s\n", "ID", "SCHEDULE", "DESCRIPTION", "CREATED")
			fmt.Printf("%-24s  %-12s  %-40s  %s\n", "----", "--------", "-----------", "-------")
			for _, dag := range data {
				id, _ := dag["id"].(string)
				schedule, _ := dag["schedule"].(string)
				desc, _ := dag["description"].(string)
				createdAt, _ := dag["created_at"].(string)
				if schedule == "" {
					schedule = "-"
				}
				fmt.Printf("%-24s  %-12s  %-40s  %s\n", id, schedule, desc, age(createdAt))
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(data), resp.Pagination.Total)
			}

			return nil
		},
	}
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs <dag_id>",
		Short: "List runs of a DAG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/dags/" + args[0] + "/runs")
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			var data []map[string]any
			if err := json.Unmarshal(resp.Data, &data); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(data) == 0 {
				fmt.Println("No runs found.")
				return nil
			}

			fmt.Printf("%-16s  %-10s  %-24s  %s\n", "RUN", "STATE", "LOGICAL DATE", "CREATED")
			fmt.Printf("%-16s  %-10s  %-24s  %s\n", "---", "-----", "------------", "-------")
			for _, run := range data {
				id, _ := run["id"].(string)
				state, _ := run["state"].(string)
				logical, _ := run["logical_date"].(string)
				createdAt, _ := run["created_at"].(string)
				if logical == "" {
					logical = "-"
				}
				fmt.Printf("%-16s  %-10s  %-24s  %s\n", id, state, logical, age(createdAt))
			}

			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Printf("\n(%d of %d shown)\n", len(data), resp.Pagination.Total)
			}

			return nil
		},
	}
}
