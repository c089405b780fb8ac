package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <run_id>",
		Short: "Show a run and its task instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			resp, err := client.Get("/api/v1/runs/" + id)
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			var run map[string]any
			if err := json.Unmarshal(resp.Data, &run); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			dagID, _ := run["dag_id"].(string)
			state, _ := run["state"].(string)
			fmt.Printf("Run: %s\n", id)
			fmt.Printf("  DAG:   %s\n", dagID)
			fmt.Printf("  State: %s\n", state)
			if logical, ok := run["logical_date"].(string); ok && logical != "" {
				fmt.Printf("  Logical date: %s\n", logical)
			}
			if createdAt, ok := run["created_at"].(string); ok {
				fmt.Printf("  Created: %s (%s)\n", createdAt, age(createdAt))
			}

			tisResp, err := client.Get("/api/v1/runs/" + id + "/tis")
			if err != nil {
				return fmt.Errorf("list task instances: %w", err)
			}
			var tis []map[string]any
			if err := json.Unmarshal(tisResp.Data, &tis); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			if len(tis) > 0 {
				fmt.Println("  Tasks:")
				for _, ti := range tis {
					tiID, _ := ti["id"].(string)
					taskID, _ := ti["task_id"].(string)
					tiState, _ := ti["state"].(string)
					tries, _ := ti["try_number"].(float64)
					if tries > 0 {
						fmt.Printf("    - %s: %s (try %d) [%s]\n", taskID, tiState, int(tries), tiID)
					} else {
						fmt.Printf("    - %s: %s [%s]\n", taskID, tiState, tiID)
					}
				}
			}

			return nil
		},
	}
}
