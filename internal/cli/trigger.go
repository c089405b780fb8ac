package cli

import (
	"encoding/json"
	"fmt"

	"github.com/me/godag/pkg/model"
	"github.com/spf13/cobra"
)

func newTriggerCmd() *cobra.Command {
	var flagLogicalDate string

	cmd := &cobra.Command{
		Use:   "trigger <dag_id>",
		Short: "Trigger a new run of a DAG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body any
			if flagLogicalDate != "" {
				body = model.TriggerRunRequest{LogicalDate: flagLogicalDate}
			}

			resp, err := client.Post("/api/v1/dags/"+args[0]+"/runs", body)
			if err != nil {
				return fmt.Errorf("trigger run: %w", err)
			}

			var run map[string]any
			if err := json.Unmarshal(resp.Data, &run); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			id, _ := run["id"].(string)
			fmt.Printf("Run created: %s\n", id)
			if logical, ok := run["logical_date"].(string); ok && logical != "" {
				fmt.Printf("  Logical date: %s\n", logical)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flagLogicalDate, "logical-date", "",
		"Logical date for the run (RFC 3339 with explicit UTC offset)")
	return cmd
}
