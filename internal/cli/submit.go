package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <dag.yaml>",
		Short: "Register a DAG from a YAML definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read DAG file: %w", err)
			}

			resp, err := client.PostRaw("/api/v1/dags", "application/yaml", data)
			if err != nil {
				return fmt.Errorf("register DAG: %w", err)
			}

			var dag map[string]any
			if err := json.Unmarshal(resp.Data, &dag); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			id, _ := dag["id"].(string)
			fmt.Printf("DAG registered: %s\n", id)
			if tasks, ok := dag["tasks"].([]any); ok {
				fmt.Printf("  Tasks: %d\n", len(tasks))
			}
			return nil
		},
	}
}
