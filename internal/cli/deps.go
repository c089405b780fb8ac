package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newDepsCmd() *cobra.Command {
	var (
		flagStrict              bool
		flagIgnoreAllDeps       bool
		flagIgnoreTaskDeps      bool
		flagIgnoreInRetryPeriod bool
		flagRun                 bool
	)

	cmd := &cobra.Command{
		Use:   "deps <ti_id>",
		Short: "Explain why a task instance can or cannot run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			q := url.Values{}
			if flagStrict {
				q.Set("strict", "true")
			}
			if flagIgnoreAllDeps {
				q.Set("ignore_all_deps", "true")
			}
			if flagIgnoreTaskDeps {
				q.Set("ignore_task_deps", "true")
			}
			if flagIgnoreInRetryPeriod {
				q.Set("ignore_in_retry_period", "true")
			}
			query := ""
			if len(q) > 0 {
				query = "?" + q.Encode()
			}

			if flagRun {
				resp, err := client.Post("/api/v1/tis/"+id+"/run"+query, nil)
				if err != nil {
					if resp != nil && resp.Error != nil && len(resp.Error.Details) > 0 {
						fmt.Printf("Task instance %s cannot run:\n", id)
						for _, d := range resp.Error.Details {
							fmt.Printf("  FAIL  %s\n", d.Message)
						}
						return fmt.Errorf("dependencies not met")
					}
					return fmt.Errorf("queue task instance: %w", err)
				}
				fmt.Printf("Task instance %s queued.\n", id)
				return nil
			}

			resp, err := client.Get("/api/v1/tis/" + id + "/deps" + query)
			if err != nil {
				return fmt.Errorf("get dependency statuses: %w", err)
			}

			var report struct {
				Met     bool `json:"met"`
				Failing []struct {
					Reason string `json:"reason"`
				} `json:"failing"`
			}
			if err := json.Unmarshal(resp.Data, &report); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}

			fmt.Printf("Task instance: %s\n", id)
			if report.Met {
				fmt.Println("  Runnable: yes")
			} else {
				fmt.Println("  Runnable: no")
			}
			for _, f := range report.Failing {
				fmt.Printf("  FAIL  %s\n", f.Reason)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&flagStrict, "strict", false, "Ignorable failures block too")
	cmd.Flags().BoolVar(&flagIgnoreAllDeps, "ignore-all-deps", false, "Skip every dependency check")
	cmd.Flags().BoolVar(&flagIgnoreTaskDeps, "ignore-task-deps", false, "Skip the upstream-success check")
	cmd.Flags().BoolVar(&flagIgnoreInRetryPeriod, "ignore-in-retry-period", false, "Skip the retry-backoff check")
	cmd.Flags().BoolVar(&flagRun, "run", false, "Queue the instance if its dependencies are met")
	return cmd
}
