package cli

import (
	"database/sql"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/me/godag/internal/transfer"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func newTransferCmd() *cobra.Command {
	var (
		flagDB      string
		flagQuery   string
		flagBucket  string
		flagKey     string
		flagFormat  string
		flagReplace bool
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Export a SQL query result to S3",
		Long:  "Runs a query against a SQLite database and uploads the rows to S3 as CSV or JSON lines.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagQuery == "" || flagBucket == "" || flagKey == "" {
				return fmt.Errorf("--query, --bucket, and --key are required")
			}

			db, err := sql.Open("sqlite", flagDB)
			if err != nil {
				return fmt.Errorf("open database %s: %w", flagDB, err)
			}
			defer db.Close()

			awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context())
			if err != nil {
				return fmt.Errorf("load AWS config: %w", err)
			}

			op := &transfer.SQLToS3{
				DB:      db,
				Client:  s3.NewFromConfig(awsCfg),
				Query:   flagQuery,
				Bucket:  flagBucket,
				Key:     flagKey,
				Format:  transfer.Format(flagFormat),
				Replace: flagReplace,
				Logger:  logger,
			}
			if err := op.Execute(cmd.Context()); err != nil {
				return err
			}
			fmt.Printf("Uploaded to s3://%s/%s\n", flagBucket, flagKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&flagDB, "db", "godag.db", "SQLite database path")
	cmd.Flags().StringVar(&flagQuery, "query", "", "SQL query to export")
	cmd.Flags().StringVar(&flagBucket, "bucket", "", "Destination S3 bucket")
	cmd.Flags().StringVar(&flagKey, "key", "", "Destination S3 key")
	cmd.Flags().StringVar(&flagFormat, "format", "csv", "Output format (csv, json)")
	cmd.Flags().BoolVar(&flagReplace, "replace", false, "Overwrite an existing object")
	return cmd
}
