// Package transfer implements data-movement operators. SQLToS3 exports the
// result set of a SQL query to an object store as CSV or JSON lines.
package transfer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Format selects the serialization for exported rows.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// S3Client is the subset of the S3 API the operator needs. Satisfied by
// *s3.Client; tests substitute a fake.
type S3Client interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// SQLToS3 runs a query against a SQL database and uploads the result set to
// an S3 bucket. Rows are spooled to a temp file before upload so the
// database connection is released before any network transfer starts.
type SQLToS3 struct {
	DB      *sql.DB
	Client  S3Client
	Query   string
	Bucket  string
	Key     string
	Format  Format
	Replace bool
	Logger  *slog.Logger
}

// Execute runs the export. With Replace false, an existing object at the
// destination key fails the transfer rather than being overwritten.
func (op *SQLToS3) Execute(ctx context.Context) error {
	logger := op.Logger.With("component", "transfer", "bucket", op.Bucket, "key", op.Key)

	if !op.Replace {
		_, err := op.Client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(op.Bucket),
			Key:    aws.String(op.Key),
		})
		if err == nil {
			return fmt.Errorf("s3 object s3://%s/%s already exists and replace is false", op.Bucket, op.Key)
		}
		var notFound *types.NotFound
		if !errors.As(err, &notFound) {
			return fmt.Errorf("head object: %w", err)
		}
	}

	tmp, err := os.CreateTemp("", "sqltos3-*."+string(op.format()))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	rowCount, err := op.spool(ctx, tmp)
	if err != nil {
		return err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp file: %w", err)
	}

	uploader := manager.NewUploader(op.Client)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(op.Bucket),
		Key:    aws.String(op.Key),
		Body:   tmp,
	}); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", op.Bucket, op.Key, err)
	}

	logger.Info("transfer complete", "rows", rowCount, "format", op.format())
	return nil
}

func (op *SQLToS3) format() Format {
	if op.Format == "" {
		return FormatCSV
	}
	return op.Format
}

// spool runs the query and writes all rows to w in the configured format.
func (op *SQLToS3) spool(ctx context.Context, w io.Writer) (int, error) {
	rows, err := op.DB.QueryContext(ctx, op.Query)
	if err != nil {
		return 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("columns: %w", err)
	}

	switch op.format() {
	case FormatCSV:
		return spoolCSV(rows, cols, w)
	case FormatJSON:
		return spoolJSON(rows, cols, w)
	default:
		return 0, fmt.Errorf("unsupported format %q", op.Format)
	}
}

// scanRow reads the next row into nullable strings, one per column.
func scanRow(rows *sql.Rows, n int) ([]sql.NullString, error) {
	vals := make([]sql.NullString, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return vals, nil
}

func spoolCSV(rows *sql.Rows, cols []string, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	count := 0
	record := make([]string, len(cols))
	for rows.Next() {
		vals, err := scanRow(rows, len(cols))
		if err != nil {
			return count, err
		}
		for i, v := range vals {
			record[i] = v.String
		}
		if err := cw.Write(record); err != nil {
			return count, fmt.Errorf("write row: %w", err)
		}
		count++
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return count, err
	}
	return count, rows.Err()
}

func spoolJSON(rows *sql.Rows, cols []string, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	count := 0
	for rows.Next() {
		vals, err := scanRow(rows, len(cols))
		if err != nil {
			return count, err
		}
		obj := make(map[string]any, len(cols))
		for i, v := range vals {
			if v.Valid {
				obj[cols[i]] = v.String
			} else {
				obj[cols[i]] = nil
			}
		}
		if err := enc.Encode(obj); err != nil {
			return count, fmt.Errorf("encode row: %w", err)
		}
		count++
	}
	return count, rows.Err()
}
