package parser

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/me/godag/pkg/model"
)

func testParser() *Parser {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const validDag = `
id: nightly_etl
description: nightly warehouse load
schedule: "@daily"
start_date: "2023-01-01T00:00:00Z"
end_date: "2030-01-01T00:00:00Z"
tasks:
  - id: extract
    max_retries: 2
    retry_delay_seconds: 120
  - id: transform
    upstream: [extract]
    run_if: "ti.try_number < 5"
  - id: load
    upstream: [transform]
    end_date: "2029-01-01T00:00:00Z"
`

func TestParseDag(t *testing.T) {
	dag, err := testParser().ParseDag([]byte(validDag))
	if err != nil {
		t.Fatalf("ParseDag: %v", err)
	}
	if dag.ID != "nightly_etl" || len(dag.Tasks) != 3 {
		t.Fatalf("dag = %+v", dag)
	}
	if dag.StartDate == nil || dag.StartDate.Location() != time.UTC {
		t.Errorf("StartDate = %v", dag.StartDate)
	}
	tf := dag.Task("transform")
	if tf == nil || tf.Upstream[0] != "extract" || tf.RunIf == "" {
		t.Errorf("transform = %+v", tf)
	}
	if ld := dag.Task("load"); ld.EndDate == nil {
		t.Error("load end_date not parsed")
	}
}

// A timestamp without an explicit offset is naive and must be rejected at
// the ingestion boundary.
func TestParseDagRejectsNaiveTimestamp(t *testing.T) {
	src := strings.Replace(validDag, `"2023-01-01T00:00:00Z"`, `"2023-01-01T00:00:00"`, 1)
	_, err := testParser().ParseDag([]byte(src))
	if !errors.Is(err, model.ErrNaiveTimestamp) {
		t.Fatalf("err = %v, want ErrNaiveTimestamp", err)
	}
}

func TestParseDagUnknownUpstream(t *testing.T) {
	src := `
id: broken
tasks:
  - id: a
    upstream: [ghost]
`
	_, err := testParser().ParseDag([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "unknown upstream") {
		t.Fatalf("err = %v, want unknown upstream", err)
	}
}

func TestParseDagDuplicateTask(t *testing.T) {
	src := `
id: dup
tasks:
  - id: a
  - id: a
`
	_, err := testParser().ParseDag([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "duplicate task id") {
		t.Fatalf("err = %v, want duplicate task id", err)
	}
}

func TestParseDagCycle(t *testing.T) {
	src := `
id: loop
tasks:
  - id: a
    upstream: [b]
  - id: b
    upstream: [a]
`
	_, err := testParser().ParseDag([]byte(src))
	if err == nil || !strings.Contains(err.Error(), "cycle detected") {
		t.Fatalf("err = %v, want cycle detected", err)
	}
}

func TestParseDagEmpty(t *testing.T) {
	if _, err := testParser().ParseDag([]byte("id: x\n")); err == nil {
		t.Error("dag with no tasks should error")
	}
	if _, err := testParser().ParseDag([]byte("tasks: [{id: a}]\n")); err == nil {
		t.Error("dag with no id should error")
	}
}
