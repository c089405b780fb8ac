// Package parser converts DAG definition files (YAML) into typed domain
// models, validating structure and timestamps before anything reaches the
// store.
package parser

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/me/godag/internal/timeutil"
	"github.com/me/godag/pkg/model"
	"gopkg.in/yaml.v3"
)

// Parser converts raw DAG YAML into typed domain models.
type Parser struct {
	logger *slog.Logger
}

// New creates a Parser with the given logger.
func New(logger *slog.Logger) *Parser {
	return &Parser{logger: logger.With("component", "parser")}
}

// dagFile mirrors the on-disk YAML shape. Timestamps stay strings here so
// the aware-offset rule can be enforced explicitly rather than left to the
// YAML date parser.
type dagFile struct {
	ID          string     `yaml:"id"`
	Description string     `yaml:"description"`
	Schedule    string     `yaml:"schedule"`
	StartDate   string     `yaml:"start_date"`
	EndDate     string     `yaml:"end_date"`
	Tasks       []taskFile `yaml:"tasks"`
}

type taskFile struct {
	ID                string   `yaml:"id"`
	Upstream          []string `yaml:"upstream"`
	EndDate           string   `yaml:"end_date"`
	MaxRetries        int      `yaml:"max_retries"`
	RetryDelaySeconds int      `yaml:"retry_delay_seconds"`
	RunIf             string   `yaml:"run_if"`
}

// ParseDag parses a DAG definition from YAML and validates it.
func (p *Parser) ParseDag(data []byte) (*model.Dag, error) {
	var raw dagFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if raw.ID == "" {
		return nil, fmt.Errorf("dag id is required")
	}
	if len(raw.Tasks) == 0 {
		return nil, fmt.Errorf("dag %s has no tasks", raw.ID)
	}

	dag := &model.Dag{
		ID:          raw.ID,
		Description: raw.Description,
		Schedule:    raw.Schedule,
	}

	var err error
	if dag.StartDate, err = parseOptionalTime(raw.StartDate); err != nil {
		return nil, fmt.Errorf("dag %s start_date: %w", raw.ID, err)
	}
	if dag.EndDate, err = parseOptionalTime(raw.EndDate); err != nil {
		return nil, fmt.Errorf("dag %s end_date: %w", raw.ID, err)
	}

	seen := make(map[string]bool, len(raw.Tasks))
	for _, tf := range raw.Tasks {
		if tf.ID == "" {
			return nil, fmt.Errorf("dag %s: task id is required", raw.ID)
		}
		if seen[tf.ID] {
			return nil, fmt.Errorf("dag %s: duplicate task id %q", raw.ID, tf.ID)
		}
		seen[tf.ID] = true

		td := model.TaskDef{
			ID:                tf.ID,
			Upstream:          tf.Upstream,
			MaxRetries:        tf.MaxRetries,
			RetryDelaySeconds: tf.RetryDelaySeconds,
			RunIf:             tf.RunIf,
		}
		if td.EndDate, err = parseOptionalTime(tf.EndDate); err != nil {
			return nil, fmt.Errorf("dag %s task %s end_date: %w", raw.ID, tf.ID, err)
		}
		dag.Tasks = append(dag.Tasks, td)
	}

	for _, td := range dag.Tasks {
		for _, up := range td.Upstream {
			if !seen[up] {
				return nil, fmt.Errorf("dag %s: task %s references unknown upstream %q", raw.ID, td.ID, up)
			}
		}
	}
	if err := checkAcyclic(dag); err != nil {
		return nil, fmt.Errorf("dag %s: %w", raw.ID, err)
	}

	p.logger.Debug("parsed dag", "id", dag.ID, "tasks", len(dag.Tasks))
	return dag, nil
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := timeutil.ParseAware(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// checkAcyclic rejects DAGs whose upstream edges contain a cycle, via
// depth-first traversal with a three-color marking.
func checkAcyclic(dag *model.Dag) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(dag.Tasks))
	upstream := make(map[string][]string, len(dag.Tasks))
	for _, td := range dag.Tasks {
		upstream[td.ID] = td.Upstream
	}

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return fmt.Errorf("cycle detected through task %q", id)
		case black:
			return nil
		}
		color[id] = gray
		for _, up := range upstream[id] {
			if err := visit(up); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}

	for _, td := range dag.Tasks {
		if err := visit(td.ID); err != nil {
			return err
		}
	}
	return nil
}
