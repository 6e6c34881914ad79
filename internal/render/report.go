package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/section6nz/3scale-sync/internal/runner"
)

// Summary is the serializable form of a run report
type Summary struct {
	RunID       string           `json:"runId" yaml:"runId"`
	Environment string           `json:"environment" yaml:"environment"`
	Duration    string           `json:"duration" yaml:"duration"`
	Failed      int              `json:"failed" yaml:"failed"`
	Products    []ProductSummary `json:"products" yaml:"products"`
}

// ProductSummary is the outcome of one product
type ProductSummary struct {
	Name       string   `json:"name" yaml:"name"`
	SystemName string   `json:"systemName,omitempty" yaml:"systemName,omitempty"`
	ProductID  int64    `json:"productId,omitempty" yaml:"productId,omitempty"`
	Status     string   `json:"status" yaml:"status"`
	Promoted   bool     `json:"promoted" yaml:"promoted"`
	Duration   string   `json:"duration" yaml:"duration"`
	FailedStep string   `json:"failedStep,omitempty" yaml:"failedStep,omitempty"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	Changes    []string `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Summarize flattens a report, keeping declaration order
func Summarize(runID string, report *runner.Report) *Summary {
	s := &Summary{
		RunID:       runID,
		Environment: report.Environment,
		Duration:    report.Duration.Round(time.Millisecond).String(),
		Failed:      len(report.Failed()),
		Products:    make([]ProductSummary, 0, len(report.Products)),
	}
	for _, p := range report.Products {
		ps := ProductSummary{Name: p.Name, Status: "OK"}
		if res := p.Result; res != nil {
			ps.SystemName = res.SystemName
			ps.ProductID = res.ProductID
			ps.Promoted = res.Promoted
			ps.Duration = res.Duration.Round(time.Millisecond).String()
			ps.FailedStep = res.FailedStep
			for _, c := range res.Changes {
				ps.Changes = append(ps.Changes, c.String())
			}
		}
		if p.Err != nil {
			ps.Status = "FAILED"
			ps.Error = p.Err.Error()
		}
		s.Products = append(s.Products, ps)
	}
	return s
}

// WriteTable prints the summary as a table
func WriteTable(w io.Writer, s *Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Product", "ID", "Status", "Changes", "Promoted", "Duration", "Error"})

	for _, p := range s.Products {
		status := text.FgGreen.Sprint(p.Status)
		if p.Error != "" {
			status = text.FgRed.Sprint(p.Status)
		}
		id := "-"
		if p.ProductID != 0 {
			id = fmt.Sprint(p.ProductID)
		}
		promoted := "no"
		if p.Promoted {
			promoted = "yes"
		}
		errText := p.Error
		if p.FailedStep != "" {
			errText = fmt.Sprintf("[%s] %s", p.FailedStep, p.Error)
		}
		t.AppendRow(table.Row{p.Name, id, status, len(p.Changes), promoted, p.Duration, errText})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", s.Duration, fmt.Sprintf("%d failed", s.Failed)})
	t.Render()
}

// RenderJSON renders the summary as JSON
func RenderJSON(s *Summary) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

// RenderYAML renders the summary as YAML
func RenderYAML(s *Summary) ([]byte, error) {
	return yaml.Marshal(s)
}

// WriteFile writes the summary to path (JSON or YAML based on extension)
func WriteFile(s *Summary, path string) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	var data []byte
	var err error
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = RenderYAML(s)
	default:
		data, err = RenderJSON(s)
	}
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}
