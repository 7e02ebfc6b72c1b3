package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/common/expfmt"
	"gopkg.in/yaml.v3"
)

// WriteText writes the metrics in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTable renders results as a table, one row per run.
func WriteTable(w io.Writer, results []*Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Name", "Outcome", "Status", "PID", "Runtime", "Log")
	for _, r := range results {
		detail := r.Status.String()
		if r.Error != "" {
			detail = r.Error
		}
		pid := "-"
		if r.PID > 0 {
			pid = fmt.Sprintf("%d", r.PID)
		}
		if err := table.Append(
			r.Name,
			r.Outcome(),
			truncate(detail, 60),
			pid,
			r.Duration.Round(time.Millisecond).String(),
			r.LogPath,
		); err != nil {
			return err
		}
	}
	return table.Render()
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []*Result) error {
	if results == nil {
		results = []*Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// WriteYAML writes results as a YAML sequence.
func WriteYAML(w io.Writer, results []*Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(results); err != nil {
		return err
	}
	return enc.Close()
}

// Write renders results in the named format: table, json or yaml.
func Write(w io.Writer, format string, results []*Result) error {
	switch strings.ToLower(format) {
	case "", "table":
		return WriteTable(w, results)
	case "json":
		return WriteJSON(w, results)
	case "yaml", "yml":
		return WriteYAML(w, results)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
