// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/citeverify/internal/batch"
	"github.com/pdiddy/citeverify/pkg/types"
)

// statusOrder fixes the order of summary counts.
var statusOrder = []types.Status{
	types.StatusVerified,
	types.StatusWarning,
	types.StatusIssue,
	types.StatusRetracted,
	types.StatusNotFound,
	types.StatusDuplicate,
	types.StatusPending,
}

// reportDoc is the serialized form of a batch report.
type reportDoc struct {
	BatchID         string                 `json:"batch_id" yaml:"batch_id"`
	Results         []types.Record         `json:"results" yaml:"results"`
	DuplicateGroups []types.DuplicateGroup `json:"duplicate_groups" yaml:"duplicate_groups"`
	Summary         map[string]int         `json:"summary" yaml:"summary"`
}

func validFormat(f string) bool {
	return f == "table" || f == "json" || f == "yaml"
}

func newReportDoc(rep *batch.Report) reportDoc {
	doc := reportDoc{
		BatchID:         rep.BatchID,
		Results:         make([]types.Record, 0, len(rep.Results)),
		DuplicateGroups: rep.Groups,
		Summary:         make(map[string]int),
	}
	if doc.DuplicateGroups == nil {
		doc.DuplicateGroups = []types.DuplicateGroup{}
	}
	for _, r := range rep.Results {
		doc.Results = append(doc.Results, r.Record())
	}
	for s, n := range rep.Counts() {
		doc.Summary[string(s)] = n
	}
	return doc
}

func writeReport(w io.Writer, format string, rep *batch.Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newReportDoc(rep))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newReportDoc(rep)); err != nil {
			return err
		}
		return enc.Close()
	default:
		writeTable(w, rep.Results)
		return nil
	}
}

func writeTable(w io.Writer, results []types.VerificationResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No citations.")
		return
	}

	fmt.Fprintf(w, "%-20s  %-10s  %5s  %-16s  %s\n", "Key", "Status", "Conf", "Source", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 100))

	for _, r := range results {
		title := r.CanonicalTitle
		if title == "" {
			title = r.Citation.Title
		}
		fmt.Fprintf(w, "%-20s  %-10s  %5.1f  %-16s  %s\n",
			truncate(r.Citation.Key, 20), r.DisplayStatus(), r.Confidence,
			truncate(r.SelectedSource, 16), truncate(title, 44))
		for _, is := range r.Issues {
			fmt.Fprintf(w, "%22s- [%s] %s\n", "", is.Severity, is)
		}
	}
}

func writeSummary(w io.Writer, rep *batch.Report) {
	counts := rep.Counts()
	parts := make([]string, 0, len(statusOrder))
	for _, s := range statusOrder {
		if n := counts[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, s))
		}
	}
	fmt.Fprintf(w, "\n%d citations", len(rep.Results))
	if len(parts) > 0 {
		fmt.Fprintf(w, ": %s", strings.Join(parts, ", "))
	}
	if len(rep.Groups) > 0 {
		fmt.Fprintf(w, " (%d duplicate groups)", len(rep.Groups))
	}
	fmt.Fprintf(w, " in %s\n", rep.Elapsed.Round(time.Millisecond))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
