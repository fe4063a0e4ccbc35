package report

import (
	"encoding/json"
	"io"

	"github.com/ablizer/ablizer/internal/outcome"
)

// Version is the JSON document format version.
const Version = "1.0.0"

// Document is the top-level JSON output structure.
type Document struct {
	Version  string         `json:"version"`
	Reports  []Report       `json:"reports"`
	Outcomes outcome.Ratios `json:"outcomes"`
}

// NewDocument wraps reports and tallies their verdicts.
func NewDocument(reports []Report) Document {
	if reports == nil {
		reports = []Report{}
	}
	labels := make([]outcome.Label, len(reports))
	for i, r := range reports {
		labels[i] = r.Outcome
	}
	return Document{
		Version:  Version,
		Reports:  reports,
		Outcomes: outcome.Aggregate(labels),
	}
}

// WriteJSON writes reports as formatted JSON to the writer.
func WriteJSON(w io.Writer, reports []Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(reports))
}
