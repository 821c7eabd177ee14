package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rohankatakam/burnrisk/internal/models"
	"gopkg.in/yaml.v3"
)

// JSONFormatter writes the persisted JSON shape, indented
type JSONFormatter struct{}

func (f *JSONFormatter) FormatTeam(result *models.TeamResult, w io.Writer) error {
	return WriteJSON(w, result)
}

func (f *JSONFormatter) FormatReport(report *models.ConsistencyReport, w io.Writer) error {
	return WriteJSON(w, report)
}

// WriteJSON encodes any value as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// YAMLFormatter writes the same document as JSONFormatter in YAML.
// Field names and order follow the JSON tags.
type YAMLFormatter struct{}

func (f *YAMLFormatter) FormatTeam(result *models.TeamResult, w io.Writer) error {
	return WriteYAML(w, result)
}

func (f *YAMLFormatter) FormatReport(report *models.ConsistencyReport, w io.Writer) error {
	return WriteYAML(w, report)
}

// WriteYAML encodes v as block YAML using its JSON field names
func WriteYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	// JSON is a YAML subset, so decoding into a node keeps key order
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode json as yaml: %w", err)
	}
	blockStyle(&doc)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// blockStyle drops the flow and quoting styles inherited from JSON
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
