package output

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"stagewise/internal/errors"
	"stagewise/internal/staging"
)

// Format selects a rendering
type Format string

const (
	FormatHuman    Format = "human"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// Formats lists every supported format
var Formats = []Format{FormatHuman, FormatJSON, FormatYAML, FormatMarkdown}

// ParseFormat converts a flag value to a Format
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	names := make([]string, len(Formats))
	for i, known := range Formats {
		names[i] = string(known)
	}
	return "", errors.NewValidationError("format",
		fmt.Sprintf("unsupported format %q (want one of %s)", s, strings.Join(names, ", ")))
}

// Render writes doc to w in the given format
func Render(w io.Writer, doc staging.Document, format Format) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, doc)
	case FormatYAML:
		return renderYAML(w, doc)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatHuman:
		_, err := io.WriteString(w, NewTerminal(w).Render(doc))
		return err
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func renderJSON(w io.Writer, doc staging.Document) error {
	data, err := DeterministicEncodeIndented(doc, "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func renderYAML(w io.Writer, doc staging.Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
