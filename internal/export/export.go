// Package export writes catalog snapshots in machine-readable formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nbelyaev/libri/internal/catalog"
)

// Format identifies an export output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected csv, json, or yaml)", s)
	}
}

type document struct {
	ID          int64    `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Author      string   `json:"author" yaml:"author"`
	Lang        string   `json:"lang,omitempty" yaml:"lang,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Favorite    bool     `json:"favorite" yaml:"favorite"`
	Tags        []string `json:"tags" yaml:"tags"`
	SidecarPath string   `json:"sidecar_path" yaml:"sidecar_path"`
}

func convert(docs []catalog.Document) []document {
	out := make([]document, len(docs))
	for i, d := range docs {
		tags := d.Tags
		if tags == nil {
			tags = []string{}
		}
		out[i] = document{
			ID:          d.ID,
			Title:       d.Title,
			Author:      d.Author,
			Lang:        string(d.Lang),
			Description: d.Description,
			Favorite:    d.Favorite,
			Tags:        tags,
			SidecarPath: d.SidecarPath,
		}
	}
	return out
}

// Write exports docs to w in the given format.
func Write(w io.Writer, format Format, docs []catalog.Document) error {
	switch format {
	case FormatCSV:
		return writeCSV(w, docs)
	case FormatJSON:
		return writeJSON(w, docs)
	case FormatYAML:
		return writeYAML(w, docs)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func writeCSV(w io.Writer, docs []catalog.Document) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "title", "author", "lang", "description", "favorite", "tags", "sidecar_path"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range convert(docs) {
		row := []string{
			strconv.FormatInt(d.ID, 10),
			d.Title,
			d.Author,
			d.Lang,
			d.Description,
			strconv.FormatBool(d.Favorite),
			strings.Join(d.Tags, ", "),
			d.SidecarPath,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, docs []catalog.Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(convert(docs))
}

func writeYAML(w io.Writer, docs []catalog.Document) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(convert(docs))
}
