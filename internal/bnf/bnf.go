// Package bnf reads and writes .bnf sidecar files.
//
// A sidecar is a small JSON record that sits next to a book's content files
// and carries its catalog metadata. The sidecar on disk is the source of
// truth; the catalog is rebuilt from it. Because external editors also write
// these files, Serialize merges into the existing record instead of
// overwriting it, so fields this tool does not model survive a rewrite.
package bnf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Extension is the sidecar file extension, including the dot.
const Extension = ".bnf"

// Lang identifies the language of a document's content files.
type Lang string

// Known language tags. The zero value means "not set".
const (
	LangRU   Lang = "ru"
	LangEN   Lang = "en"
	LangENRU Lang = "en-ru"
)

// Valid reports whether l is empty or one of the known language tags.
func (l Lang) Valid() bool {
	switch l {
	case "", LangRU, LangEN, LangENRU:
		return true
	}
	return false
}

// Record is the parsed contents of one sidecar file.
type Record struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Lang        Lang     `json:"lang,omitempty"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ParseError indicates a sidecar file whose content is not a well-formed
// JSON record. It is recoverable: the file is skipped and the catalog is
// left unchanged.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed sidecar: %v", e.Err)
	}
	return fmt.Sprintf("malformed sidecar %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes a sidecar record. Missing optional fields (description,
// tags, lang) default to empty. Malformed JSON yields a *ParseError,
// never a panic.
func Parse(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &ParseError{Err: err}
	}
	return &rec, nil
}

// ParseFile reads and decodes the sidecar at path. I/O errors are returned
// as-is; decode errors are returned as a *ParseError carrying the path.
func ParseFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	rec, err := Parse(data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return rec, nil
}

// Serialize encodes rec as indented JSON. When existing holds the current
// on-disk content, fields not modeled by Record are carried over unchanged;
// an unreadable existing record is treated as absent.
func Serialize(rec *Record, existing []byte) ([]byte, error) {
	out := map[string]any{}
	if len(existing) > 0 {
		// Best effort: a malformed existing file has nothing worth keeping.
		_ = json.Unmarshal(existing, &out)
	}

	out["title"] = rec.Title
	out["author"] = rec.Author
	out["description"] = rec.Description
	if rec.Lang != "" {
		out["lang"] = string(rec.Lang)
	} else {
		delete(out, "lang")
	}
	tags := rec.Tags
	if tags == nil {
		tags = []string{}
	}
	out["tags"] = tags

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("failed to encode sidecar: %w", err)
	}
	return buf.Bytes(), nil
}

// IsSidecar reports whether path names a sidecar file.
func IsSidecar(path string) bool {
	return strings.HasSuffix(path, Extension)
}

// BasePath returns path without the sidecar extension. Content files share
// this base: <base>.md, <base>.ru.md, <base>.en.md.
func BasePath(path string) string {
	return strings.TrimSuffix(path, Extension)
}

// ContentPath returns the content markdown file that accompanies a sidecar.
// Monolingual documents use <base>.md; bilingual (en-ru) documents keep
// per-language files and want selects which one.
func ContentPath(sidecarPath string, docLang, want Lang) string {
	base := BasePath(sidecarPath)
	if docLang == LangENRU {
		if want == LangRU {
			return base + ".ru.md"
		}
		return base + ".en.md"
	}
	return base + ".md"
}

var baseNameRe = regexp.MustCompile(`^(.*?)(?:\[(.*?)\])?$`)

// InferIdentity extracts a (title, author) guess from a file's base name
// following the "Title [Author]" naming convention used in library folders.
// Author is empty when the name carries no bracketed part.
func InferIdentity(path string) (title, author string) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	m := baseNameRe.FindStringSubmatch(base)
	if m == nil {
		return strings.TrimSpace(base), ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}
