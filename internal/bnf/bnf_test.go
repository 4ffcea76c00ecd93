package bnf

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	t.Run("full record", func(t *testing.T) {
		rec, err := Parse([]byte(`{
			"title": "Мастер и Маргарита",
			"author": "Булгаков",
			"lang": "ru",
			"description": "роман",
			"tags": ["классика", "роман"]
		}`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if rec.Title != "Мастер и Маргарита" {
			t.Errorf("title = %q", rec.Title)
		}
		if rec.Lang != LangRU {
			t.Errorf("lang = %q", rec.Lang)
		}
		if len(rec.Tags) != 2 {
			t.Errorf("expected 2 tags, got %d", len(rec.Tags))
		}
	})

	t.Run("missing optional fields default to empty", func(t *testing.T) {
		rec, err := Parse([]byte(`{"title": "A", "author": "Smith"}`))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if rec.Description != "" {
			t.Errorf("description = %q, want empty", rec.Description)
		}
		if rec.Lang != "" {
			t.Errorf("lang = %q, want empty", rec.Lang)
		}
		if len(rec.Tags) != 0 {
			t.Errorf("tags = %v, want none", rec.Tags)
		}
	})

	t.Run("malformed content yields ParseError", func(t *testing.T) {
		_, err := Parse([]byte("not json at all"))
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
	})
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("attaches path to parse errors", func(t *testing.T) {
		path := filepath.Join(dir, "broken.bnf")
		if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := ParseFile(path)
		var perr *ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
		if perr.Path != path {
			t.Errorf("path = %q, want %q", perr.Path, path)
		}
	})

	t.Run("missing file is an I/O error, not a ParseError", func(t *testing.T) {
		_, err := ParseFile(filepath.Join(dir, "nope.bnf"))
		if err == nil {
			t.Fatal("expected error")
		}
		var perr *ParseError
		if errors.As(err, &perr) {
			t.Errorf("expected plain I/O error, got ParseError")
		}
	})
}

func TestSerialize(t *testing.T) {
	t.Run("preserves unknown fields", func(t *testing.T) {
		existing := []byte(`{
			"title": "Old",
			"author": "Old",
			"isbn": "978-5-17-087885-6",
			"rating": 5
		}`)

		rec := &Record{Title: "New", Author: "Smith", Tags: []string{"x"}}
		out, err := Serialize(rec, existing)
		if err != nil {
			t.Fatalf("serialize failed: %v", err)
		}

		var raw map[string]any
		if err := json.Unmarshal(out, &raw); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if raw["title"] != "New" {
			t.Errorf("title = %v", raw["title"])
		}
		if raw["isbn"] != "978-5-17-087885-6" {
			t.Errorf("unknown field isbn lost: %v", raw["isbn"])
		}
		if raw["rating"] != float64(5) {
			t.Errorf("unknown field rating lost: %v", raw["rating"])
		}
	})

	t.Run("empty lang is omitted", func(t *testing.T) {
		out, err := Serialize(&Record{Title: "A", Author: "B"}, nil)
		if err != nil {
			t.Fatal(err)
		}
		var raw map[string]any
		if err := json.Unmarshal(out, &raw); err != nil {
			t.Fatal(err)
		}
		if _, ok := raw["lang"]; ok {
			t.Error("lang key present for empty lang")
		}
		if _, ok := raw["tags"]; !ok {
			t.Error("tags key missing")
		}
	})

	t.Run("round trip", func(t *testing.T) {
		rec := &Record{
			Title:       "Ёж",
			Author:      "Автор",
			Lang:        LangENRU,
			Description: "desc",
			Tags:        []string{"a", "b"},
		}
		out, err := Serialize(rec, nil)
		if err != nil {
			t.Fatal(err)
		}
		back, err := Parse(out)
		if err != nil {
			t.Fatal(err)
		}
		if back.Title != rec.Title || back.Author != rec.Author || back.Lang != rec.Lang {
			t.Errorf("round trip changed record: %+v", back)
		}
	})
}

func TestContentPath(t *testing.T) {
	tests := []struct {
		name    string
		docLang Lang
		want    Lang
		path    string
	}{
		{"monolingual ru", LangRU, LangRU, "/lib/Book.md"},
		{"monolingual en", LangEN, LangEN, "/lib/Book.md"},
		{"no lang", "", "", "/lib/Book.md"},
		{"bilingual ru side", LangENRU, LangRU, "/lib/Book.ru.md"},
		{"bilingual en side", LangENRU, LangEN, "/lib/Book.en.md"},
		{"bilingual default", LangENRU, LangENRU, "/lib/Book.en.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ContentPath("/lib/Book.bnf", tt.docLang, tt.want)
			if got != tt.path {
				t.Errorf("ContentPath() = %q, want %q", got, tt.path)
			}
		})
	}
}

func TestInferIdentity(t *testing.T) {
	tests := []struct {
		path   string
		title  string
		author string
	}{
		{"/lib/Dune [Herbert].bnf", "Dune", "Herbert"},
		{"/lib/Dune [Herbert].md", "Dune", "Herbert"},
		{"/lib/Плаха [Айтматов].bnf", "Плаха", "Айтматов"},
		{"/lib/NoAuthor.bnf", "NoAuthor", ""},
	}
	for _, tt := range tests {
		title, author := InferIdentity(tt.path)
		if title != tt.title || author != tt.author {
			t.Errorf("InferIdentity(%q) = (%q, %q), want (%q, %q)",
				tt.path, title, author, tt.title, tt.author)
		}
	}
}

func TestLangValid(t *testing.T) {
	for _, l := range []Lang{"", LangRU, LangEN, LangENRU} {
		if !l.Valid() {
			t.Errorf("%q should be valid", l)
		}
	}
	if Lang("fr").Valid() {
		t.Error("fr should not be valid")
	}
}
