// Package server provides a read-only web view of the catalog.
//
// It never touches the filesystem for catalog state; all data comes from
// the catalog store's query interface. Content markdown files adjacent to
// a document's sidecar are rendered for the detail page, including a
// side-by-side view for bilingual (en-ru) documents.
package server

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/nbelyaev/libri/internal/bnf"
	"github.com/nbelyaev/libri/internal/catalog"
)

// Server serves the catalog over HTTP.
type Server struct {
	store *catalog.Store
	addr  string
	md    goldmark.Markdown
}

// New creates a Server for the given store.
func New(store *catalog.Store, addr string) *Server {
	return &Server{
		store: store,
		addr:  addr,
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handler returns the HTTP handler (exposed for testing).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/book/", s.handleBook)
	return mux
}

type indexData struct {
	Query     string
	Tag       string
	Author    string
	Favorites bool
	Documents []catalog.Document
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	q := r.URL.Query()
	data := indexData{
		Query:     strings.TrimSpace(q.Get("q")),
		Tag:       strings.TrimSpace(q.Get("tag")),
		Author:    strings.TrimSpace(q.Get("author")),
		Favorites: q.Get("fav") == "1",
	}

	opts := catalog.QueryOptions{
		Filter:        data.Query,
		Author:        data.Author,
		FavoritesOnly: data.Favorites,
	}
	if data.Tag != "" {
		opts.Tags = []string{data.Tag}
	}

	docs, err := s.store.Query(opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data.Documents = docs

	s.render(w, indexTmpl, data)
}

type bookData struct {
	Document  *catalog.Document
	Content   template.HTML
	Bilingual bool
	// Rows holds the side-by-side line pairs for the en-ru view.
	Rows [][2]string
	Ver  string
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	idStr := strings.TrimPrefix(r.URL.Path, "/book/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	doc, err := s.store.GetDocument(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if doc == nil {
		http.NotFound(w, r)
		return
	}

	data := bookData{
		Document:  doc,
		Bilingual: doc.Lang == bnf.LangENRU,
		Ver:       r.URL.Query().Get("ver"),
	}

	switch {
	case data.Bilingual && (data.Ver == "" || data.Ver == "en-ru"):
		en := readContent(bnf.ContentPath(doc.SidecarPath, doc.Lang, bnf.LangEN))
		ru := readContent(bnf.ContentPath(doc.SidecarPath, doc.Lang, bnf.LangRU))
		data.Rows = pairLines(en, ru)
	case data.Bilingual:
		data.Content = s.renderMarkdown(readContent(
			bnf.ContentPath(doc.SidecarPath, doc.Lang, bnf.Lang(data.Ver))))
	default:
		data.Content = s.renderMarkdown(readContent(
			bnf.ContentPath(doc.SidecarPath, doc.Lang, doc.Lang)))
	}

	s.render(w, bookTmpl, data)
}

func (s *Server) render(w http.ResponseWriter, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderMarkdown(content string) template.HTML {
	if content == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}

func readContent(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// pairLines aligns two texts line by line for the bilingual view, padding
// the shorter one with empty lines.
func pairLines(en, ru string) [][2]string {
	if en == "" && ru == "" {
		return nil
	}
	enLines := splitTrimmed(en)
	ruLines := splitTrimmed(ru)

	n := len(enLines)
	if len(ruLines) > n {
		n = len(ruLines)
	}
	rows := make([][2]string, n)
	for i := 0; i < n; i++ {
		var row [2]string
		if i < len(enLines) {
			row[0] = enLines[i]
		}
		if i < len(ruLines) {
			row[1] = ruLines[i]
		}
		rows[i] = row
	}
	return rows
}

func splitTrimmed(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return lines
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Library</title>
	<style>
		body { font-family: sans-serif; margin: 20px; }
		table { border-collapse: collapse; width: 100%; }
		th, td { border: 1px solid #ddd; padding: 8px; }
		th { background: #f2f2f2; }
		a { text-decoration: none; color: #2255cc; }
		.fav { color: #cc8800; }
	</style>
</head>
<body>
	<h1>Library</h1>
	<form method="get">
		<input type="text" name="q" placeholder="Search..." value="{{.Query}}">
		<button type="submit">Search</button>
		{{if or .Query .Tag .Author .Favorites}}<a href="/" style="margin-left:10px;">Reset</a>{{end}}
		<a href="/?fav=1" style="margin-left:10px;">Favorites</a>
	</form>
	<br>
	<table>
		<tr><th>ID</th><th>Author</th><th>Title</th><th>Tags</th><th>Lang</th></tr>
		{{range .Documents}}
		<tr>
			<td>{{.ID}}</td>
			<td><a href="/?author={{.Author}}">{{.Author}}</a></td>
			<td><a href="/book/{{.ID}}">{{.Title}}</a>{{if .Favorite}} <span class="fav">★</span>{{end}}</td>
			<td>{{range $i, $t := .Tags}}{{if $i}}, {{end}}<a href="/?tag={{$t}}">{{$t}}</a>{{end}}</td>
			<td>{{.Lang}}</td>
		</tr>
		{{end}}
	</table>
</body>
</html>
`))

var bookTmpl = template.Must(template.New("book").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>{{.Document.Title}}</title>
	<style>
		body { font-family: sans-serif; margin: 20px; }
		.content { border: 1px solid #ccc; padding: 10px; background: #fafafa; }
		.lang-btn { margin-right: 10px; padding: 4px 8px; border: 1px solid #ccc;
			background: #f8f8f8; display: inline-block; text-decoration: none; color: black; }
		table { border-collapse: collapse; width: 100%; }
		th, td { border: 1px solid #ccc; padding: 5px; vertical-align: top; width: 50%; }
		th { background: #f2f2f2; }
		a { color: #2255cc; }
	</style>
</head>
<body>
	<p><a href="/">Back to list</a></p>
	<h1>{{.Document.Title}}</h1>
	<p><b>Author:</b> <a href="/?author={{.Document.Author}}">{{.Document.Author}}</a></p>
	<p><b>Tags:</b>
		{{range $i, $t := .Document.Tags}}{{if $i}}, {{end}}<a href="/?tag={{$t}}">{{$t}}</a>{{end}}
	</p>
	<p><b>Lang:</b> {{.Document.Lang}}</p>
	{{if .Document.Description}}<p>{{.Document.Description}}</p>{{end}}

	{{if .Bilingual}}
	<div>
		<a href="/book/{{.Document.ID}}?ver=ru" class="lang-btn">RU</a>
		<a href="/book/{{.Document.ID}}?ver=en" class="lang-btn">EN</a>
		<a href="/book/{{.Document.ID}}?ver=en-ru" class="lang-btn">EN-RU</a>
	</div>
	{{end}}
	<hr>

	{{if .Rows}}
	<table>
		<tr><th>EN</th><th>RU</th></tr>
		{{range .Rows}}<tr><td>{{index . 0}}</td><td>{{index . 1}}</td></tr>
		{{end}}
	</table>
	{{else}}
	<div class="content">{{.Content}}</div>
	{{end}}
</body>
</html>
`))
