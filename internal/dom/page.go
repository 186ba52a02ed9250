// Package dom provides the goquery-backed HTML document the wall renders
// into: an in-memory page that can be parsed from disk, scaffolded fresh,
// mutated by the controller, and serialized back out.
package dom

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"tokwall/internal/wall"
)

var _ wall.Document = (*Page)(nil)

// Page is an in-memory HTML document. All methods are safe for concurrent
// use; the serve mode reads the page while render passes mutate it.
type Page struct {
	mu  sync.Mutex
	doc *goquery.Document
}

// Parse reads an HTML document. Fragments are tolerated: the parser wraps
// them in a full html/head/body skeleton.
func Parse(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	return &Page{doc: doc}, nil
}

// ParseFile reads an HTML document from disk.
func ParseFile(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

// findByID matches elements by exact id attribute. Lookup scans attributes
// rather than compiling an id selector, so ids containing selector
// metacharacters still resolve.
func (p *Page) findByID(id string) *goquery.Selection {
	return p.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	}).First()
}

// HasElement reports whether an element with the given id exists.
func (p *Page) HasElement(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findByID(id).Length() > 0
}

// SetElementHTML replaces the content of the element with the given id in
// one assignment and reports whether the element was found.
func (p *Page) SetElementHTML(id, markup string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	sel := p.findByID(id)
	if sel.Length() == 0 {
		return false
	}
	sel.SetHtml(markup)
	return true
}

// HasScript reports whether a script tag whose src equals exactly the given
// URL is present anywhere in the document.
func (p *Page) HasScript(src string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	found := false
	p.doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("src")
		if v == src {
			found = true
			return false
		}
		return true
	})
	return found
}

// AppendScript appends an async script tag to the document body. A static
// document has no asynchronous load step, so onLoad runs before
// AppendScript returns.
func (p *Page) AppendScript(src string, onLoad func()) {
	p.mu.Lock()
	p.doc.Find("body").First().AppendHtml(
		fmt.Sprintf(`<script async src="%s"></script>`, html.EscapeString(src)))
	p.mu.Unlock()

	if onLoad != nil {
		onLoad()
	}
}

// InvokeEmbedHook is a no-op: a static document has no script runtime. The
// embed script processes the wall when a browser loads the written page.
func (p *Page) InvokeEmbedHook() {}

// HTML serializes the full document, doctype included.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out, err := goquery.OuterHtml(p.doc.Selection)
	if err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return out, nil
}

// WriteFile writes the serialized document to path through a temp file and
// rename, so readers never observe a partially written page.
func (p *Page) WriteFile(path string) error {
	out, err := p.HTML()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokwall-*.html")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(out); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
