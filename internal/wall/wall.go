// Package wall renders a wall of TikTok embeds into an HTML document. A
// Controller owns one wall: it validates the video list, fetches oEmbed
// markup concurrently, assembles the fragments in list order, writes them
// into a container element in a single assignment, and keeps the result
// fresh on an optional timer. Passes never overlap; triggers that arrive
// while a pass is running coalesce into one trailing pass.
package wall

import (
	"context"
	"fmt"
	"html"
	"strings"
)

// Document is the page surface a Controller renders into. Render passes run
// on their own goroutines, so implementations must tolerate concurrent
// calls.
type Document interface {
	// HasElement reports whether an element with the given id exists.
	HasElement(id string) bool

	// SetElementHTML replaces the content of the element with the given id
	// in one assignment and reports whether the element was found.
	SetElementHTML(id, markup string) bool

	// HasScript reports whether a script tag whose source equals exactly
	// src is present anywhere in the document.
	HasScript(src string) bool

	// AppendScript adds an async script tag for src and calls onLoad once
	// the script has finished loading.
	AppendScript(src string, onLoad func())

	// InvokeEmbedHook asks the page's embed runtime to process fresh
	// embeds, where such a runtime exists.
	InvokeEmbedHook()
}

// Fetcher resolves one video URL to an embeddable HTML fragment.
type Fetcher interface {
	FetchHTML(ctx context.Context, videoURL string) (string, error)
}

// NormalizeID turns a raw container reference into a DOM id: surrounding
// whitespace and one leading # are stripped. ok is false when nothing
// usable remains.
func NormalizeID(raw string) (id string, ok bool) {
	id = strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "#")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false
	}
	return id, true
}

// fallbackFragment takes a failed video's place in the wall, so one bad
// entry degrades visibly instead of breaking the whole render.
func fallbackFragment(videoURL string) string {
	return fmt.Sprintf(
		`<div style="padding:12px;border:1px solid #fca5a5;border-radius:8px;background:#fef2f2;color:#b91c1c;font-family:sans-serif;font-size:13px;">Unable to load TikTok video: %s</div>`,
		html.EscapeString(videoURL),
	)
}
