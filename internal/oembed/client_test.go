package oembed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testVideoURL = "https://www.tiktok.com/@scout2015/video/6718335390845095173"

// newTestClient spins up a stub oEmbed server and a Client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithEndpoint(srv.URL), WithDoer(srv.Client()))
}

func TestFetch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != testVideoURL {
			t.Errorf("url query param = %q, want %q", got, testVideoURL)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header = %q, want application/json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"title": "Scramble up ur name",
			"author_name": "Scout & Suki",
			"thumbnail_url": "https://p16.tiktokcdn.com/thumb.jpg",
			"html": "<blockquote class=\"tiktok-embed\" cite=\"` + testVideoURL + `\"></blockquote>"
		}`))
	})

	embed, err := client.Fetch(context.Background(), testVideoURL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if embed.Title != "Scramble up ur name" {
		t.Errorf("Title = %q", embed.Title)
	}
	if embed.AuthorName != "Scout & Suki" {
		t.Errorf("AuthorName = %q", embed.AuthorName)
	}
	if embed.ThumbnailURL != "https://p16.tiktokcdn.com/thumb.jpg" {
		t.Errorf("ThumbnailURL = %q", embed.ThumbnailURL)
	}
	if !strings.Contains(embed.HTML, "tiktok-embed") {
		t.Errorf("HTML = %q, want embed blockquote", embed.HTML)
	}
}

func TestFetchEncodesVideoURL(t *testing.T) {
	withQuery := testVideoURL + "?is_copy_url=1&lang=en"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("url"); got != withQuery {
			t.Errorf("url query param = %q, want %q", got, withQuery)
		}
		w.Write([]byte(`{"html": "<blockquote></blockquote>"}`))
	})

	if _, err := client.Fetch(context.Background(), withQuery); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "video not found", http.StatusNotFound)
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "oops", http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<!DOCTYPE html><html>captcha page</html>"))
			},
		},
		{
			name: "missing html field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"title": "no markup here"}`))
			},
		},
		{
			name: "blank html field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"html": "   "}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			if _, err := client.Fetch(context.Background(), testVideoURL); err == nil {
				t.Error("Fetch() succeeded, want error")
			}
		})
	}
}

func TestFetchHonorsContextDeadline(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.Fetch(ctx, testVideoURL)
	if err == nil {
		t.Fatal("Fetch() succeeded, want deadline error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestFetchHTMLStripsScripts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"html": "<blockquote class=\"tiktok-embed\">clip</blockquote> <script async src=\"https://www.tiktok.com/embed.js\"></script>"}`))
	})

	fragment, err := client.FetchHTML(context.Background(), testVideoURL)
	if err != nil {
		t.Fatalf("FetchHTML() error = %v", err)
	}
	if strings.Contains(fragment, "<script") {
		t.Errorf("FetchHTML() = %q, want script stripped", fragment)
	}
	if !strings.Contains(fragment, "tiktok-embed") {
		t.Errorf("FetchHTML() = %q, want blockquote kept", fragment)
	}
}

func TestFetchRateLimitPacesRequests(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"html": "<blockquote></blockquote>"}`))
	}
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)

	client := New(WithEndpoint(srv.URL), WithDoer(srv.Client()), WithRateLimit(25))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), testVideoURL); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	// 25 rps with burst 1 spaces requests 40ms apart: 3 calls need >= 80ms.
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("3 throttled fetches took %v, want at least ~80ms", elapsed)
	}
}

func TestStripScripts(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     string
	}{
		{
			name:     "no script returns input unchanged",
			fragment: `<blockquote class="tiktok-embed" cite="x"><section>hi</section></blockquote>`,
			want:     `<blockquote class="tiktok-embed" cite="x"><section>hi</section></blockquote>`,
		},
		{
			name:     "trailing script removed",
			fragment: `<blockquote>clip</blockquote><script async src="https://www.tiktok.com/embed.js"></script>`,
			want:     `<blockquote>clip</blockquote>`,
		},
		{
			name:     "nested and repeated scripts removed",
			fragment: `<div><script>var a=1;</script><p>keep</p></div><script src="x.js"></script>`,
			want:     `<div><p>keep</p></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripScripts(tt.fragment); got != tt.want {
				t.Errorf("stripScripts() = %q, want %q", got, tt.want)
			}
		})
	}
}
