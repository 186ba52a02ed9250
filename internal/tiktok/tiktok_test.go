package tiktok

import (
	"reflect"
	"testing"
)

func TestIsVideoURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"bare domain", "https://tiktok.com/@user/video/123", true},
		{"www", "https://www.tiktok.com/@user/video/123", true},
		{"mobile", "https://m.tiktok.com/v/123.html", true},
		{"short link", "https://vm.tiktok.com/ZM123abc/", true},
		{"http scheme", "http://www.tiktok.com/@user/video/123", true},
		{"uppercase host", "https://WWW.TikTok.COM/@user/video/123", true},
		{"host with port", "https://www.tiktok.com:443/@user/video/123", true},
		{"other site", "https://evil.com/x", false},
		{"lookalike suffix", "https://tiktok.com.evil.com/x", false},
		{"unknown subdomain", "https://sub.tiktok.com/x", false},
		{"relative", "/@user/video/123", false},
		{"scheme only", "https://", false},
		{"not a url", "not a url", false},
		{"empty", "", false},
		{"no host", "mailto:user@tiktok.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVideoURL(tt.raw); got != tt.want {
				t.Errorf("IsVideoURL(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeVideoURLs(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{
			name: "drops invalid and duplicate entries",
			raw: []string{
				"https://www.tiktok.com/@a/video/1",
				"not a url",
				"https://www.tiktok.com/@a/video/1",
				"https://evil.com/x",
			},
			want: []string{"https://www.tiktok.com/@a/video/1"},
		},
		{
			name: "preserves first-occurrence order",
			raw: []string{
				"https://www.tiktok.com/@a/video/2",
				"https://www.tiktok.com/@a/video/1",
				"https://www.tiktok.com/@a/video/2",
				"https://www.tiktok.com/@a/video/3",
			},
			want: []string{
				"https://www.tiktok.com/@a/video/2",
				"https://www.tiktok.com/@a/video/1",
				"https://www.tiktok.com/@a/video/3",
			},
		},
		{
			name: "trims whitespace before validating",
			raw:  []string{"  https://vm.tiktok.com/ZM1/  ", "\thttps://m.tiktok.com/v/9.html\n"},
			want: []string{"https://vm.tiktok.com/ZM1/", "https://m.tiktok.com/v/9.html"},
		},
		{
			name: "trimmed duplicates collapse",
			raw:  []string{"https://www.tiktok.com/@a/video/1", "  https://www.tiktok.com/@a/video/1  "},
			want: []string{"https://www.tiktok.com/@a/video/1"},
		},
		{
			name: "all invalid yields empty",
			raw:  []string{"", "   ", "https://example.com/clip"},
			want: nil,
		},
		{
			name: "nil input",
			raw:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVideoURLs(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeVideoURLs(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
