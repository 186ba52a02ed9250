// Package tiktok holds the TikTok-specific knowledge the embed wall needs:
// which hostnames serve videos, where the oEmbed endpoint lives, and which
// script hydrates embed markup on a page.
package tiktok

import (
	"net/url"
	"strings"
)

// OEmbedEndpoint returns embeddable markup for a video URL passed in the
// url query parameter.
const OEmbedEndpoint = "https://www.tiktok.com/oembed"

// EmbedScriptURL is the script that turns embed blockquotes into players.
// A page needs it exactly once.
const EmbedScriptURL = "https://www.tiktok.com/embed.js"

// allowedHosts are the hostnames accepted for video URLs: the bare domain,
// www, the mobile site, and the vm short-link domain.
var allowedHosts = map[string]bool{
	"tiktok.com":     true,
	"www.tiktok.com": true,
	"m.tiktok.com":   true,
	"vm.tiktok.com":  true,
}

// IsVideoURL reports whether raw parses as an absolute URL on one of the
// TikTok video hosts. Hostname comparison is case-insensitive.
func IsVideoURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !u.IsAbs() || u.Host == "" {
		return false
	}
	return allowedHosts[strings.ToLower(u.Hostname())]
}

// NormalizeVideoURLs builds a render list from raw candidates: entries are
// trimmed, invalid ones dropped, and later duplicates (by exact trimmed
// string) discarded. Output order is first-occurrence input order.
func NormalizeVideoURLs(raw []string) []string {
	var out []string
	seen := make(map[string]bool, len(raw))
	for _, candidate := range raw {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" || seen[candidate] {
			continue
		}
		if !IsVideoURL(candidate) {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
	}
	return out
}
