// Package pagetext turns the HTML of a page into a short plain-text excerpt
// that fits in a notification or a model prompt.
package pagetext

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultLimit is the excerpt size used by failure reports.
const DefaultLimit = 1500

const truncatedMark = "\n... (content truncated) ..."

var strict = bluemonday.StrictPolicy()

// Extract returns the readable text of html. Pages readability cannot make
// sense of (checkout forms usually) fall back to the sanitized body text.
func Extract(html, pageURL string, limit int) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	var b strings.Builder
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		if article.Title != "" {
			fmt.Fprintf(&b, "TITLE: %s\n\n", article.Title)
		}
		b.WriteString(squash(strict.Sanitize(article.TextContent)))
	} else {
		b.WriteString(squash(strict.Sanitize(html)))
	}

	return Truncate(b.String(), limit), nil
}

// Truncate cuts s to at most limit runes, marking the cut. A non-positive
// limit keeps everything.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + truncatedMark
}

// squash drops blank lines and collapses runs of spaces.
func squash(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
