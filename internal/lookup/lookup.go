// Package lookup provides the fact-lookup tool workers gather evidence with.
package lookup

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrUnavailable is returned when the lookup service keeps failing transiently.
var ErrUnavailable = errors.New("lookup service unavailable")

// Searcher answers a free-text query with reference text.
// An empty result with a nil error means nothing matched.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SearchFunc adapts a function to Searcher.
type SearchFunc func(ctx context.Context, query string) (string, error)

// Search calls f.
func (f SearchFunc) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// StripHTML returns the text content of an HTML fragment with whitespace collapsed.
// Plain text passes through with entities decoded.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			sb.WriteByte(' ')
		}
	}
}
