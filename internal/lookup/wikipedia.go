package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vinayprograms/agentkit/logging"
	"github.com/vinayprograms/court/internal/retry"
)

// DefaultEndpoint is the English Wikipedia action API.
const DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

// WikipediaConfig configures the Wikipedia searcher.
type WikipediaConfig struct {
	Endpoint  string
	Results   int // Pages summarized per query
	MaxChars  int // Cap on the returned text
	UserAgent string
	Timeout   time.Duration
	Retry     retry.Policy
}

// Wikipedia searches page titles and returns their plain-text introductions.
type Wikipedia struct {
	cfg    WikipediaConfig
	client *http.Client
	logger *logging.Logger
}

// NewWikipedia creates a searcher with defaults filled in.
func NewWikipedia(cfg WikipediaConfig) *Wikipedia {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Results <= 0 {
		cfg.Results = 3
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 4000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry = retry.Default()
	}
	return &Wikipedia{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logging.New().WithComponent("lookup"),
	}
}

// Search finds the top pages for query and formats one block per page:
//
//	Page: <title>
//	Summary: <intro>
//
// Blocks are separated by a blank line and the whole result is truncated to MaxChars.
func (w *Wikipedia) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}

	out, err := retry.Do(ctx, w.cfg.Retry, nil, func() (string, error) {
		return w.search(ctx, query)
	}, func(err error, wait time.Duration) {
		w.logger.Warn("wikipedia lookup failed, retrying", map[string]interface{}{
			"query": query,
			"wait":  wait.String(),
			"error": err.Error(),
		})
	})
	if errors.Is(err, retry.ErrExhausted) {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return "", fmt.Errorf("wikipedia search %q: %w", query, err)
	}
	return out, nil
}

func (w *Wikipedia) search(ctx context.Context, query string) (string, error) {
	titles, err := w.searchTitles(ctx, query)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", nil
	}
	extracts, err := w.fetchExtracts(ctx, titles)
	if err != nil {
		return "", err
	}

	var blocks []string
	for _, title := range titles {
		summary := strings.TrimSpace(StripHTML(extracts[title]))
		if summary == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Page: %s\nSummary: %s", title, summary))
	}
	return truncate(strings.Join(blocks, "\n\n"), w.cfg.MaxChars), nil
}

func (w *Wikipedia) searchTitles(ctx context.Context, query string) ([]string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {fmt.Sprint(w.cfg.Results)},
		"srprop":   {""},
		"format":   {"json"},
	}
	var resp struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := w.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	titles := make([]string, 0, len(resp.Query.Search))
	for _, r := range resp.Query.Search {
		titles = append(titles, r.Title)
	}
	return titles, nil
}

func (w *Wikipedia) fetchExtracts(ctx context.Context, titles []string) (map[string]string, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"redirects":   {"1"},
		"titles":      {strings.Join(titles, "|")},
		"format":      {"json"},
	}
	var resp struct {
		Query struct {
			Redirects []struct {
				From string `json:"from"`
				To   string `json:"to"`
			} `json:"redirects"`
			Pages map[string]struct {
				Title   string `json:"title"`
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := w.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		out[p.Title] = p.Extract
	}
	for _, r := range resp.Query.Redirects {
		if _, ok := out[r.From]; !ok {
			out[r.From] = out[r.To]
		}
	}
	return out, nil
}

func (w *Wikipedia) get(ctx context.Context, params url.Values, into interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", w.cfg.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if w.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", w.cfg.UserAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("wikipedia request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("wikipedia error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("failed to parse wikipedia response: %w", err)
	}
	return nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
