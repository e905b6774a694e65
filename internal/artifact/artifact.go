// Package artifact persists verdict documents to disk.
package artifact

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Extension is appended to every derived artifact name.
const Extension = ".md"

// Store writes artifacts into a single directory.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Persist writes content under name, overwriting any existing file, and
// returns the absolute path written.
func (s *Store) Persist(name, content string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	path, err := filepath.Abs(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("resolving artifact path: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}

// FileName derives a deterministic ASCII file name from a topic.
// Accents are folded, each space becomes an underscore, and anything else
// outside [A-Za-z0-9.-] is dropped. When the mapping is not reversible
// (characters dropped, whitespace runs collapsed, a literal underscore, or
// nothing left) a short hash of the original topic keeps names distinct.
func FileName(topic string) string {
	topic = strings.TrimSpace(topic)
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), topic)
	if err != nil {
		folded = topic
	}

	var sb strings.Builder
	lossy := false
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.'):
			sb.WriteRune(r)
			lastUnderscore = false
		case r == ' ' && !lastUnderscore:
			sb.WriteByte('_')
			lastUnderscore = true
		default:
			lossy = true
			if unicode.IsSpace(r) || r == '_' {
				if !lastUnderscore {
					sb.WriteByte('_')
					lastUnderscore = true
				}
			}
		}
	}

	slug := strings.Trim(sb.String(), "_.-")
	if slug != sb.String() {
		lossy = true
	}
	if slug == "" || lossy {
		suffix := fmt.Sprintf("%08x", uint32(xxhash.Sum64String(topic)))
		if slug == "" {
			slug = suffix
		} else {
			slug = slug + "_" + suffix
		}
	}
	return slug + Extension
}

// Meta is recorded as YAML front matter ahead of a verdict document.
type Meta struct {
	Topic      string    `yaml:"topic"`
	Outcome    string    `yaml:"outcome"`
	Iterations int       `yaml:"iterations"`
	Model      string    `yaml:"model,omitempty"`
	RunID      string    `yaml:"run_id,omitempty"`
	Problems   []string  `yaml:"format_problems,omitempty"`
	Generated  time.Time `yaml:"generated"`
}

// WithFrontMatter prefixes body with a YAML front matter block.
func WithFrontMatter(meta Meta, body string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.String(), nil
}

// SplitFrontMatter separates a document into its metadata and body.
// Documents without front matter return a zero Meta and the input unchanged.
func SplitFrontMatter(doc string) (Meta, string, error) {
	var meta Meta
	if !strings.HasPrefix(doc, "---\n") {
		return meta, doc, nil
	}
	rest := doc[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return meta, doc, nil
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return meta, doc, fmt.Errorf("parsing front matter: %w", err)
	}
	body := strings.TrimPrefix(rest[end+len("\n---\n"):], "\n")
	return meta, body, nil
}
