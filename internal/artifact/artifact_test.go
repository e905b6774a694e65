package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Example Reformer", "Example_Reformer.md"},
		{"  Example Reformer ", "Example_Reformer.md"},
		{"Napoléon Bonaparte", "Napoleon_Bonaparte.md"},
		{"Fall of Rome 476", "Fall_of_Rome_476.md"},
	}
	for _, tt := range tests {
		if got := FileName(tt.topic); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}

func TestFileName_LossyGetsHashSuffix(t *testing.T) {
	a := FileName("AC/DC")
	b := FileName("AC DC")
	if !strings.HasPrefix(a, "ACDC_") || !strings.HasSuffix(a, ".md") {
		t.Errorf("unexpected name %q", a)
	}
	if a == b {
		t.Error("lossy name should not collide with a clean one")
	}
}

func TestFileName_SeparatorVariantsDoNotCollide(t *testing.T) {
	topics := []string{"A B", "A_B", "A  B", "A\tB", "A B.", "A B-"}
	seen := make(map[string]string)
	for _, topic := range topics {
		name := FileName(topic)
		if prev, ok := seen[name]; ok {
			t.Errorf("FileName(%q) and FileName(%q) both give %q", prev, topic, name)
		}
		seen[name] = topic
		if !strings.HasPrefix(name, "A_B") {
			t.Errorf("FileName(%q) = %q, want an A_B prefix", topic, name)
		}
	}
	if FileName("A B") != "A_B.md" {
		t.Errorf("plain spaces should map without a suffix, got %q", FileName("A B"))
	}
}

func TestFileName_NonLatinIsASCII(t *testing.T) {
	for _, topic := range []string{"สมเด็จพระนเรศวร", "毛泽东", "???"} {
		name := FileName(topic)
		for _, r := range name {
			if r > 127 {
				t.Errorf("FileName(%q) = %q contains non-ASCII", topic, name)
				break
			}
		}
		if name == Extension {
			t.Errorf("FileName(%q) produced an empty stem", topic)
		}
		if FileName(topic) != name {
			t.Errorf("FileName(%q) is not deterministic", topic)
		}
	}
	if FileName("毛泽东") == FileName("สมเด็จพระนเรศวร") {
		t.Error("distinct topics should get distinct names")
	}
}

func TestPersist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "court_reports")
	s := NewStore(dir)

	loc, err := s.Persist("Example_Reformer.md", "first")
	if err != nil {
		t.Fatalf("persist: %v", err)
	}
	if !filepath.IsAbs(loc) {
		t.Errorf("location should be absolute: %q", loc)
	}
	if filepath.Dir(loc) != dir {
		t.Errorf("written outside store dir: %q", loc)
	}

	// Overwrite
	if _, err := s.Persist("Example_Reformer.md", "second"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	data, err := os.ReadFile(loc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("expected overwrite, got %q", data)
	}
}

func TestPersist_RejectsPaths(t *testing.T) {
	s := NewStore(t.TempDir())
	for _, name := range []string{"", "../escape.md", "sub/dir.md", ".."} {
		if _, err := s.Persist(name, "x"); err == nil {
			t.Errorf("Persist(%q) should fail", name)
		}
	}
}

func TestPersist_UnwritableDirectory(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(filepath.Join(blocker, "reports"))
	if _, err := s.Persist("a.md", "x"); err == nil {
		t.Error("expected error when the directory cannot be created")
	}
}

func TestFrontMatter_RoundTrip(t *testing.T) {
	meta := Meta{
		Topic:      "Example Reformer",
		Outcome:    "accepted",
		Iterations: 3,
		Model:      "gemini-2.5-flash",
		Generated:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	doc, err := WithFrontMatter(meta, "## Introduction\n\nBody.")
	if err != nil {
		t.Fatalf("front matter: %v", err)
	}
	if !strings.HasPrefix(doc, "---\ntopic: Example Reformer\n") {
		t.Errorf("unexpected header:\n%s", doc)
	}

	got, body, err := SplitFrontMatter(doc)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got.Topic != meta.Topic || got.Iterations != 3 || !got.Generated.Equal(meta.Generated) {
		t.Errorf("meta mismatch: %+v", got)
	}
	if body != "## Introduction\n\nBody." {
		t.Errorf("body mismatch: %q", body)
	}
}

func TestSplitFrontMatter_NoHeader(t *testing.T) {
	meta, body, err := SplitFrontMatter("## Introduction")
	if err != nil || body != "## Introduction" || meta.Topic != "" {
		t.Errorf("unexpected split: %+v %q %v", meta, body, err)
	}
}
