package localdir

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, manifest string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ArticlesDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, ArticlesDir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestAdapter_FetchBatch(t *testing.T) {
	manifest := strings.Join([]string{
		`{"id":"1","url":"https://a.fr/1","language":"fr","file":"one.txt"}`,
		`not json`,
		``,
		`{"id":"2","url":"https://a.fr/2","file":"two.txt"}`,
		`{"id":"3","file":"missing.txt"}`,
		`{"file":"four.txt","language":"de"}`,
	}, "\n")
	dir := writeSource(t, manifest, map[string]string{
		"one.txt":  "Le chat dort.",
		"two.txt":  "Il pleut.",
		"four.txt": "Guten Tag.",
	})
	a := NewAdapter(dir)
	ctx := context.Background()

	batch, next, err := a.FetchBatch(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 || batch[0].Text != "Le chat dort." || batch[1].URL != "https://a.fr/2" {
		t.Fatalf("first batch = %+v", batch)
	}
	if next != "2" {
		t.Fatalf("next = %q, want 2", next)
	}

	batch, next, err = a.FetchBatch(ctx, next, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].ID != "four.txt" || batch[0].Language != "de" {
		t.Errorf("second batch = %+v (missing file should be skipped)", batch)
	}
	if next != "" {
		t.Errorf("next = %q, want end", next)
	}

	batch, _, err = a.FetchBatch(ctx, "10", 2)
	if err != nil || len(batch) != 0 {
		t.Errorf("past-end batch = %v, err = %v", batch, err)
	}
}

func TestAdapter_Errors(t *testing.T) {
	a := NewAdapter(t.TempDir())
	if _, _, err := a.FetchBatch(context.Background(), "", 5); err == nil {
		t.Error("expected error for missing manifest")
	}

	dir := writeSource(t, `{"id":"1","file":"a.txt"}`, map[string]string{"a.txt": "x"})
	if _, _, err := NewAdapter(dir).FetchBatch(context.Background(), "abc", 5); err == nil {
		t.Error("expected error for invalid cursor")
	}
}

func TestAdapter_SourceID(t *testing.T) {
	if got := NewAdapter("/data/prewarm/news").GetSourceID(); got != "localdir:news" {
		t.Errorf("GetSourceID = %s", got)
	}
}
