package nav

import (
	"errors"
	"strings"
	"testing"
)

const sampleDoc = `<!doctype html>
<html>
<head><title>Leaderboard - KOL Watch</title></head>
<body>
  <div id="sidebar"></div>
  <main>
    <h1 class="page-title">KOL Leaderboard</h1>
    <div class="page-content">
      <table id="board"><tr><td>row</td></tr></table>
    </div>
  </main>
</body>
</html>`

func TestParsePage(t *testing.T) {
	pg, err := parsePage(sampleDoc)
	if err != nil {
		t.Fatalf("parsePage failed: %v", err)
	}
	if pg.Title != "Leaderboard - KOL Watch" {
		t.Errorf("title = %q", pg.Title)
	}
	if pg.Header != "KOL Leaderboard" {
		t.Errorf("header = %q", pg.Header)
	}
	if !strings.Contains(pg.Content, `<table id="board">`) {
		t.Errorf("content missing table: %q", pg.Content)
	}
}

func TestParsePageMissingContainer(t *testing.T) {
	_, err := parsePage(`<html><body><p>no container here</p></body></html>`)
	if !errors.Is(err, ErrNoPageContent) {
		t.Fatalf("expected ErrNoPageContent, got %v", err)
	}
}

func TestParsePageFragmentOnly(t *testing.T) {
	// Servers may answer partial requests with just the fragment.
	pg, err := parsePage(`<div class="page-content"><p>hi</p></div>`)
	if err != nil {
		t.Fatalf("parsePage failed: %v", err)
	}
	if pg.Title != "" {
		t.Errorf("expected empty title, got %q", pg.Title)
	}
	if !strings.Contains(pg.Content, "<p>hi</p>") {
		t.Errorf("content = %q", pg.Content)
	}
}
