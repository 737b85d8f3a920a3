package trending

import (
	"context"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// routedFetcher serves canned bodies by URL prefix match.
type routedFetcher struct {
	mu     sync.Mutex
	routes map[string]string
	urls   []string
}

func (f *routedFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	for prefix, body := range f.routes {
		if strings.HasPrefix(url, prefix) {
			return []byte(body), nil
		}
	}
	return []byte("{}"), nil
}

func TestTrendingReposUsesFeedMetadata(t *testing.T) {
	fetcher := &routedFetcher{routes: map[string]string{
		"http://app.gitlogs.com/trending": `[
			{"repo_name": "rust-lang/rust", "count": 50, "repo": {"description": "The Rust language", "language": "Rust"}},
			{"repo_name": "golang/go", "count": 120, "repo": {"description": "The Go language", "language": "Go"}}
		]`,
	}}
	engine := NewEngine(fetcher, "id", "secret", zap.NewNop())

	repos, err := engine.TrendingRepos(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(repos) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(repos))
	}
	if repos[0].Name != "golang/go" || repos[0].Trend != 120 {
		t.Fatalf("expected trend-descending order, got %+v", repos[0])
	}
	if repos[0].Link != "https://github.com/golang/go" {
		t.Fatalf("unexpected link: %q", repos[0].Link)
	}
	if repos[1].Language != "Rust" {
		t.Fatalf("unexpected language: %q", repos[1].Language)
	}
	if len(fetcher.urls) != 1 {
		t.Fatalf("expected a single feed request, got %v", fetcher.urls)
	}
	if !strings.Contains(fetcher.urls[0], "?date=") {
		t.Fatalf("expected a dated feed request, got %q", fetcher.urls[0])
	}
}

func TestTrendingReposEnrichesMissingMetadata(t *testing.T) {
	fetcher := &routedFetcher{routes: map[string]string{
		"http://app.gitlogs.com/trending": `[
			{"repo_name": "square/okhttp", "count": 30}
		]`,
		"https://api.github.com/repos/square/okhttp": `{"description": "An HTTP client", "language": "Kotlin"}`,
	}}
	engine := NewEngine(fetcher, "id", "secret", zap.NewNop())

	repos, err := engine.TrendingRepos(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(repos) != 1 {
		t.Fatalf("expected 1 repo, got %d", len(repos))
	}
	if repos[0].Description != "An HTTP client" || repos[0].Language != "Kotlin" {
		t.Fatalf("expected enriched metadata, got %+v", repos[0])
	}
	if len(fetcher.urls) != 2 {
		t.Fatalf("expected feed plus one enrichment request, got %v", fetcher.urls)
	}
}

func TestTrendingReposFiltersByLanguage(t *testing.T) {
	fetcher := &routedFetcher{routes: map[string]string{
		"http://app.gitlogs.com/trending": `[
			{"repo_name": "rust-lang/rust", "count": 50, "repo": {"description": "The Rust language", "language": "Rust"}},
			{"repo_name": "golang/go", "count": 120, "repo": {"description": "The Go language", "language": "Go"}}
		]`,
	}}
	engine := NewEngine(fetcher, "id", "secret", zap.NewNop())

	repos, err := engine.TrendingRepos(context.Background(), "go")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(repos) != 1 || repos[0].Name != "golang/go" {
		t.Fatalf("expected only the Go repo, got %+v", repos)
	}
}

func TestTrendingReposCapsEntries(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < 30; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"repo_name": "o/r", "count": 1, "repo": {"description": "d", "language": "Go"}}`)
	}
	sb.WriteString("]")

	fetcher := &routedFetcher{routes: map[string]string{
		"http://app.gitlogs.com/trending": sb.String(),
	}}
	engine := NewEngine(fetcher, "id", "secret", zap.NewNop())

	repos, err := engine.TrendingRepos(context.Background(), "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(repos) != 20 {
		t.Fatalf("expected the 20-entry cap, got %d", len(repos))
	}
}

func TestTrendingReposInvalidFeed(t *testing.T) {
	fetcher := &routedFetcher{routes: map[string]string{
		"http://app.gitlogs.com/trending": "not json",
	}}
	engine := NewEngine(fetcher, "id", "secret", zap.NewNop())

	if _, err := engine.TrendingRepos(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an invalid feed payload")
	}
}
