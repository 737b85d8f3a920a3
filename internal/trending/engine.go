package trending

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	githubURL        = "https://github.com"
	githubAPIURL     = "https://api.github.com"
	trendingFeedURL  = "http://app.gitlogs.com/trending"
	defaultRepoLimit = 20
)

// Fetcher pulls raw response bodies. Satisfied by provider.Provider.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Engine serves trending GitHub repos from the gitlogs feed. Entries the
// feed ships without repo metadata are enriched through the GitHub API.
type Engine struct {
	fetcher            Fetcher
	githubClientID     string
	githubClientSecret string
	logger             *zap.Logger

	feedURL string
	apiURL  string
}

func NewEngine(fetcher Fetcher, githubClientID, githubClientSecret string, logger *zap.Logger) *Engine {
	return &Engine{
		fetcher:            fetcher,
		githubClientID:     githubClientID,
		githubClientSecret: githubClientSecret,
		logger:             logger,
		feedURL:            trendingFeedURL,
		apiURL:             githubAPIURL,
	}
}

type feedEntry struct {
	RepoName string `json:"repo_name"`
	Count    int    `json:"count"`
	Repo     *struct {
		Description string `json:"description"`
		Language    string `json:"language"`
	} `json:"repo"`
}

type githubRepo struct {
	Description string `json:"description"`
	Language    string `json:"language"`
}

// TrendingRepos returns up to 20 repos trending yesterday, optionally
// narrowed to one language (lowercase), sorted by trend descending.
func (e *Engine) TrendingRepos(ctx context.Context, language string) ([]*domain.Repo, error) {
	date := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	body, err := e.fetcher.Fetch(ctx, fmt.Sprintf("%s?date=%s", e.feedURL, date))
	if err != nil {
		return nil, err
	}

	var entries []feedEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		e.logger.Error("Failed to parse trending feed", zap.Error(err))
		return nil, errors.NewServiceError("invalid trending feed payload", "gitlogs", "trending", err)
	}

	if len(entries) > defaultRepoLimit {
		entries = entries[:defaultRepoLimit]
	}

	p := pool.NewWithResults[*domain.Repo]().WithContext(ctx)
	for _, entry := range entries {
		p.Go(func(ctx context.Context) (*domain.Repo, error) {
			return e.buildRepo(ctx, entry)
		})
	}
	repos, err := p.Wait()
	if err != nil {
		return nil, err
	}

	if language != "" {
		filtered := repos[:0]
		for _, repo := range repos {
			if strings.ToLower(repo.Language) == language {
				filtered = append(filtered, repo)
			}
		}
		repos = filtered
	}

	sort.SliceStable(repos, func(i, j int) bool {
		return repos[i].Trend > repos[j].Trend
	})

	e.logger.Debug("Trending lookup finished",
		zap.String("language", language),
		zap.Int("count", len(repos)),
	)
	return repos, nil
}

func (e *Engine) buildRepo(ctx context.Context, entry feedEntry) (*domain.Repo, error) {
	repo := &domain.Repo{
		Name:  entry.RepoName,
		Link:  fmt.Sprintf("%s/%s", githubURL, entry.RepoName),
		Trend: entry.Count,
	}

	if entry.Repo != nil {
		repo.Description = entry.Repo.Description
		repo.Language = entry.Repo.Language
		return repo, nil
	}

	enrichURL := fmt.Sprintf("%s/repos/%s?client_id=%s&client_secret=%s",
		e.apiURL, entry.RepoName,
		url.QueryEscape(e.githubClientID), url.QueryEscape(e.githubClientSecret))

	body, err := e.fetcher.Fetch(ctx, enrichURL)
	if err != nil {
		return nil, err
	}

	var details githubRepo
	if err := json.Unmarshal(body, &details); err != nil {
		e.logger.Error("Failed to parse repo details",
			zap.String("repo", entry.RepoName),
			zap.Error(err),
		)
		return nil, errors.NewServiceError("invalid repo payload", "github", "repos", err)
	}

	repo.Description = details.Description
	repo.Language = details.Language
	return repo, nil
}
