package library

import (
	"context"
	"sort"
	"strings"

	"github.com/kapu/bmo-slack-bot-go/internal/domain"
	"github.com/kapu/bmo-slack-bot-go/internal/provider"
	"github.com/kapu/bmo-slack-bot-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// listScraper is what the engine needs from a single awesome list.
type listScraper interface {
	LibrariesForQuery(ctx context.Context, query string) ([]*domain.Library, error)
	Categories(ctx context.Context) ([]*domain.Category, error)
}

// Engine answers library lookups by merging the awesome lists that cover a
// platform. iOS pulls from both awesome-ios and awesome-swift, so results
// are deduplicated by link before sorting.
type Engine struct {
	scrapers map[string][]listScraper
	logger   *zap.Logger
}

func NewEngine(p *provider.Provider, logger *zap.Logger) *Engine {
	return &Engine{
		scrapers: map[string][]listScraper{
			"ios": {
				NewAwesomeIosScraper(p),
				NewAwesomeSwiftScraper(p),
			},
			"android": {
				NewAwesomeAndroidScraper(p),
			},
		},
		logger: logger,
	}
}

// LibrariesForQuery fans the query out to every scraper for the platform and
// merges their results, deduplicated by link and sorted by title.
func (e *Engine) LibrariesForQuery(ctx context.Context, platform, query string) ([]*domain.Library, error) {
	scrapers, ok := e.scrapers[platform]
	if !ok {
		return nil, errors.NewValidationError("unknown platform", "platform", platform)
	}

	p := pool.NewWithResults[[]*domain.Library]().WithContext(ctx)
	for _, scraper := range scrapers {
		p.Go(func(ctx context.Context) ([]*domain.Library, error) {
			return scraper.LibrariesForQuery(ctx, query)
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	libraries := make([]*domain.Library, 0)
	for _, batch := range results {
		for _, library := range batch {
			if seen[library.Link] {
				continue
			}
			seen[library.Link] = true
			libraries = append(libraries, library)
		}
	}

	sort.Slice(libraries, func(i, j int) bool {
		return libraries[i].Title < libraries[j].Title
	})

	e.logger.Debug("Library lookup finished",
		zap.String("platform", platform),
		zap.String("query", query),
		zap.Int("count", len(libraries)),
	)
	return libraries, nil
}

// CategoriesTree renders the platform's category tree from its primary list.
func (e *Engine) CategoriesTree(ctx context.Context, platform string) (string, error) {
	scrapers, ok := e.scrapers[platform]
	if !ok {
		return "", errors.NewValidationError("unknown platform", "platform", platform)
	}

	categories, err := scrapers[0].Categories(ctx)
	if err != nil {
		return "", err
	}

	return renderCategories(categories), nil
}

func renderCategories(categories []*domain.Category) string {
	var sb strings.Builder
	writeCategories(&sb, categories, "")
	return strings.TrimRight(sb.String(), "\n")
}

func writeCategories(sb *strings.Builder, categories []*domain.Category, prefix string) {
	for i, category := range categories {
		connector, childPrefix := "├─ ", prefix+"│  "
		if i == len(categories)-1 {
			connector, childPrefix = "└─ ", prefix+"   "
		}
		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(category.Title)
		sb.WriteString("\n")
		if len(category.Subcategories) > 0 {
			writeCategories(sb, category.Subcategories, childPrefix)
		}
	}
}
