package library

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"
	"github.com/kapu/bmo-slack-bot-go/internal/domain"
)

// categoryMatchThreshold is the minimum normalized similarity between the
// query and a category title for the category to count as a match.
const categoryMatchThreshold = 0.6

// swiftMarkerTitle is the emoji shortcode github renders for the orange
// diamond that awesome-ios uses to mark Swift libraries.
const swiftMarkerTitle = ":large_orange_diamond:"

// Fetcher pulls raw page bodies. Satisfied by provider.Provider.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Scraper extracts categories and libraries from one awesome list's README.
// The lists share a markup shape; each instance only differs in its URL, the
// anchor that precedes the category index and how a single entry is parsed.
type Scraper struct {
	fetcher Fetcher

	url string
	// categoriesSelector matches the index anchor whose sibling list holds
	// the category tree.
	categoriesSelector string
	parseEntry         func(sel *goquery.Selection) *domain.Library
}

func NewAwesomeIosScraper(fetcher Fetcher) *Scraper {
	return &Scraper{
		fetcher:            fetcher,
		url:                "https://github.com/vsouza/awesome-ios",
		categoriesSelector: `li > a[href="#libraries-and-frameworks"]`,
		parseEntry:         parseIosEntry,
	}
}

func NewAwesomeSwiftScraper(fetcher Fetcher) *Scraper {
	return &Scraper{
		fetcher:            fetcher,
		url:                "https://github.com/matteocrippa/awesome-swift",
		categoriesSelector: `li > a[href="#libs"]`,
		parseEntry:         parseSwiftEntry,
	}
}

func NewAwesomeAndroidScraper(fetcher Fetcher) *Scraper {
	return &Scraper{
		fetcher:            fetcher,
		url:                "https://github.com/JStumpp/awesome-android",
		categoriesSelector: `li > a[href="#libraries"]`,
		parseEntry:         parseEntry,
	}
}

// LibrariesForQuery fuzzy-matches query against the list's categories and
// returns the matched category's entries. No sufficiently similar category
// yields an empty slice, not an error.
func (s *Scraper) LibrariesForQuery(ctx context.Context, query string) ([]*domain.Library, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	category := findCategory(query, s.parseCategories(doc))
	if category == nil {
		return nil, nil
	}

	return s.parseLibraries(doc, category), nil
}

// Categories returns the list's category tree.
func (s *Scraper) Categories(ctx context.Context) ([]*domain.Category, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.parseCategories(doc), nil
}

func (s *Scraper) load(ctx context.Context) (*goquery.Document, error) {
	body, err := s.fetcher.Fetch(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func (s *Scraper) parseCategories(doc *goquery.Document) []*domain.Category {
	listNode := doc.Find(s.categoriesSelector).NextFiltered("ul")
	return categoriesForList(listNode)
}

func (s *Scraper) parseLibraries(doc *goquery.Document, category *domain.Category) []*domain.Library {
	listNode := doc.Find("#user-content-" + category.Slug).
		Parent().
		NextAllFiltered("ul").
		First()

	libraries := make([]*domain.Library, 0)
	listNode.Children().Each(func(i int, sel *goquery.Selection) {
		if library := s.parseEntry(sel); library != nil {
			libraries = append(libraries, library)
		}
	})
	return libraries
}

func categoriesForList(listNode *goquery.Selection) []*domain.Category {
	categories := make([]*domain.Category, 0)

	listNode.Children().Each(func(i int, sel *goquery.Selection) {
		anchor := sel.ChildrenFiltered("a").First()
		if anchor.Length() == 0 {
			return
		}
		category := &domain.Category{
			Title: anchor.Text(),
			Slug:  strings.TrimPrefix(anchor.AttrOr("href", ""), "#"),
		}
		if sublist := sel.ChildrenFiltered("ul"); sublist.Length() > 0 {
			category.Subcategories = categoriesForList(sublist)
		}
		categories = append(categories, category)
	})

	return categories
}

func flattenCategories(categories []*domain.Category) []*domain.Category {
	flat := make([]*domain.Category, 0, len(categories))
	for _, category := range categories {
		flat = append(flat, &domain.Category{Title: category.Title, Slug: category.Slug})
		if len(category.Subcategories) > 0 {
			flat = append(flat, flattenCategories(category.Subcategories)...)
		}
	}
	return flat
}

// findCategory picks the category whose title is closest to the query by
// normalized Levenshtein similarity, or nil when nothing clears the
// threshold.
func findCategory(query string, categories []*domain.Category) *domain.Category {
	var (
		best           *domain.Category
		bestSimilarity float64
	)
	for _, category := range flattenCategories(categories) {
		similarity := titleSimilarity(query, category.Title)
		if similarity > bestSimilarity {
			best, bestSimilarity = category, similarity
		}
	}
	if bestSimilarity <= categoryMatchThreshold {
		return nil
	}
	return best
}

func titleSimilarity(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}

func parseEntry(sel *goquery.Selection) *domain.Library {
	anchor := sel.ChildrenFiltered("a").First()
	if anchor.Length() == 0 {
		return nil
	}
	title := anchor.Text()

	return &domain.Library{
		Title:       title,
		Link:        anchor.AttrOr("href", ""),
		Description: entryDescription(sel, title),
	}
}

func parseIosEntry(sel *goquery.Selection) *domain.Library {
	library := parseEntry(sel)
	if library == nil {
		return nil
	}

	marker := sel.ChildrenFiltered("img").First()
	if marker.Length() > 0 && marker.AttrOr("title", "") == swiftMarkerTitle {
		library.Swift = true
		library.Title += " 🔶"
	}
	return library
}

func parseSwiftEntry(sel *goquery.Selection) *domain.Library {
	library := parseEntry(sel)
	if library == nil {
		return nil
	}
	library.Swift = true
	library.Title += " 🔶"
	return library
}

func entryDescription(sel *goquery.Selection, title string) string {
	return strings.TrimSpace(strings.Replace(sel.Text(), title+" - ", "", 1))
}
