package library

import (
	"context"
	"testing"
)

type fakeFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	return f.body, f.err
}

const androidReadme = `<article>
<ul>
  <li><a href="#libraries">Libraries</a>
    <ul>
      <li><a href="#networking">Networking</a></li>
      <li><a href="#ui">UI</a>
        <ul>
          <li><a href="#animation">Animation</a></li>
        </ul>
      </li>
    </ul>
  </li>
</ul>
<h2><a id="user-content-networking" href="#networking"></a>Networking</h2>
<ul>
  <li><a href="https://github.com/square/okhttp">OkHttp</a> - An HTTP client for Android.</li>
  <li><a href="https://github.com/square/retrofit">Retrofit</a> - Type-safe HTTP client.</li>
</ul>
</article>`

const iosReadme = `<article>
<ul>
  <li><a href="#libraries-and-frameworks">Libraries And Frameworks</a>
    <ul>
      <li><a href="#networking">Networking</a></li>
    </ul>
  </li>
</ul>
<h2><a id="user-content-networking" href="#networking"></a>Networking</h2>
<ul>
  <li><a href="https://github.com/Alamofire/Alamofire">Alamofire</a><img title=":large_orange_diamond:"> - Elegant networking in Swift.</li>
  <li><a href="https://github.com/AFNetworking/AFNetworking">AFNetworking</a> - A delightful networking framework.</li>
</ul>
</article>`

func TestScraperCategories(t *testing.T) {
	scraper := NewAwesomeAndroidScraper(&fakeFetcher{body: []byte(androidReadme)})

	categories, err := scraper.Categories(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(categories) != 2 {
		t.Fatalf("expected 2 top-level categories, got %d", len(categories))
	}
	if categories[0].Title != "Networking" || categories[0].Slug != "networking" {
		t.Fatalf("unexpected first category: %+v", categories[0])
	}
	if len(categories[1].Subcategories) != 1 || categories[1].Subcategories[0].Slug != "animation" {
		t.Fatalf("unexpected subcategories: %+v", categories[1].Subcategories)
	}
}

func TestScraperLibrariesForQuery(t *testing.T) {
	scraper := NewAwesomeAndroidScraper(&fakeFetcher{body: []byte(androidReadme)})

	libraries, err := scraper.LibrariesForQuery(context.Background(), "networking")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(libraries) != 2 {
		t.Fatalf("expected 2 libraries, got %d", len(libraries))
	}
	first := libraries[0]
	if first.Title != "OkHttp" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Link != "https://github.com/square/okhttp" {
		t.Fatalf("unexpected link: %q", first.Link)
	}
	if first.Description != "An HTTP client for Android." {
		t.Fatalf("unexpected description: %q", first.Description)
	}
	if first.Swift {
		t.Fatal("android entries must not be marked as Swift")
	}
}

func TestScraperNoCategoryMatch(t *testing.T) {
	scraper := NewAwesomeAndroidScraper(&fakeFetcher{body: []byte(androidReadme)})

	libraries, err := scraper.LibrariesForQuery(context.Background(), "cryptocurrency")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(libraries) != 0 {
		t.Fatalf("expected no libraries without a category match, got %d", len(libraries))
	}
}

func TestIosScraperMarksSwiftEntries(t *testing.T) {
	scraper := NewAwesomeIosScraper(&fakeFetcher{body: []byte(iosReadme)})

	libraries, err := scraper.LibrariesForQuery(context.Background(), "networking")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(libraries) != 2 {
		t.Fatalf("expected 2 libraries, got %d", len(libraries))
	}

	if libraries[0].Title != "Alamofire 🔶" || !libraries[0].Swift {
		t.Fatalf("expected a Swift marker on the first entry, got %+v", libraries[0])
	}
	if libraries[1].Title != "AFNetworking" || libraries[1].Swift {
		t.Fatalf("expected no Swift marker on the second entry, got %+v", libraries[1])
	}
}
