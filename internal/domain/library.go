package domain

// Library is one entry scraped from an awesome list.
type Library struct {
	Title       string
	Link        string
	Description string
	// Swift marks iOS libraries written in Swift (the 🔶 marker on the list).
	Swift bool
}

// Category is a node of an awesome list's category tree.
type Category struct {
	Title         string
	Slug          string
	Subcategories []*Category
}

// FormattedPlatform renders a platform key the way humans write it.
func FormattedPlatform(platform string) string {
	switch platform {
	case "ios":
		return "iOS"
	case "android":
		return "Android"
	}
	return platform
}

// Repo is a trending GitHub repository.
type Repo struct {
	Name        string
	Link        string
	Description string
	Language    string
	// Trend is the star delta that put the repo on the trending feed.
	Trend int
}
