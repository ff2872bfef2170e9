package record

import (
	"time"

	"github.com/JakeFAU/devfeed-crawler/internal/identity"
)

// Article is a post from a company engineering blog feed.
type Article struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	Author       string    `json:"author"`
	ExternalURL  string    `json:"external_url"`
	PublishedAt  time.Time `json:"published_at"`
	BlogType     string    `json:"blog_type"`
	Category     string    `json:"category"`
	AISummary    string    `json:"ai_summary,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	Tags         []string  `json:"tags"`
}

// IdentityKey is the normalized article URL.
func (a Article) IdentityKey() string {
	return identity.NormalizeURL(a.ExternalURL)
}

// TitleKey is the secondary dedup key used when feeds rewrite article URLs.
func (a Article) TitleKey() string {
	return ArticleTitleKey(a.Author, a.Title)
}

// ArticleTitleKey builds the author:title dedup key.
func ArticleTitleKey(author, title string) string {
	return identity.NormalizeTitle(author) + ":" + identity.NormalizeTitle(title)
}

// NeedsEnrichment reports whether the article has no AI summary yet.
func (a Article) NeedsEnrichment() bool {
	return a.AISummary == ""
}

// EnrichmentStatus derives the state from the expensive fields.
func (a Article) EnrichmentStatus() Status {
	return deriveStatus(a.AISummary != "", a.ThumbnailURL != "", len(a.Tags) > 0)
}

// CarryForward copies the non-empty expensive fields of existing onto a.
func (a Article) CarryForward(existing Article) Article {
	keepString(&a.ID, existing.ID)
	keepString(&a.AISummary, existing.AISummary)
	keepString(&a.ThumbnailURL, existing.ThumbnailURL)
	keepList(&a.Tags, existing.Tags)
	return a
}

// OpaqueID returns the stored id.
func (a *Article) OpaqueID() string {
	return a.ID
}

// SetOpaqueID sets the stored id.
func (a *Article) SetOpaqueID(id string) {
	a.ID = id
}

// PageURL returns the page that is scraped for enrichment and thumbnails.
func (a *Article) PageURL() string {
	return a.ExternalURL
}

// CoverImage returns the thumbnail URL.
func (a *Article) CoverImage() string {
	return a.ThumbnailURL
}

// SetCoverImage sets the thumbnail URL.
func (a *Article) SetCoverImage(u string) {
	a.ThumbnailURL = u
}

// TagValues returns the topic tags.
func (a *Article) TagValues() []string {
	return a.Tags
}

// SetTagValues replaces the topic tags.
func (a *Article) SetTagValues(tags []string) {
	a.Tags = tags
}

// TagInput returns the text the tag classifier reads.
func (a *Article) TagInput() (title, summary, author string) {
	summary = a.AISummary
	if summary == "" {
		summary = a.Summary
	}
	return a.Title, summary, a.Author
}
