package record

import "github.com/JakeFAU/devfeed-crawler/internal/identity"

// Event is a developer event parsed from the community README.
type Event struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Link      string   `json:"link"`
	Host      string   `json:"host"`
	Date      string   `json:"date"`
	StartDate string   `json:"start_date,omitempty"`
	EndDate   string   `json:"end_date,omitempty"`
	Tags      []string `json:"tags"`
	Category  string   `json:"category"`
	Status    string   `json:"status"`
	Source    string   `json:"source"`

	TitleKo        string   `json:"title_ko,omitempty"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	Content        string   `json:"content,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	TargetAudience []string `json:"target_audience"`
	Fee            string   `json:"fee,omitempty"`
	Schedule       []string `json:"schedule"`
	Benefits       []string `json:"benefits"`
}

// IdentityKey joins the normalized link and title. The README lists some
// events that share one link, so the link alone is not unique.
func (e Event) IdentityKey() string {
	return identity.NormalizeURL(e.Link) + "\n" + identity.NormalizeTitle(e.Title)
}

// NeedsEnrichment reports whether the event still lacks detail content or a
// summary. Fallback content carries no summary, so those events are retried.
func (e Event) NeedsEnrichment() bool {
	return e.Content == "" || e.Summary == ""
}

// EnrichmentStatus derives the state from the expensive fields.
func (e Event) EnrichmentStatus() Status {
	return deriveStatus(e.Content != "", e.Thumbnail != "", e.Summary != "")
}

// CarryForward copies the non-empty expensive fields of existing onto e.
func (e Event) CarryForward(existing Event) Event {
	keepString(&e.ID, existing.ID)
	keepString(&e.TitleKo, existing.TitleKo)
	keepString(&e.Thumbnail, existing.Thumbnail)
	keepString(&e.Content, existing.Content)
	keepString(&e.Summary, existing.Summary)
	keepString(&e.Fee, existing.Fee)
	keepList(&e.TargetAudience, existing.TargetAudience)
	keepList(&e.Schedule, existing.Schedule)
	keepList(&e.Benefits, existing.Benefits)
	if len(e.Tags) == 0 {
		keepList(&e.Tags, existing.Tags)
	}
	return e
}

// OpaqueID returns the stored id.
func (e *Event) OpaqueID() string {
	return e.ID
}

// SetOpaqueID sets the stored id.
func (e *Event) SetOpaqueID(id string) {
	e.ID = id
}

// PageURL returns the page that is scraped for enrichment and thumbnails.
func (e *Event) PageURL() string {
	return e.Link
}

// CoverImage returns the thumbnail URL.
func (e *Event) CoverImage() string {
	return e.Thumbnail
}

// SetCoverImage sets the thumbnail URL.
func (e *Event) SetCoverImage(u string) {
	e.Thumbnail = u
}

// TagValues returns the topic tags.
func (e *Event) TagValues() []string {
	return e.Tags
}

// SetTagValues replaces the topic tags.
func (e *Event) SetTagValues(tags []string) {
	e.Tags = tags
}

// TagInput returns the text the tag classifier reads.
func (e *Event) TagInput() (title, summary, author string) {
	summary = e.Summary
	if summary == "" {
		summary = e.Category
	}
	return e.Title, summary, e.Host
}
