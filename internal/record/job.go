package record

import "github.com/JakeFAU/devfeed-crawler/internal/identity"

// JobPosting is a job listing from the job-board search.
type JobPosting struct {
	ID          string `json:"id"`
	RecIdx      string `json:"rec_idx"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Link        string `json:"link"`
	Location    string `json:"location"`
	Deadline    string `json:"deadline"`
	Experience  string `json:"experience"`
	Education   string `json:"education"`
	WorkType    string `json:"work_type"`
	ScrapedDate string `json:"scraped_date"`

	Content          string   `json:"content,omitempty"`
	Summary          string   `json:"summary,omitempty"`
	Responsibilities []string `json:"responsibilities"`
	Qualifications   []string `json:"qualifications"`
	Preferred        []string `json:"preferred"`
	Benefits         []string `json:"benefits"`
	Tags             []string `json:"tags"`
	ImageURL         string   `json:"image_url,omitempty"`
}

// IdentityKey uses the board's posting id, or the normalized link when the
// listing carried no id.
func (j JobPosting) IdentityKey() string {
	if j.RecIdx != "" {
		return "saramin:" + j.RecIdx
	}
	return identity.NormalizeURL(j.Link)
}

// NeedsEnrichment reports whether the posting has no AI summary yet.
func (j JobPosting) NeedsEnrichment() bool {
	return j.Summary == ""
}

// EnrichmentStatus derives the state from the expensive fields.
func (j JobPosting) EnrichmentStatus() Status {
	return deriveStatus(j.Summary != "", len(j.Tags) > 0, j.ImageURL != "", j.Content != "")
}

// CarryForward copies the non-empty expensive fields of existing onto j.
func (j JobPosting) CarryForward(existing JobPosting) JobPosting {
	keepString(&j.ID, existing.ID)
	keepString(&j.Content, existing.Content)
	keepString(&j.Summary, existing.Summary)
	keepString(&j.ImageURL, existing.ImageURL)
	keepString(&j.ScrapedDate, existing.ScrapedDate)
	keepList(&j.Responsibilities, existing.Responsibilities)
	keepList(&j.Qualifications, existing.Qualifications)
	keepList(&j.Preferred, existing.Preferred)
	keepList(&j.Benefits, existing.Benefits)
	keepList(&j.Tags, existing.Tags)
	return j
}

// OpaqueID returns the stored id.
func (j *JobPosting) OpaqueID() string {
	return j.ID
}

// SetOpaqueID sets the stored id.
func (j *JobPosting) SetOpaqueID(id string) {
	j.ID = id
}

// PageURL returns the page that is scraped for enrichment and thumbnails.
func (j *JobPosting) PageURL() string {
	return j.Link
}

// CoverImage returns the thumbnail URL.
func (j *JobPosting) CoverImage() string {
	return j.ImageURL
}

// SetCoverImage sets the thumbnail URL.
func (j *JobPosting) SetCoverImage(u string) {
	j.ImageURL = u
}

// TagValues returns the topic tags.
func (j *JobPosting) TagValues() []string {
	return j.Tags
}

// SetTagValues replaces the topic tags.
func (j *JobPosting) SetTagValues(tags []string) {
	j.Tags = tags
}

// TagInput returns the text the tag classifier reads.
func (j *JobPosting) TagInput() (title, summary, author string) {
	summary = j.Summary
	if summary == "" {
		summary = j.Content
	}
	return j.Title, summary, j.Company
}
