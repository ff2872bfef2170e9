package saramin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/tagger"
)

// Source is the metrics and log label of this source.
const Source = "jobs"

// Enrichment defaults.
const (
	DefaultDelay      = 10 * time.Second
	DefaultMaxContent = 30000

	summaryRawWindow  = 3000
	fallbackRawWindow = 5000
)

var errNoContent = errors.New("posting detail could not be scraped")

// Payload is the structured posting the model returns.
type Payload struct {
	Summary          enrich.Text       `json:"summary"`
	Responsibilities enrich.StringList `json:"responsibilities"`
	Qualifications   enrich.StringList `json:"qualifications"`
	Preferred        enrich.StringList `json:"preferred"`
	Benefits         enrich.StringList `json:"benefits"`
	Tags             enrich.StringList `json:"tags"`

	// Notice is set on fallback payloads and prefixed to the raw content.
	Notice string `json:"-"`
}

// Spec returns the gateway spec for job postings.
func Spec(delay time.Duration, maxContent int) enrich.Spec[Payload] {
	if maxContent <= 0 {
		maxContent = DefaultMaxContent
	}
	return enrich.Spec[Payload]{
		Source:     Source,
		Delay:      delay,
		MaxContent: maxContent,
		Prompt:     buildPrompt,
		Fallback: func(_ enrich.Target, _ string, reason enrich.Class) Payload {
			if reason.Latches() {
				return Payload{Notice: "*AI 할당량 초과로 원문 데이터를 표시합니다.*"}
			}
			return Payload{Notice: "*AI 요약 실패로 원문 데이터를 표시합니다.*"}
		},
	}
}

func buildPrompt(t enrich.Target, content string) string {
	var b strings.Builder
	b.WriteString("You are an expert IT recruiter. Analyze the job posting below and extract structured data.\n\n")
	fmt.Fprintf(&b, "Job Title: %s\nCompany: %s\n\nRaw Content:\n%s\n", t.Title, t.Hints["company"], content)
	b.WriteString(`
Extract these fields into one JSON object, written in Korean:
1. summary: a 2-3 sentence professional summary of the position.
2. responsibilities: main duties.
3. qualifications: mandatory requirements.
4. preferred: nice-to-have qualifications.
5. benefits: company benefits and perks.
6. tags: technical skills, languages, frameworks and tools (e.g. "React", "Python", "AWS").

{
  "summary": "...",
  "responsibilities": ["..."],
  "qualifications": ["..."],
  "preferred": ["..."],
  "benefits": ["..."],
  "tags": ["..."]
}`)
	return b.String()
}

// Enricher writes gateway results onto postings.
type Enricher struct {
	gateway *enrich.Gateway[Payload]
}

// NewEnricher wraps gateway.
func NewEnricher(gateway *enrich.Gateway[Payload]) *Enricher {
	return &Enricher{gateway: gateway}
}

// Enrich structures the posting's detail page.
func (en *Enricher) Enrich(ctx context.Context, j *record.JobPosting) error {
	res := en.gateway.Enrich(ctx, enrich.Target{
		Key:   j.IdentityKey(),
		URL:   j.Link,
		Title: j.Title,
		Hints: map[string]string{"company": j.Company},
	})
	if res == nil {
		return errNoContent
	}
	Apply(j, res.Payload, res.Raw)
	return nil
}

// Apply copies the payload onto j and rebuilds Content from the summary and
// the raw detail text. Model tags are folded into the allow-list.
func Apply(j *record.JobPosting, p Payload, raw string) {
	if s := p.Summary.String(); s != "" {
		j.Summary = s
	}
	setList(&j.Responsibilities, p.Responsibilities)
	setList(&j.Qualifications, p.Qualifications)
	setList(&j.Preferred, p.Preferred)
	setList(&j.Benefits, p.Benefits)
	if len(p.Tags) > 0 {
		allowed := tagger.ParseTags(strings.Join(p.Tags, ","))
		j.Tags = tagger.Merge(j.Tags, allowed, tagger.MaxTags)
	}

	raw = strings.TrimSpace(raw)
	switch {
	case j.Summary != "":
		j.Content = "## Summary\n" + j.Summary + "\n\n" + enrich.Truncate(raw, summaryRawWindow)
	case p.Notice != "":
		j.Content = p.Notice + "\n\n" + enrich.Truncate(raw, fallbackRawWindow)
	default:
		j.Content = enrich.Truncate(raw, fallbackRawWindow)
	}
}

func setList(dst *[]string, v enrich.StringList) {
	if len(v) > 0 {
		*dst = []string(v)
	}
}
