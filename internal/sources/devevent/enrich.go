package devevent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
)

// Source is the metrics and log label of this source.
const Source = "events"

// Enrichment defaults.
const (
	DefaultDelay      = 4 * time.Second
	DefaultMaxContent = 15000
)

var errNoContent = errors.New("event page could not be scraped")

// Payload is the structured detail the model returns for an event page.
type Payload struct {
	TitleKo         enrich.Text       `json:"title_ko"`
	ContentMarkdown enrich.Text       `json:"content_markdown"`
	Summary         enrich.Text       `json:"summary"`
	TargetAudience  enrich.StringList `json:"target_audience"`
	Fee             enrich.Text       `json:"fee"`
	Schedule        enrich.StringList `json:"schedule"`
	Benefits        enrich.StringList `json:"benefits"`
}

// Spec returns the gateway spec for event pages.
func Spec(delay time.Duration, maxContent int) enrich.Spec[Payload] {
	if maxContent <= 0 {
		maxContent = DefaultMaxContent
	}
	return enrich.Spec[Payload]{
		Source:     Source,
		Delay:      delay,
		MaxContent: maxContent,
		Prompt:     buildPrompt,
		Fallback:   fallbackPayload,
	}
}

func buildPrompt(t enrich.Target, content string) string {
	var b strings.Builder
	b.WriteString("You are an expert tech event curator. Turn the raw event page below into a clear, ")
	b.WriteString("engaging event detail page for developers, and translate the event title into natural Korean.\n\n")
	fmt.Fprintf(&b, "Event Title: %s\n", t.Title)
	if info := t.Hints["info"]; info != "" {
		b.WriteString(info)
		b.WriteString("\n")
	}
	b.WriteString("\nRaw Content (Markdown):\n")
	b.WriteString(content)
	b.WriteString(`

Rules:
- Write everything in Korean (한국어), translating English sources.
- Keep a professional, inviting tone. Use bold text and bullet points.
- If information is missing, write "정보 없음" or omit the section. Never invent details.

content_markdown must use these sections:
## 행사 소개 (Overview)
## 핵심 정보 (Key Information)  (a table with 일시, 장소, 비용, 대상)
## 프로그램 일정 (Agenda)
## 연사 소개 (Speakers)
## 신청 및 상세 정보

Respond with a single JSON object:
{
  "title_ko": "Korean title",
  "content_markdown": "full markdown document",
  "summary": "2-3 sentence summary",
  "target_audience": ["audience"],
  "fee": "cost, e.g. 무료",
  "schedule": ["time - session"],
  "benefits": ["benefit"]
}
Escape every backslash inside string values as \\.`)
	return b.String()
}

func fallbackPayload(t enrich.Target, raw string, reason enrich.Class) Payload {
	notice := "*AI 요약 실패로 원문 데이터를 표시합니다.*"
	if reason.Latches() {
		notice = "*AI 할당량 초과로 원문 데이터를 표시합니다.*"
	}
	return Payload{
		TitleKo:         enrich.Text(t.Title),
		ContentMarkdown: enrich.Text("## 💡 행사 소개 (Overview)\n" + notice + "\n\n" + strings.TrimSpace(raw)),
	}
}

// Enricher writes gateway results onto events.
type Enricher struct {
	gateway *enrich.Gateway[Payload]
}

// NewEnricher wraps gateway.
func NewEnricher(gateway *enrich.Gateway[Payload]) *Enricher {
	return &Enricher{gateway: gateway}
}

// Enrich scrapes and structures the event page. The core title is never
// changed; the translation goes to TitleKo.
func (en *Enricher) Enrich(ctx context.Context, e *record.Event) error {
	res := en.gateway.Enrich(ctx, enrich.Target{
		Key:   e.IdentityKey(),
		URL:   e.Link,
		Title: e.Title,
		Hints: map[string]string{"info": describe(*e)},
	})
	if res == nil {
		return errNoContent
	}
	Apply(e, res.Payload)
	return nil
}

// Apply copies the non-empty payload fields onto e.
func Apply(e *record.Event, p Payload) {
	setText(&e.TitleKo, p.TitleKo)
	setText(&e.Content, p.ContentMarkdown)
	setText(&e.Summary, p.Summary)
	setText(&e.Fee, p.Fee)
	setList(&e.TargetAudience, p.TargetAudience)
	setList(&e.Schedule, p.Schedule)
	setList(&e.Benefits, p.Benefits)
}

func setText(dst *string, v enrich.Text) {
	if s := v.String(); s != "" {
		*dst = s
	}
}

func setList(dst *[]string, v enrich.StringList) {
	if len(v) > 0 {
		*dst = []string(v)
	}
}
