// Package devevent ingests the community developer-event README.
package devevent

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/devfeed-crawler/internal/record"
)

var (
	eventLine = regexp.MustCompile(`^- __\[(.*?)\]\((.*?)\)__`)
	metaLine  = regexp.MustCompile(`^  - (.*?): (.*)`)

	fullDate  = regexp.MustCompile(`(\d{2,4})\.\s*(\d{1,2})\.\s*(\d{1,2})`)
	shortDate = regexp.MustCompile(`(\d{1,2})\.\s*(\d{1,2})`)
)

// Event categories.
const (
	CategoryCompetition = "Competition"
	CategoryEducation   = "Education"
	CategoryConference  = "Conference"
	CategoryCommunity   = "Community"
	CategoryOther       = "Other"
)

var categoryRules = []struct {
	category string
	tags     []string
}{
	{CategoryCompetition, []string{"대회", "해커톤", "공모전"}},
	{CategoryEducation, []string{"교육", "부트캠프", "강의"}},
	{CategoryConference, []string{"컨퍼런스", "세미나"}},
	{CategoryCommunity, []string{"모임", "커뮤니티"}},
}

// Parse reads events out of the README markdown. Entries without a title or
// link are dropped.
func Parse(markdown string) []record.Event {
	var (
		events  []record.Event
		current *record.Event
		applied string
	)
	flush := func() {
		if current != nil && current.Title != "" && current.Link != "" {
			current.StartDate, current.EndDate = ParseDateRange(current.Date)
			events = append(events, *current)
		}
	}

	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if m := eventLine.FindStringSubmatch(line); m != nil {
			flush()
			current = &record.Event{
				Title:    strings.TrimSpace(m[1]),
				Link:     strings.TrimSpace(m[2]),
				Tags:     []string{},
				Category: CategoryOther,
				Status:   "recruiting",
				Source:   "github",
			}
			applied = ""
			continue
		}
		m := metaLine.FindStringSubmatch(line)
		if m == nil || current == nil {
			continue
		}
		key, value := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		switch key {
		case "분류":
			current.Tags = splitTags(value)
			current.Category = Categorize(current.Tags)
		case "주최":
			current.Host = value
		case "접수":
			current.Date = value
			applied = key
		case "일시":
			if applied != "접수" {
				current.Date = value
				applied = key
			}
		}
	}
	flush()
	return events
}

func splitTags(value string) []string {
	value = strings.ReplaceAll(value, "`", "")
	parts := strings.Split(value, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// Categorize maps README tags onto an event category.
func Categorize(tags []string) string {
	for _, rule := range categoryRules {
		for _, tag := range rule.tags {
			if slices.Contains(tags, tag) {
				return rule.category
			}
		}
	}
	return CategoryOther
}

// ParseDateRange reads "YY. MM. DD" and "MM. DD" dates separated by "~" and
// returns ISO dates. A single date is both start and end. Unreadable input
// yields empty strings.
func ParseDateRange(raw string) (start, end string) {
	if strings.TrimSpace(raw) == "" {
		return "", ""
	}
	parts := strings.SplitN(raw, "~", 2)
	first, ok := parseFullDate(parts[0])
	if !ok {
		return "", ""
	}
	start = first.Format(time.DateOnly)
	if len(parts) == 1 {
		return start, start
	}
	if last, ok := parseFullDate(parts[1]); ok {
		return start, last.Format(time.DateOnly)
	}
	m := shortDate.FindStringSubmatch(parts[1])
	if m == nil {
		return start, start
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year := first.Year()
	if time.Month(month) < first.Month() {
		year++
	}
	last, ok := makeDate(year, month, day)
	if !ok {
		return start, start
	}
	return start, last.Format(time.DateOnly)
}

func parseFullDate(s string) (time.Time, bool) {
	m := fullDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	if year < 100 {
		year += 2000
	}
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return makeDate(year, month, day)
}

func makeDate(year, month, day int) (time.Time, bool) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// describe renders an event for prompts.
func describe(e record.Event) string {
	return fmt.Sprintf("Host: %s\nDate: %s\nTags: %s", e.Host, e.Date, strings.Join(e.Tags, ", "))
}
