package techblog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/devfeed-crawler/internal/clock"
	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/identity"
	"github.com/JakeFAU/devfeed-crawler/internal/publisher"
	pubmemory "github.com/JakeFAU/devfeed-crawler/internal/publisher/memory"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/scheduler"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
  <title>Toss</title>
  <link>https://toss.tech</link>
  <item>
    <title> Kafka 운영기 </title>
    <link>https://toss.tech/article/kafka?utm_source=rss</link>
    <pubDate>Mon, 03 Mar 2025 09:00:00 +0900</pubDate>
    <description><![CDATA[<p>Kafka를 <b>대규모</b>로   운영한 경험</p>]]></description>
    <enclosure url="https://static.toss.im/kafka.png" type="image/png" length="1"/>
  </item>
  <item>
    <title>Media</title>
    <link>https://toss.tech/article/media/</link>
    <media:thumbnail url="https://static.toss.im/thumb.png"/>
    <description>plain</description>
  </item>
  <item>
    <title>Inline</title>
    <link>https://toss.tech/article/inline</link>
    <content:encoded><![CDATA[<p>hi</p><img src="data:image/gif;base64,R0"><img src="/img/inline.png">]]></content:encoded>
  </item>
  <item>
    <title>No link</title>
  </item>
</channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>D2</title>
  <entry>
    <title>Atom post</title>
    <link href="https://d2.naver.com/helloworld/1"/>
    <updated>2025-02-01T10:00:00Z</updated>
    <summary>short</summary>
  </entry>
</feed>`

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

var noPause = enrich.PauseFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

func TestParseFeed_RSS(t *testing.T) {
	t.Parallel()

	articles, err := ParseFeed([]byte(rssFixture), Feed{Name: "토스", Type: "company", Category: "BE"}, now)
	require.NoError(t, err)
	require.Len(t, articles, 3)

	kafka := articles[0]
	assert.Equal(t, "Kafka 운영기", kafka.Title)
	assert.Equal(t, "https://toss.tech/article/kafka", kafka.ExternalURL)
	assert.Equal(t, "Kafka를 대규모로 운영한 경험", kafka.Summary)
	assert.Equal(t, "토스", kafka.Author)
	assert.Equal(t, "company", kafka.BlogType)
	assert.Equal(t, []string{"backend"}, kafka.Tags)
	assert.Equal(t, "https://static.toss.im/kafka.png", kafka.ThumbnailURL)
	assert.True(t, kafka.PublishedAt.Equal(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "https://toss.tech/article/media", articles[1].ExternalURL)
	assert.Equal(t, "https://static.toss.im/thumb.png", articles[1].ThumbnailURL)
	assert.True(t, articles[1].PublishedAt.Equal(now))

	assert.Equal(t, "hi", articles[2].Summary)
	assert.Equal(t, "https://toss.tech/img/inline.png", articles[2].ThumbnailURL)
}

func TestParseFeed_Atom(t *testing.T) {
	t.Parallel()

	articles, err := ParseFeed([]byte(atomFixture), Feed{Name: "네이버"}, now)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "https://d2.naver.com/helloworld/1", articles[0].ExternalURL)
	assert.True(t, articles[0].PublishedAt.Equal(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, []string{}, articles[0].Tags)
	assert.Empty(t, articles[0].ThumbnailURL)
}

func TestParseFeed_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ParseFeed([]byte("not a feed"), Feed{Name: "x"}, now)
	require.Error(t, err)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	long := ""
	for i := 0; i < 250; i++ {
		long += "가"
	}
	got := Summarize("<p>" + long + "</p>")
	assert.Equal(t, SummaryLength+3, len([]rune(got)))
	assert.Equal(t, "...", got[len(got)-3:])
	assert.Equal(t, "a & b", Summarize("a &amp; b"))
	assert.Empty(t, Summarize(""))
}

type fakeTable struct {
	rows      []map[string]any
	fetchErr  error
	insertErr error
	inserted  [][]any
	columns   []string
}

func (f *fakeTable) FetchAllPaged(_ context.Context, columns ...string) ([]map[string]any, error) {
	f.columns = columns
	return f.rows, f.fetchErr
}

func (f *fakeTable) InsertMany(_ context.Context, _ []string, rows [][]any) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.inserted = append(f.inserted, rows...)
	return len(rows), nil
}

type feedGetter map[string]string

func (g feedGetter) Get(_ context.Context, rawURL string) ([]byte, error) {
	body, ok := g[rawURL]
	if !ok {
		return nil, errors.New("status 500")
	}
	return []byte(body), nil
}

var testFeeds = []Feed{
	{Name: "토스", URL: "https://toss.tech/rss.xml", Type: "company"},
	{Name: "broken", URL: "https://broken.example.com/feed"},
	{Name: "네이버", URL: "https://d2.naver.com/d2.atom", Type: "company"},
}

func TestCrawlerRun(t *testing.T) {
	t.Parallel()

	table := &fakeTable{rows: []map[string]any{
		{"external_url": "https://toss.tech/article/media", "title": "Media", "author": "토스"},
		{"external_url": "https://elsewhere.example.com/1", "title": "atom  POST", "author": "네이버"},
	}}
	getter := feedGetter{
		"https://toss.tech/rss.xml":    rssFixture,
		"https://d2.naver.com/d2.atom": atomFixture,
	}
	var enriched []string
	enricher := scheduler.EnricherFunc[*record.Article](func(_ context.Context, a *record.Article) error {
		enriched = append(enriched, a.ExternalURL)
		a.AISummary = "AI"
		return nil
	})
	sched := scheduler.New[*record.Article](nil, enricher, nil, scheduler.Config{Source: Source, Pauser: noPause}, nil)
	pub := pubmemory.New()

	crawler := New(getter, table, sched, publisher.NewNotifier(pub, "records", nil),
		Config{Feeds: testFeeds, Pauser: noPause, Clock: clock.Fixed(now)}, nil)
	stats, err := crawler.Run(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"external_url", "title", "author"}, table.columns)
	assert.Equal(t, 3, stats.Feeds)
	assert.Equal(t, 1, stats.FailedFeeds)
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 2, stats.Duplicates)
	assert.Equal(t, 2, stats.Inserted)
	assert.Equal(t, 2, stats.Published)
	assert.InDelta(t, 50.0, stats.DedupRate(), 0.001)
	assert.Equal(t, []string{"https://toss.tech/article/kafka"}, enriched)
	assert.Equal(t, 1, stats.Report.Skipped)

	require.Len(t, table.inserted, 2)
	first := table.inserted[0]
	require.Len(t, first, len(Columns))
	assert.Equal(t, identity.DeriveOpaqueID("https://toss.tech/article/kafka", nil), first[0])
	assert.Equal(t, "AI", first[3])
	assert.Equal(t, "https://toss.tech/article/kafka", first[5])
	assert.Nil(t, table.inserted[1][3])
	assert.Equal(t, 2, pub.Len())
}

func TestCrawlerRun_AllFeedsFail(t *testing.T) {
	t.Parallel()

	crawler := New(feedGetter{}, &fakeTable{}, nil, nil, Config{Feeds: testFeeds[:2], Pauser: noPause}, nil)
	stats, err := crawler.Run(context.Background(), 1)
	require.ErrorIs(t, err, ErrAllFeedsFailed)
	assert.Equal(t, 2, stats.FailedFeeds)
}

func TestCrawlerRun_StoreReadFailureIsFatal(t *testing.T) {
	t.Parallel()

	table := &fakeTable{fetchErr: errors.New("connection refused")}
	crawler := New(feedGetter{}, table, nil, nil, Config{Feeds: testFeeds, Pauser: noPause}, nil)
	_, err := crawler.Run(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load stored articles")
}

func TestCrawlerRun_InsertFailureIsSoft(t *testing.T) {
	t.Parallel()

	table := &fakeTable{insertErr: errors.New("unique violation")}
	getter := feedGetter{"https://toss.tech/rss.xml": rssFixture}
	crawler := New(getter, table, nil, nil, Config{Feeds: testFeeds[:1], Pauser: noPause, Clock: clock.Fixed(now)}, nil)
	stats, err := crawler.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, stats.Inserted)
	assert.Equal(t, 3, stats.Processed)
}

func TestApply(t *testing.T) {
	t.Parallel()

	a := &record.Article{Tags: []string{"frontend", "web"}}
	Apply(a, Payload{Summary: " 요약 ", Tags: enrich.StringList{"React", "unknown", "CSS", "typescript", "javascript", "nextjs", "design", "ui/ux"}})
	assert.Equal(t, "요약", a.AISummary)
	assert.Equal(t, []string{"frontend", "web", "react", "css", "typescript", "javascript", "nextjs", "design"}, a.Tags)

	b := &record.Article{AISummary: "kept"}
	Apply(b, Payload{})
	assert.Equal(t, "kept", b.AISummary)
}

func TestSeen(t *testing.T) {
	t.Parallel()

	seen := NewSeen()
	a := record.Article{ExternalURL: "https://a.example.com/x", Title: "Hello", Author: "A"}
	assert.True(t, seen.Accept(a))
	assert.False(t, seen.Accept(a))
	assert.False(t, seen.Accept(record.Article{ExternalURL: "https://a.example.com/y", Title: " hello ", Author: "a"}))
	assert.Equal(t, 1, seen.Len())
}
