package saramin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/devfeed-crawler/internal/clock"
	"github.com/JakeFAU/devfeed-crawler/internal/enrich"
	"github.com/JakeFAU/devfeed-crawler/internal/fetcher"
	"github.com/JakeFAU/devfeed-crawler/internal/pipeline"
	"github.com/JakeFAU/devfeed-crawler/internal/record"
	"github.com/JakeFAU/devfeed-crawler/internal/scheduler"
	"github.com/JakeFAU/devfeed-crawler/internal/storage/jsonfile"
	"github.com/JakeFAU/devfeed-crawler/internal/storage/memory"
)

var noPause = enrich.PauseFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

var parsedAt = time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)

func item(recIdx, title string) string {
	return fmt.Sprintf(`<div class="item_recruit" value="%s">
  <div class="area_corp"><strong class="corp_name"><a href="/c">  (주)예시  </a></strong></div>
  <div class="area_job">
    <h2 class="job_tit"><a href="/zf_user/jobs/relay/view?view_type=search&rec_idx=%s">%s</a></h2>
    <div class="job_date"><span class="date">~ 05/31(토)</span></div>
    <div class="job_condition"><span>서울 강남구</span><span>경력 3년↑</span><span>대졸↑</span><span>정규직</span></div>
  </div>
</div>`, recIdx, recIdx, title)
}

type boardFetcher struct {
	pages    map[int]string
	details  map[string]string
	failPage int
	requests []fetcher.Request
}

func (b *boardFetcher) Fetch(_ context.Context, req fetcher.Request) (fetcher.Response, error) {
	b.requests = append(b.requests, req)
	if strings.Contains(req.URL, searchPath) {
		page := 0
		_, _ = fmt.Sscan(req.Query.Get("recruitPage"), &page)
		if page == b.failPage {
			return fetcher.Response{}, errors.New("status 503")
		}
		body, _ := json.Marshal(map[string]string{"innerHTML": b.pages[page]})
		return fetcher.Response{StatusCode: 200, Body: body}, nil
	}
	recIdx := RecIdxFromURL(req.URL)
	html, ok := b.details[recIdx]
	if !ok {
		return fetcher.Response{}, errors.New("status 404")
	}
	return fetcher.Response{StatusCode: 200, Body: []byte(html)}, nil
}

func newClient(f fetcher.Fetcher) *Client {
	return NewClient(f, Config{
		BaseURL: "https://board.example.com/",
		Pauser:  noPause,
		Clock:   clock.Fixed(parsedAt),
	}, nil)
}

func TestParseListing(t *testing.T) {
	t.Parallel()

	fragment := item("101", "백엔드 개발자") + `<div class="item_recruit" value=""></div>` +
		`<div class="item_recruit" value="102"><div class="area_job"></div></div>`
	jobs, err := ParseListing(fragment, "https://board.example.com", parsedAt)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	j := jobs[0]
	assert.Equal(t, "101", j.RecIdx)
	assert.Equal(t, "백엔드 개발자", j.Title)
	assert.Equal(t, "(주)예시", j.Company)
	assert.Equal(t, "https://board.example.com/zf_user/jobs/relay/view?view_type=search&rec_idx=101", j.Link)
	assert.Equal(t, "서울 강남구", j.Location)
	assert.Equal(t, "경력 3년↑", j.Experience)
	assert.Equal(t, "대졸↑", j.Education)
	assert.Equal(t, "정규직", j.WorkType)
	assert.Equal(t, "~ 05/31(토)", j.Deadline)
	assert.Equal(t, "2025-05-02", j.ScrapedDate)
	assert.Equal(t, "saramin:101", j.IdentityKey())
}

func TestSearch_StopsAtEmptyPage(t *testing.T) {
	t.Parallel()

	f := &boardFetcher{pages: map[int]string{1: item("1", "a") + item("2", "b")}}
	jobs, err := newClient(f).Search(context.Background(), 80)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
	require.Len(t, f.requests, 2, "page 2 is empty so page 3 is never requested")

	q := f.requests[0].Query
	assert.Equal(t, "개발자", q.Get("searchword"))
	assert.Equal(t, "40", q.Get("recruitPageCount"))
	assert.Equal(t, "2", q.Get("cat_mcls"))
	assert.Equal(t, "https://board.example.com/", f.requests[0].Headers.Get("Referer"))
}

func TestSearch_FirstPageFailureIsFatal(t *testing.T) {
	t.Parallel()

	_, err := newClient(&boardFetcher{failPage: 1}).Search(context.Background(), 10)
	require.Error(t, err)

	f := &boardFetcher{failPage: 2, pages: map[int]string{1: item("1", "a")}}
	jobs, err := newClient(f).Search(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestPagesAndSelect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2, Pages(0))
	assert.Equal(t, 2, Pages(39))
	assert.Equal(t, 3, Pages(40))

	jobs := []record.JobPosting{{RecIdx: "1"}, {RecIdx: "2"}, {RecIdx: "1"}, {RecIdx: "3"}}
	assert.Len(t, Select(jobs, 0), 3)
	got := Select(jobs, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[1].RecIdx)
}

func TestParseDetail(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("주요 업무 설명 ", 20)
	d, err := ParseDetail([]byte(`<html><body><script>var x=1;</script>
		<img src="https://cdn.example.com/icon_new.png"><img src="/relative.png">
		<img src="https://cdn.example.com/blank.gif"><img src="https://cdn.example.com/jd.jpg" alt="JD">
		<p>` + long + `</p></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/jd.jpg", d.Image)
	assert.NotContains(t, d.Text, "var x")
	assert.NotContains(t, d.Text, "JD")

	d, err = ParseDetail([]byte(`<div><img src="https://cdn.example.com/a.jpg" alt="자격요건: Go 3년"><img alt="복지: 재택"></div>`))
	require.NoError(t, err)
	assert.Equal(t, "자격요건: Go 3년 복지: 재택", d.Text)
}

func TestDetailPagesFetchOnce(t *testing.T) {
	t.Parallel()

	f := &boardFetcher{details: map[string]string{"7": `<p>body</p><img src="https://cdn.example.com/7.png">`}}
	pages := NewDetailPages(newClient(f))
	link := "https://board.example.com/zf_user/jobs/relay/view?rec_idx=7"

	text, err := pages.Scrape(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, "body", text)
	img, err := pages.FindImage(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/7.png", img)
	assert.Len(t, f.requests, 1)
	assert.Equal(t, "https://board.example.com/zf_user/jobs/relay/view-detail?rec_idx=7", f.requests[0].URL)

	_, err = pages.Scrape(context.Background(), "https://board.example.com/no-id")
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	t.Parallel()

	j := &record.JobPosting{Tags: []string{"backend"}}
	raw := strings.Repeat("가", 4000)
	Apply(j, Payload{
		Summary:          "좋은 자리",
		Responsibilities: enrich.StringList{"API 개발"},
		Tags:             enrich.StringList{"Go", "Kubernetes", "Backend", "Spring Boot"},
	}, raw)
	assert.Equal(t, "좋은 자리", j.Summary)
	assert.Equal(t, []string{"API 개발"}, j.Responsibilities)
	assert.Equal(t, []string{"backend", "go", "kubernetes"}, j.Tags)
	assert.Equal(t, "## Summary\n좋은 자리\n\n"+strings.Repeat("가", summaryRawWindow), j.Content)

	fallback := &record.JobPosting{}
	Apply(fallback, Payload{Notice: "*notice*"}, strings.Repeat("나", 6000))
	assert.Empty(t, fallback.Summary)
	assert.Equal(t, "*notice*\n\n"+strings.Repeat("나", fallbackRawWindow), fallback.Content)
	assert.True(t, fallback.NeedsEnrichment())
}

type jsonGenerator struct{ calls int }

func (g *jsonGenerator) Generate(context.Context, string, bool) (string, error) {
	g.calls++
	return `[{"summary":"요약","qualifications":"Go","tags":["go"]}]`, nil
}

func TestCrawlerRun(t *testing.T) {
	t.Parallel()

	detail := `<p>` + strings.Repeat("Go 백엔드 개발자를 찾습니다. ", 10) + `</p><img src="https://cdn.example.com/x.png">`
	f := &boardFetcher{
		pages:   map[int]string{1: item("1", "Go 개발자") + item("2", "Java 개발자") + item("1", "dup")},
		details: map[string]string{"1": detail, "2": detail},
	}
	client := newClient(f)
	details := NewDetailPages(client)
	gen := &jsonGenerator{}
	gateway := enrich.NewGateway(Spec(time.Second, 0), details, gen, enrich.WithPauser(noPause))
	sched := scheduler.New[*record.JobPosting](details, NewEnricher(gateway), nil, scheduler.Config{Source: Source, Pauser: noPause}, nil)

	store, err := jsonfile.New[record.JobPosting](memory.NewBlobStore(), "recruit-jobs.json", nil)
	require.NoError(t, err)
	summary, err := New(client, pipeline.NewJSON(Source, store, sched, nil, nil), nil).Run(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Saved)
	assert.Equal(t, 1, gen.calls)

	saved := store.LoadList(context.Background())
	require.Len(t, saved, 1)
	assert.Equal(t, "요약", saved[0].Summary)
	assert.Equal(t, []string{"Go"}, saved[0].Qualifications)
	assert.Equal(t, []string{"go"}, saved[0].Tags)
	assert.Equal(t, "https://cdn.example.com/x.png", saved[0].ImageURL)
	assert.True(t, strings.HasPrefix(saved[0].Content, "## Summary\n요약\n\n"))
}
