package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testPayload struct {
	Title   Text       `json:"title"`
	Content Text       `json:"content"`
	Items   StringList `json:"items"`
}

type stubScraper struct {
	content map[string]string
	err     error
	calls   int
}

func (s *stubScraper) Scrape(_ context.Context, url string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.content[url], nil
}

type stubGenerator struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, jsonMode bool) (string, error) {
	if !jsonMode {
		return "", errors.New("json mode expected")
	}
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return `{"title":"default"}`, nil
}

var longPage = strings.Repeat("event body text ", 20)

func testSpec() Spec[testPayload] {
	return Spec[testPayload]{
		Source:     "test",
		Delay:      time.Hour,
		MaxContent: 40,
		Prompt: func(t Target, content string) string {
			return "title=" + t.Title + "\n" + content
		},
		Fallback: func(t Target, raw string, reason Class) testPayload {
			return testPayload{Title: Text(t.Title), Content: Text("[" + reason.String() + "]\n" + raw)}
		},
	}
}

func newTestGateway(scraper Scraper, gen Generator, pauses *[]time.Duration) *Gateway[testPayload] {
	pauser := PauseFunc(func(ctx context.Context, d time.Duration) error {
		if pauses != nil {
			*pauses = append(*pauses, d)
		}
		return ctx.Err()
	})
	return NewGateway(testSpec(), scraper, gen, WithPauser(pauser), WithPolicy(testPolicy()))
}

func TestGatewayEnrichSuccess(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{content: map[string]string{"https://e.com/1": longPage}}
	gen := &stubGenerator{responses: []string{`[{"title":"번역","content":"body","items":"one"}]`}}
	var pauses []time.Duration
	gw := newTestGateway(scraper, gen, &pauses)

	res := gw.Enrich(context.Background(), Target{URL: "https://e.com/1", Title: "Original"})
	require.NotNil(t, res)
	assert.False(t, res.Fallback)
	assert.Equal(t, "번역", res.Payload.Title.String())
	assert.Equal(t, StringList{"one"}, res.Payload.Items)
	assert.Equal(t, []time.Duration{time.Hour}, pauses, "politeness delay precedes the model call")
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "title=Original\n"+longPage[:40], gen.prompts[0])
}

func TestGatewayShortOrFailedScrapeReturnsNil(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{}
	short := newTestGateway(&stubScraper{content: map[string]string{"u": "tiny"}}, gen, nil)
	assert.Nil(t, short.Enrich(context.Background(), Target{URL: "u"}))

	failing := newTestGateway(&stubScraper{err: errors.New("timeout")}, gen, nil)
	assert.Nil(t, failing.Enrich(context.Background(), Target{URL: "u"}))
	assert.Zero(t, gen.calls)
}

func TestGatewayRepairsInvalidEscapes(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{content: map[string]string{"u": longPage}}
	gen := &stubGenerator{responses: []string{"```json\n{\"title\":\"a\\qb\"}\n```"}}
	res := newTestGateway(scraper, gen, nil).Enrich(context.Background(), Target{URL: "u"})
	require.NotNil(t, res)
	assert.False(t, res.Fallback)
	assert.Equal(t, `a\qb`, res.Payload.Title.String())
}

func TestGatewayStructuralFailureFallsBack(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{content: map[string]string{"u": longPage}}
	gen := &stubGenerator{responses: []string{"I cannot answer in JSON"}}
	res := newTestGateway(scraper, gen, nil).Enrich(context.Background(), Target{URL: "u", Title: "T"})
	require.NotNil(t, res)
	assert.True(t, res.Fallback)
	assert.Equal(t, ClassStructural, res.Reason)
	assert.Equal(t, "T", res.Payload.Title.String())
	assert.Equal(t, 1, gen.calls)
}

func TestGatewayBreakerLatchesForTheRun(t *testing.T) {
	t.Parallel()

	scraper := &stubScraper{content: map[string]string{"a": longPage, "b": longPage, "c": longPage}}
	gen := &stubGenerator{errs: []error{errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota).")}}
	var pauses []time.Duration
	gw := newTestGateway(scraper, gen, &pauses)

	first := gw.Enrich(context.Background(), Target{URL: "a", Title: "A"})
	require.NotNil(t, first)
	assert.True(t, first.Fallback)
	assert.True(t, gw.Breaker().Open())

	for _, url := range []string{"b", "c"} {
		res := gw.Enrich(context.Background(), Target{URL: url, Title: strings.ToUpper(url)})
		require.NotNil(t, res)
		assert.True(t, res.Fallback)
		assert.Equal(t, ClassQuota, res.Reason)
		assert.True(t, strings.HasPrefix(res.Payload.Content.String(), "[quota]"))
	}
	assert.Equal(t, 1, gen.calls, "model is not called once the breaker is open")
	assert.Len(t, pauses, 1, "no politeness delay once the breaker is open")
}

func TestGatewaySharedBreaker(t *testing.T) {
	t.Parallel()

	breaker := NewBreaker()
	breaker.Trip(ClassModelNotFound, errors.New("404 not found"))
	gen := &stubGenerator{}
	gw := NewGateway(testSpec(), &stubScraper{content: map[string]string{"u": longPage}}, gen,
		WithBreaker(breaker), WithPauser(NoPause))

	res := gw.Enrich(context.Background(), Target{URL: "u"})
	require.NotNil(t, res)
	assert.True(t, res.Fallback)
	assert.Equal(t, ClassModelNotFound, res.Reason)
	assert.Zero(t, gen.calls)
}

func TestGatewayRecoversFromPanickingPrompt(t *testing.T) {
	t.Parallel()

	spec := testSpec()
	spec.Prompt = func(Target, string) string { panic("bad template") }
	gw := NewGateway(spec, &stubScraper{content: map[string]string{"u": longPage}}, &stubGenerator{}, WithPauser(NoPause))
	assert.Nil(t, gw.Enrich(context.Background(), Target{URL: "u"}))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "가나", Truncate("가나다라", 2))
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abc", Truncate("abc", 0))
}

func TestGatewayLogsBreakerCause(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	quota := errors.New("googleapi: Error 429: Resource has been exhausted (e.g. check quota).")
	scraper := &stubScraper{content: map[string]string{"a": longPage, "b": longPage}}
	gw := NewGateway(testSpec(), scraper, &stubGenerator{errs: []error{quota}},
		WithPauser(NoPause), WithPolicy(testPolicy()), WithLogger(zap.New(core)))

	gw.Enrich(context.Background(), Target{URL: "a", Title: "A"})
	require.True(t, gw.Breaker().Open())
	require.Error(t, gw.Breaker().Cause())

	gw.Enrich(context.Background(), Target{URL: "b", Title: "B"})
	skipped := logs.FilterMessage("circuit breaker open, skipping model call").All()
	require.Len(t, skipped, 1)
	fields := skipped[0].ContextMap()
	assert.Equal(t, "quota", fields["reason"])
	assert.Contains(t, fields["cause"], "Error 429")
}
