// Package techblog ingests company engineering-blog feeds into the articles
// table.
package techblog

// Feed is one engineering blog to poll.
type Feed struct {
	Name     string `mapstructure:"name" yaml:"name"`
	URL      string `mapstructure:"url" yaml:"url"`
	Type     string `mapstructure:"type" yaml:"type"`
	Category string `mapstructure:"category" yaml:"category"`
}

// DefaultFeeds is the built-in list of Korean company tech blogs.
var DefaultFeeds = []Feed{
	{Name: "토스", URL: "https://toss.tech/rss.xml", Type: "company"},
	{Name: "당근", URL: "https://medium.com/feed/daangn", Type: "company"},
	{Name: "카카오", URL: "https://tech.kakao.com/feed/", Type: "company"},
	{Name: "카카오페이", URL: "https://tech.kakaopay.com/rss", Type: "company"},
	{Name: "무신사", URL: "https://medium.com/feed/musinsa-tech", Type: "company"},
	{Name: "29CM", URL: "https://medium.com/feed/29cm", Type: "company"},
	{Name: "올리브영", URL: "https://oliveyoung.tech/rss.xml", Type: "company"},
	{Name: "우아한형제들", URL: "https://techblog.woowahan.com/feed/", Type: "company"},
	{Name: "네이버", URL: "https://d2.naver.com/d2.atom", Type: "company"},
	{Name: "라인", URL: "https://techblog.lycorp.co.jp/ko/feed/index.xml", Type: "company"},
	{Name: "마켓컬리", URL: "https://helloworld.kurly.com/feed.xml", Type: "company"},
	{Name: "에잇퍼센트", URL: "https://8percent.github.io/feed.xml", Type: "company"},
	{Name: "쏘카", URL: "https://tech.socarcorp.kr/feed", Type: "company"},
	{Name: "하이퍼커넥트", URL: "https://hyperconnect.github.io/feed.xml", Type: "company"},
	{Name: "데브시스터즈", URL: "https://tech.devsisters.com/rss.xml", Type: "company"},
	{Name: "뱅크샐러드", URL: "https://blog.banksalad.com/rss.xml", Type: "company"},
	{Name: "왓챠", URL: "https://medium.com/feed/watcha", Type: "company"},
	{Name: "다나와", URL: "https://danawalab.github.io/feed.xml", Type: "company"},
	{Name: "레브잇", URL: "https://medium.com/feed/%EB%A0%88%EB%B8%8C%EC%9E%87-%ED%85%8C%ED%81%AC%EB%B8%94%EB%A1%9C%EA%B7%B8", Type: "company"},
	{Name: "요기요", URL: "https://medium.com/feed/deliverytechkorea", Type: "company"},
	{Name: "쿠팡", URL: "https://medium.com/feed/coupang-tech", Type: "company"},
	{Name: "원티드", URL: "https://medium.com/feed/wantedjobs", Type: "company"},
	{Name: "데이블", URL: "https://teamdable.github.io/techblog/feed.xml", Type: "company"},
	{Name: "사람인", URL: "https://saramin.github.io/feed.xml", Type: "company"},
	{Name: "직방", URL: "https://medium.com/feed/zigbang", Type: "company"},
	{Name: "콴다", URL: "https://medium.com/feed/mathpresso/tagged/frontend", Type: "company", Category: "FE"},
	{Name: "AB180", URL: "https://raw.githubusercontent.com/ab180/engineering-blog-rss-scheduler/main/rss.xml", Type: "company"},
}
