// Package tagger assigns a bounded set of topic tags to a record, by asking
// the model to pick from an allow-list or, when the model is unavailable, by
// deterministic keyword matching.
package tagger

// AllowedTags is the closed vocabulary every classifier path draws from.
var AllowedTags = []string{
	// frontend
	"frontend", "react", "nextjs", "javascript", "typescript", "css", "web", "ui/ux", "design",
	// backend
	"backend", "nodejs", "nestjs", "spring", "java", "python", "go", "api", "database",
	// ai
	"ai", "ai-ml", "llm", "genai", "mlops", "nlp", "cv",
	// infrastructure
	"devops", "kubernetes", "docker", "terraform", "monitoring", "logging", "sre", "cloud", "cicd",
	// architecture
	"architecture", "scalability", "micro frontend", "monorepo", "module federation", "system design",
	// mobile
	"mobile",
	// organization
	"career", "culture", "business", "product", "ad", "case-study", "cooperation",
}

var allowed = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AllowedTags))
	for _, tag := range AllowedTags {
		m[tag] = struct{}{}
	}
	return m
}()

// IsAllowed reports whether tag is part of the vocabulary.
func IsAllowed(tag string) bool {
	_, ok := allowed[tag]
	return ok
}

// keywordTags maps lower-case keywords to tags. Order decides output order.
var keywordTags = []struct {
	keyword string
	tag     string
}{
	{"react", "react"},
	{"next", "nextjs"},
	{"vue", "frontend"},
	{"angular", "frontend"},
	{"javascript", "javascript"},
	{"typescript", "typescript"},
	{"css", "css"},
	{"spring", "spring"},
	{"java", "java"},
	{"node", "nodejs"},
	{"nodejs", "nodejs"},
	{"express", "nodejs"},
	{"nest", "nestjs"},
	{"nestjs", "nestjs"},
	{"python", "python"},
	{"django", "python"},
	{"flask", "python"},
	{"fastapi", "python"},
	{"go", "go"},
	{"golang", "go"},
	{"rust", "backend"},
	{"c++", "backend"},
	{"c#", "backend"},
	{"php", "backend"},
	{"laravel", "backend"},
	{"aws", "cloud"},
	{"azure", "cloud"},
	{"gcp", "cloud"},
	{"docker", "docker"},
	{"k8s", "kubernetes"},
	{"kubernetes", "kubernetes"},
	{"ci/cd", "cicd"},
	{"jenkins", "cicd"},
	{"github actions", "cicd"},
	{"git", "devops"},
	{"mysql", "database"},
	{"postgresql", "database"},
	{"postgres", "database"},
	{"oracle", "database"},
	{"mongodb", "database"},
	{"redis", "database"},
	{"kafka", "backend"},
	{"rabbitmq", "backend"},
	{"elastic", "backend"},
	{"elasticsearch", "backend"},
	{"linux", "devops"},
	{"ubuntu", "devops"},
	{"jira", "cooperation"},
	{"confluence", "cooperation"},
	{"slack", "cooperation"},
	{"ai", "ai"},
	{"llm", "llm"},
	{"gpt", "genai"},
	{"machine learning", "ai-ml"},
	{"design", "design"},
	{"ux", "ui/ux"},
	{"ui", "ui/ux"},
	{"android", "mobile"},
	{"ios", "mobile"},
	{"flutter", "mobile"},
	{"career", "career"},
	{"interview", "career"},
	{"salary", "career"},
	{"startup", "business"},
	{"agile", "culture"},
	{"scrum", "culture"},
}
