package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Keyword vocabularies for the deterministic scorer. Single tokens match the
// tokenized text; entries with spaces match as phrases against the raw text.
var skillVocab = map[string][]string{
	"backend": {
		"python", "fastapi", "flask", "django", "golang", "go", "node", "express", "java", "spring",
		"kotlin", "c#", ".net", "rust", "grpc", "graphql", "rest", "celery", "kafka", "rabbitmq",
	},
	"db": {
		"postgres", "postgresql", "mysql", "sqlite", "mssql", "redis", "mongodb", "clickhouse",
		"elasticsearch", "neo4j", "snowflake", "bigquery", "dwh", "data warehouse", "pgvector",
	},
	"api": {
		"rest", "graphql", "grpc", "openapi", "swagger", "oauth", "oidc", "websocket",
	},
	"cloud": {
		"aws", "gcp", "azure", "docker", "kubernetes", "k8s", "terraform", "ansible", "helm",
		"eks", "gke", "aks", "lambda", "cloud run",
	},
	"ai": {
		"llm", "rag", "vector", "embeddings", "ml", "machine learning", "openai", "groq",
		"ollama", "qdrant", "weaviate", "milvus",
	},
}

var achievementHints = newSet(
	"improve", "improved", "increase", "increased", "reduce", "reduced", "optimize", "optimized",
	"latency", "throughput", "qps", "rps", "availability", "uptime", "99.", "slo", "sla", "cost",
	"efficiency", "%", "x", "kpi", "metric", "conversion", "retention", "users", "revenue",
)

var cultureHints = newSet(
	"mentor", "mentored", "lead", "led", "leadership", "collaborate", "collaboration",
	"pair programming", "ownership", "communication", "cross-functional", "code review",
	"open source", "community",
)

var projectBonusHints = newSet(
	"test", "unit test", "integration test", "retry", "backoff", "circuit breaker", "rate limit",
	"observability", "metrics", "monitoring", "tracing", "sentry", "otel", "chaos",
)

var docsHints = newSet("readme", "docs", "documentation", "adr", "architecture", "diagram", "design")

var codeQualityHints = newSet(
	"modular", "clean code", "refactor", "pattern", "ddd", "hexagonal", "solid", "typing",
	"lint", "mypy", "pylint", "flake8", "black",
)

var correctnessHints = newSet(
	"backend", "api", "service", "postgres", "scalab", "scalable", "reliable", "performance",
)

var (
	tokenSplitRe  = regexp.MustCompile(`[^a-z0-9+.#]+`)
	experienceRe  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:years?|yrs?|tahun|thn)`)
	bulletRe      = regexp.MustCompile(`^[-*•\d)]\s+`)
	measurementRe = regexp.MustCompile(`\b\d+(\.\d+)?\s*(%|ms|s|qps|rps|req/s|x)\b`)
)

func newSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

type ExtractedProject struct {
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	TechStack []string `json:"tech_stack"`
	Impact    string   `json:"impact"`
}

type CVExtract struct {
	SkillsBackend   []string           `json:"skills_backend"`
	SkillsDB        []string           `json:"skills_db"`
	SkillsAPI       []string           `json:"skills_api"`
	SkillsCloud     []string           `json:"skills_cloud"`
	SkillsAI        []string           `json:"skills_ai"`
	ExperienceYears float64            `json:"experience_years"`
	Projects        []ExtractedProject `json:"projects"`
}

// TotalSkills counts matched skills across all categories.
func (e CVExtract) TotalSkills() int {
	return len(e.SkillsBackend) + len(e.SkillsDB) + len(e.SkillsAPI) +
		len(e.SkillsCloud) + len(e.SkillsAI)
}

type CVScores struct {
	Skills   int    `json:"skills"`
	Exp      int    `json:"exp"`
	Ach      int    `json:"ach"`
	Culture  int    `json:"culture"`
	Feedback string `json:"feedback"`
}

type ProjectScores struct {
	Corr     int    `json:"corr"`
	Code     int    `json:"code"`
	Res      int    `json:"res"`
	Docs     int    `json:"docs"`
	Bonus    int    `json:"bonus"`
	Feedback string `json:"feedback"`
}

func tokenize(text string) []string {
	var tokens []string
	for _, t := range tokenSplitRe.Split(strings.ToLower(text), -1) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func countHits(text string, vocab map[string]bool) int {
	count := 0
	for _, t := range tokenize(text) {
		if vocab[t] {
			count++
		}
	}
	return count
}

func uniq(values []string) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// ExtractCVHeuristic pulls skills, experience years and project lines out of
// raw CV text with no external model.
func ExtractCVHeuristic(cvText string) CVExtract {
	text := strings.TrimSpace(cvText)
	lower := strings.ToLower(text)
	tokens := tokenize(text)

	findSkills := func(category string) []string {
		vocab := skillVocab[category]
		set := newSet(vocab...)
		var hits []string
		for _, t := range tokens {
			if set[t] {
				hits = append(hits, t)
			}
		}
		for _, phrase := range vocab {
			if strings.Contains(phrase, " ") && strings.Contains(lower, phrase) {
				hits = append(hits, phrase)
			}
		}
		return uniq(hits)
	}

	var exp float64
	if m := experienceRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			exp = v
		}
	}

	var projects []ExtractedProject
	for _, line := range strings.Split(text, "\n") {
		if len(projects) >= 3 {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lowerLine := strings.ToLower(line)
		if !bulletRe.MatchString(line) &&
			!strings.Contains(lowerLine, "project") &&
			!strings.Contains(lowerLine, "proyek") &&
			!strings.Contains(lowerLine, "projek") {
			continue
		}

		name := strings.TrimSpace(bulletRe.ReplaceAllString(line, ""))
		if len(name) <= 3 {
			continue
		}
		if runes := []rune(name); len(runes) > 80 {
			name = string(runes[:80])
		}
		// Heuristic mode cannot infer role/stack/impact from a single line.
		projects = append(projects, ExtractedProject{Name: name, TechStack: []string{}})
	}

	return CVExtract{
		SkillsBackend:   findSkills("backend"),
		SkillsDB:        findSkills("db"),
		SkillsAPI:       findSkills("api"),
		SkillsCloud:     findSkills("cloud"),
		SkillsAI:        findSkills("ai"),
		ExperienceYears: exp,
		Projects:        projects,
	}
}

// binExperience maps years to 1..5 with cut points at 1, 2, 4 and 6 years.
func binExperience(years float64) int {
	switch {
	case years < 1:
		return 1
	case years < 2:
		return 2
	case years < 4:
		return 3
	case years < 6:
		return 4
	default:
		return 5
	}
}

func clampScore(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

// ScoreCVHeuristic derives the four CV sub-scores from the extraction and the
// retrieval context.
func ScoreCVHeuristic(extract CVExtract, cvCtx string) CVScores {
	totalSkills := extract.TotalSkills()

	ctxBonus := 0
	lowerCtx := strings.ToLower(cvCtx)
	for _, key := range []string{"backend", "api", "service", "microservice"} {
		if strings.Contains(lowerCtx, key) {
			ctxBonus = 1
			break
		}
	}
	skills := clampScore(totalSkills/4 + ctxBonus)

	exp := binExperience(extract.ExperienceYears)

	var impacts []string
	for _, p := range extract.Projects {
		impacts = append(impacts, p.Impact)
	}
	achHits := countHits(strings.Join(impacts, " ")+" "+cvCtx, achievementHints)
	ach := clampScore(2 + achHits/3)

	cultureHits := countHits(cvCtx, cultureHints)
	culture := clampScore(2 + cultureHits/2)

	feedback := fmt.Sprintf(
		"Matched ~%d skills; experience bin=%d/5; achievement hints=%d; culture hints=%d.",
		totalSkills, exp, achHits, cultureHits,
	)

	return CVScores{Skills: skills, Exp: exp, Ach: ach, Culture: culture, Feedback: feedback}
}

// ScoreProjectHeuristic derives the five project sub-scores from the report
// text and the retrieval context.
func ScoreProjectHeuristic(projectText, projectCtx string) ProjectScores {
	corrHits := countHits(projectText+" "+projectCtx, correctnessHints)
	corr := clampScore(2 + corrHits/3)

	codeHits := countHits(projectText, codeQualityHints)
	code := clampScore(2 + codeHits/2)

	resHits := len(measurementRe.FindAllString(strings.ToLower(projectText), -1)) +
		countHits(projectText, newSet("latency", "throughput", "p95", "p99"))
	res := clampScore(2 + resHits/2)

	docsHitCount := countHits(projectText, docsHints)
	docs := clampScore(2 + docsHitCount/2)

	bonusHits := countHits(projectText, projectBonusHints)
	bonus := clampScore(1 + bonusHits/2)

	feedback := fmt.Sprintf(
		"corr=%d hits, code=%d, results=%d, docs=%d, bonus=%d.",
		corrHits, codeHits, resHits, docsHitCount, bonusHits,
	)

	return ProjectScores{Corr: corr, Code: code, Res: res, Docs: docs, Bonus: bonus, Feedback: feedback}
}

// SummarizeHeuristic formats a one-line summary from the plain means of both
// score sets plus their feedback strings.
func SummarizeHeuristic(cv CVScores, proj ProjectScores) string {
	cvMean := float64(cv.Skills+cv.Exp+cv.Ach+cv.Culture) / 4.0
	projMean := float64(proj.Corr+proj.Code+proj.Res+proj.Docs+proj.Bonus) / 5.0

	return strings.TrimSpace(fmt.Sprintf(
		"CV average %.1f/5 and project score %.1f/5. %s %s",
		cvMean, projMean,
		strings.TrimSpace(cv.Feedback), strings.TrimSpace(proj.Feedback),
	))
}
