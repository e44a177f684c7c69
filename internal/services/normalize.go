package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Coercion of untyped model output. The text generator gives no structural
// guarantee, so every field goes through a best-effort cast with a safe
// default instead of an error.

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// asStringList accepts nil, a list, a comma-separated string or a scalar.
func asStringList(v interface{}) []string {
	switch x := v.(type) {
	case nil:
		return []string{}
	case []interface{}:
		var out []string
		for _, item := range x {
			if s := strings.TrimSpace(asString(item)); s != "" {
				out = append(out, s)
			}
		}
		if out == nil {
			out = []string{}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(x, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
		if out == nil {
			out = []string{}
		}
		return out
	default:
		return []string{asString(v)}
	}
}

// clamp15 coerces to an integer in [1,5]. Anything non-numeric lands on the
// neutral midpoint 3.
func clamp15(v interface{}) int {
	f, ok := asFloat(v)
	if !ok {
		return 3
	}
	return clampScore(int(f))
}

func firstKey(raw map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil && asString(v) != "" {
			return v
		}
	}
	return nil
}

// CoerceProjects accepts a list of strings or dicts with alias keys, or a
// single scalar, and normalizes each entry.
func CoerceProjects(raw interface{}) []ExtractedProject {
	var items []interface{}
	switch x := raw.(type) {
	case nil:
	case []interface{}:
		items = x
	default:
		items = []interface{}{x}
	}

	out := make([]ExtractedProject, 0, len(items))
	for idx, item := range items {
		project := ExtractedProject{
			Name:      fmt.Sprintf("project-%d", idx+1),
			TechStack: []string{},
		}

		switch v := item.(type) {
		case string:
			if name := strings.TrimSpace(v); name != "" {
				project.Name = name
			}
		case map[string]interface{}:
			if name := strings.TrimSpace(asString(firstKey(v, "name", "project_name", "title", "project"))); name != "" {
				project.Name = name
			}
			project.Role = asString(firstKey(v, "role", "position"))
			project.TechStack = asStringList(firstKey(v, "tech_stack", "stack", "tech"))
			project.Impact = asString(firstKey(v, "impact", "result", "outcome"))
		}

		out = append(out, project)
	}
	return out
}

// CoerceCVExtract normalizes the P1 extraction payload.
func CoerceCVExtract(raw map[string]interface{}) CVExtract {
	if raw == nil {
		raw = map[string]interface{}{}
	}

	years, ok := asFloat(raw["experience_years"])
	if !ok {
		years = 0
	}

	return CVExtract{
		SkillsBackend:   asStringList(raw["skills_backend"]),
		SkillsDB:        asStringList(raw["skills_db"]),
		SkillsAPI:       asStringList(raw["skills_api"]),
		SkillsCloud:     asStringList(raw["skills_cloud"]),
		SkillsAI:        asStringList(raw["skills_ai"]),
		ExperienceYears: years,
		Projects:        CoerceProjects(raw["projects"]),
	}
}

// CoerceCVScores normalizes the P2 scoring payload.
func CoerceCVScores(raw map[string]interface{}) CVScores {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return CVScores{
		Skills:   clamp15(raw["skills"]),
		Exp:      clamp15(raw["exp"]),
		Ach:      clamp15(raw["ach"]),
		Culture:  clamp15(raw["culture"]),
		Feedback: asString(raw["feedback"]),
	}
}

// CoerceProjectScores normalizes the P3 scoring payload.
func CoerceProjectScores(raw map[string]interface{}) ProjectScores {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	return ProjectScores{
		Corr:     clamp15(raw["corr"]),
		Code:     clamp15(raw["code"]),
		Res:      clamp15(raw["res"]),
		Docs:     clamp15(raw["docs"]),
		Bonus:    clamp15(raw["bonus"]),
		Feedback: asString(raw["feedback"]),
	}
}
