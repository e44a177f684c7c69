package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsStringList(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want []string
	}{
		{"nil", nil, []string{}},
		{"list", []interface{}{"go", " python ", ""}, []string{"go", "python"}},
		{"comma string", "go, python, ", []string{"go", "python"}},
		{"scalar", 42, []string{"42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, asStringList(tt.in))
		})
	}
}

func TestClamp15(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int
	}{
		{"in range", 4, 4},
		{"float", 4.9, 4},
		{"numeric string", "5", 5},
		{"too low", 0, 1},
		{"too high", 12, 5},
		{"garbage defaults to midpoint", "not a number", 3},
		{"nil defaults to midpoint", nil, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, clamp15(tt.in))
		})
	}
}

func TestCoerceProjects(t *testing.T) {
	raw := []interface{}{
		"payment gateway",
		map[string]interface{}{
			"project_name": "etl pipeline",
			"position":     "lead",
			"stack":        "airflow, dbt",
			"outcome":      "cut runtime by half",
		},
		map[string]interface{}{},
	}

	projects := CoerceProjects(raw)
	require.Len(t, projects, 3)

	assert.Equal(t, "payment gateway", projects[0].Name)
	assert.Empty(t, projects[0].TechStack)

	assert.Equal(t, "etl pipeline", projects[1].Name)
	assert.Equal(t, "lead", projects[1].Role)
	assert.Equal(t, []string{"airflow", "dbt"}, projects[1].TechStack)
	assert.Equal(t, "cut runtime by half", projects[1].Impact)

	assert.Equal(t, "project-3", projects[2].Name)
}

func TestCoerceProjectsScalar(t *testing.T) {
	projects := CoerceProjects("single project")
	require.Len(t, projects, 1)
	assert.Equal(t, "single project", projects[0].Name)
}

func TestCoerceCVExtract(t *testing.T) {
	extract := CoerceCVExtract(map[string]interface{}{
		"skills_backend":   []interface{}{"go", "python"},
		"skills_db":        "postgres",
		"experience_years": "4.5",
		"projects":         []interface{}{"svc"},
	})

	assert.Equal(t, []string{"go", "python"}, extract.SkillsBackend)
	assert.Equal(t, []string{"postgres"}, extract.SkillsDB)
	assert.Equal(t, 4.5, extract.ExperienceYears)
	require.Len(t, extract.Projects, 1)
	assert.Equal(t, "svc", extract.Projects[0].Name)
}

func TestCoerceCVExtractNil(t *testing.T) {
	extract := CoerceCVExtract(nil)

	assert.Zero(t, extract.ExperienceYears)
	assert.Empty(t, extract.SkillsBackend)
	assert.Empty(t, extract.Projects)
}

func TestCoerceCVScores(t *testing.T) {
	scores := CoerceCVScores(map[string]interface{}{
		"skills":   4.0,
		"exp":      "banana",
		"culture":  7,
		"feedback": "solid profile",
	})

	assert.Equal(t, 4, scores.Skills)
	assert.Equal(t, 3, scores.Exp)
	assert.Equal(t, 3, scores.Ach)
	assert.Equal(t, 5, scores.Culture)
	assert.Equal(t, "solid profile", scores.Feedback)
}

func TestCoerceProjectScoresEmpty(t *testing.T) {
	scores := CoerceProjectScores(map[string]interface{}{})

	assert.Equal(t, 3, scores.Corr)
	assert.Equal(t, 3, scores.Code)
	assert.Equal(t, 3, scores.Res)
	assert.Equal(t, 3, scores.Docs)
	assert.Equal(t, 3, scores.Bonus)
	assert.Empty(t, scores.Feedback)
}
