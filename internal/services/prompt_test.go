package services

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "abc", truncate("abcdef", 3))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// Two-byte runes: an odd byte limit lands mid-rune and must back off.
	text := strings.Repeat("é", 30)

	out := truncate(text, 15)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, 14, len(out))
	assert.Equal(t, strings.Repeat("é", 7), out)
}

func TestBuildExtractPromptTruncatesValidUTF8(t *testing.T) {
	cvText := strings.Repeat("日", maxPromptInput)

	prompt := NewPromptBuilder().BuildExtractPrompt(cvText)

	assert.True(t, utf8.ValidString(prompt))
	assert.Less(t, len(prompt), len(cvText))
}
