package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleFromContent_ShortContentIsUsedVerbatim(t *testing.T) {
	assert.Equal(t, "what were my top products last month?", titleFromContent("what were my top products last month?"))
}

func TestTitleFromContent_TrimsSurroundingWhitespace(t *testing.T) {
	assert.Equal(t, "hello", titleFromContent("  hello  "))
}

func TestTitleFromContent_TruncatesAtWordBoundary(t *testing.T) {
	content := strings.Repeat("a", 45) + " " + strings.Repeat("b", 45)
	got := titleFromContent(content)
	assert.Equal(t, strings.Repeat("a", 45), got)
	assert.LessOrEqual(t, len([]rune(got)), maxTitleLength)
}

func TestTitleFromContent_FallsBackToStraightTruncationWithNoWordBoundary(t *testing.T) {
	content := strings.Repeat("a", 80)
	got := titleFromContent(content)
	assert.Equal(t, strings.Repeat("a", maxTitleLength), got)
}

func TestTitleFromContent_WhitespaceOnlyFallsBackToDefaultTitle(t *testing.T) {
	assert.Equal(t, defaultConversationTitle, titleFromContent("   "))
}
