package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "z-novel-migration/pkg/errors"
)

func TestExtractPlainText(t *testing.T) {
	t.Run("joins block texts with newlines", func(t *testing.T) {
		payload := blockContent("first paragraph", "second paragraph")

		text, err := ExtractPlainText(payload)

		require.NoError(t, err)
		assert.Equal(t, "first paragraph\nsecond paragraph", text)
	})

	t.Run("ignores block types and extra fields", func(t *testing.T) {
		payload := `{"version":3,"blocks":[{"type":"heading","text":"标题","level":2},{"type":"paragraph","text":"正文"}]}`

		text, err := ExtractPlainText(payload)

		require.NoError(t, err)
		assert.Equal(t, "标题\n正文", text)
	})

	t.Run("empty blocks array yields empty text", func(t *testing.T) {
		text, err := ExtractPlainText(`{"blocks":[]}`)

		require.NoError(t, err)
		assert.Equal(t, "", text)
	})

	t.Run("empty payload is unparseable", func(t *testing.T) {
		_, err := ExtractPlainText("   ")

		require.Error(t, err)
		require.True(t, apperrors.IsAppError(err))
		assert.Equal(t, apperrors.CodeContentUnparseable, apperrors.AsAppError(err).Code)
	})

	t.Run("invalid json is unparseable", func(t *testing.T) {
		_, err := ExtractPlainText("{not json")

		require.Error(t, err)
		require.True(t, apperrors.IsAppError(err))
		assert.Equal(t, apperrors.CodeContentUnparseable, apperrors.AsAppError(err).Code)
	})

	t.Run("document without blocks is unparseable", func(t *testing.T) {
		_, err := ExtractPlainText(`{"title":"no blocks here"}`)

		require.Error(t, err)
		require.True(t, apperrors.IsAppError(err))
		assert.Equal(t, apperrors.CodeContentUnparseable, apperrors.AsAppError(err).Code)
	})
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"punctuation only", "... !!! ---", 0},
		{"single latin word", "hello", 1},
		{"latin words", "the quick brown fox", 4},
		{"latin words with punctuation", "hello, world! it's fine.", 5},
		{"digits count as words", "chapter 42 section 7", 4},
		{"cjk counts per character", "第一章风起", 5},
		{"cjk with punctuation", "你好，世界。", 4},
		{"mixed cjk and latin", "第1章 hello 世界", 6},
		{"hiragana and katakana", "ひらがなカタカナ", 8},
		{"hangul", "안녕하세요", 5},
		{"latin run split by cjk", "abc中def", 3},
		{"newlines separate words", "one\ntwo\nthree", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CountWords(tt.text))
		})
	}
}

func TestCountWordsMatchesSceneCreation(t *testing.T) {
	// 场景落库与校验重算共用同一计数口径
	text := "风雪夜归人 returns home after 10 years"
	payload := blockContent(text)

	extracted, err := ExtractPlainText(payload)
	require.NoError(t, err)
	assert.Equal(t, CountWords(text), CountWords(extracted))
}
