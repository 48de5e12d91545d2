// Package migration 实现旧扁平模型到层级模型的数据迁移引擎
package migration

import (
	"encoding/json"
	"strings"
	"unicode"

	apperrors "z-novel-migration/pkg/errors"
)

// ContentBlock 旧章节富文本载荷中的内容块
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ContentDocument 旧章节富文本载荷
// 迁移只关心纯文本，块类型与其他字段原样忽略。
type ContentDocument struct {
	Blocks []ContentBlock `json:"blocks"`
}

// ExtractPlainText 从旧章节的结构化载荷中抽取纯文本
// 载荷必须是含 blocks 数组的 JSON 文档，空串或无法解析时返回错误。
func ExtractPlainText(payload string) (string, error) {
	if strings.TrimSpace(payload) == "" {
		return "", apperrors.New(apperrors.CodeContentUnparseable, "content payload is empty")
	}

	var doc ContentDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeContentUnparseable, "content payload is not valid JSON")
	}
	if doc.Blocks == nil {
		return "", apperrors.New(apperrors.CodeContentUnparseable, "content payload has no blocks")
	}

	texts := make([]string, 0, len(doc.Blocks))
	for _, block := range doc.Blocks {
		texts = append(texts, block.Text)
	}
	return strings.Join(texts, "\n"), nil
}

// CountWords 统计纯文本字数
// CJK 字符逐字计数，连续的拉丁字母或数字串计 1，其余字符不计。
// 创建场景与校验重算使用同一计数口径，保证聚合字数可复核。
func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r) ||
			unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Hangul, r):
			count++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				count++
				inWord = true
			}
		default:
			inWord = false
		}
	}
	return count
}
