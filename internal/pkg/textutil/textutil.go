// Package textutil 提供文档切分与文本处理工具函数。
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSeparators 递归切分使用的分隔符，按优先级从段落到单字符。
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", " ", ""}

var (
	collectionNameRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	whitespaceRegex     = regexp.MustCompile(`\s+`)
)

// SplitRecursive 将文本递归切分成带重叠的块。
// 优先在段落与句子边界切分，只有超长片段才退化到按词或按字符切分。
// chunkSize 与 overlap 均以 Unicode 字符数计。
func SplitRecursive(text string, chunkSize, overlap int, separators []string) []string {
	if chunkSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	return splitText(text, chunkSize, overlap, separators)
}

func splitText(text string, chunkSize, overlap int, separators []string) []string {
	separator := separators[len(separators)-1]
	var nextSeparators []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			nextSeparators = separators[i+1:]
			break
		}
	}

	var splits []string
	if separator == "" {
		splits = splitRunes(text, chunkSize)
	} else {
		splits = strings.Split(text, separator)
	}

	var final []string
	var good []string
	for _, s := range splits {
		if utf8.RuneCountInString(s) < chunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, mergeSplits(good, separator, chunkSize, overlap)...)
			good = nil
		}
		if len(nextSeparators) == 0 {
			final = append(final, s)
		} else {
			final = append(final, splitText(s, chunkSize, overlap, nextSeparators)...)
		}
	}
	if len(good) > 0 {
		final = append(final, mergeSplits(good, separator, chunkSize, overlap)...)
	}
	return final
}

// mergeSplits 将细粒度片段合并成不超过 chunkSize 的块，
// 相邻块之间保留约 overlap 个字符的重叠。
func mergeSplits(splits []string, separator string, chunkSize, overlap int) []string {
	sepLen := utf8.RuneCountInString(separator)

	var docs []string
	var current []string
	total := 0

	for _, s := range splits {
		l := utf8.RuneCountInString(s)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+l+extra > chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				docs = append(docs, doc)
			}
			for total > overlap || (total+l+extra > chunkSize && total > 0) {
				head := utf8.RuneCountInString(current[0])
				total -= head
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
				if len(current) == 0 {
					break
				}
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, s)
		total += l
	}

	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitRunes 按固定字符数硬切分，用于没有任何分隔符可用的超长文本。
func splitRunes(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var parts []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}

// SanitizeCollectionName 将名称中不允许的字符替换为下划线。
// 向量库的集合名仅允许字母、数字、下划线和连字符。
func SanitizeCollectionName(name string) string {
	return collectionNameRegex.ReplaceAllString(name, "_")
}

// CollapseWhitespace 将连续空白折叠为单个空格并去除首尾空白。
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// Preview 返回内容预览，超过 maxLen 个字符时截断并追加省略号。
func Preview(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return TruncateString(s, maxLen) + "..."
}

// 相似度分档阈值。
const (
	highRelevanceThreshold   = 0.80
	mediumRelevanceThreshold = 0.60
)

// RelevanceTier 根据相似度分数返回 high、medium 或 low。
func RelevanceTier(score float64) string {
	switch {
	case score > highRelevanceThreshold:
		return "high"
	case score > mediumRelevanceThreshold:
		return "medium"
	default:
		return "low"
	}
}

// RoundScore 将分数四舍五入到两位小数。
func RoundScore(score float64) float64 {
	return math.Round(score*100) / 100
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]，向量为空或长度不一致时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
