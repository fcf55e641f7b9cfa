package stream

import (
	"regexp"
	"strings"
)

// 文本净化沿用采集链路的口径：先去 URL/markdown/标点/数字/非 ASCII，
// 再按停用词表与长度过滤，留下对场景分析有信息量的词。
var (
	reMarkdownLink = regexp.MustCompile(`\[.*?\]\(.*?\)`)
	reURL          = regexp.MustCompile(`http\S+|www\S+|https\S+`)
	rePunct        = regexp.MustCompile(`[^\w\s]`)
	reDigits       = regexp.MustCompile(`\d+`)
	reNonASCII     = regexp.MustCompile(`[^\x00-\x7F]+`)
)

// stopWords 是通用英文停用词加上社区口水词（与历史采集口径一致）。
var stopWords = map[string]struct{}{}

func init() {
	words := []string{
		// 通用英文停用词（常用子集）
		"the", "and", "for", "are", "but", "not", "you", "all", "any", "can",
		"her", "was", "one", "our", "out", "day", "get", "has", "him", "his",
		"how", "man", "new", "now", "old", "see", "two", "way", "who", "its",
		"did", "yes", "had", "have", "been", "were", "they", "them", "then",
		"this", "that", "these", "those", "with", "from", "your", "what",
		"when", "where", "which", "while", "about", "into", "over", "under",
		"some", "more", "most", "other", "such", "only", "same", "than",
		"too", "very", "will", "does", "doing", "because", "between",
		// 社区口水词与噪声
		"http", "https", "www", "com", "reddit", "imgur",
		"edit", "deleted", "removed", "comment", "post",
		"think", "know", "like", "just", "want", "got",
		"really", "would", "could", "should", "much",
		"lol", "lmao", "tbh", "imo", "imho", "til",
		"today", "yesterday", "tomorrow", "week", "month",
	}
	for _, w := range words {
		stopWords[w] = struct{}{}
	}
}

// CleanText 净化并归一化一段文本。
// 输出是空格连接的保留词；全部被过滤时返回空串（上游据此判定记录退化）。
func CleanText(text string) string {
	text = strings.ToLower(text)
	text = reMarkdownLink.ReplaceAllString(text, "")
	text = reURL.ReplaceAllString(text, "")
	text = rePunct.ReplaceAllString(text, "")
	text = reDigits.ReplaceAllString(text, "")
	text = reNonASCII.ReplaceAllString(text, "")

	fields := strings.Fields(text)
	kept := make([]string, 0, len(fields))
	for _, word := range fields {
		if _, ok := stopWords[word]; ok {
			continue
		}
		if len(word) <= 2 {
			continue
		}
		if allSameRune(word) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// TruncateWords 截断到最多 n 个词。
func TruncateWords(text string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) <= n {
		return text
	}
	return strings.Join(fields[:n], " ")
}

func allSameRune(word string) bool {
	for i := 1; i < len(word); i++ {
		if word[i] != word[0] {
			return false
		}
	}
	return true
}
