package core

import (
	"regexp"
	"strings"
)

// findBlockEnd 从 braceStart 起做花括号配对，返回与首个 { 配对的 } 的下标
// 不配对时返回文本末尾
func findBlockEnd(text string, braceStart int) int {
	depth := 0
	for idx := braceStart; idx < len(text); idx++ {
		switch text[idx] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return idx
			}
		}
	}
	return len(text) - 1
}

// skipSpace 跳过空白字符，返回第一个非空白字符的下标
func skipSpace(text string, idx int) int {
	for idx < len(text) && isSpace(text[idx]) {
		idx++
	}
	return idx
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\v' || ch == '\f'
}

// ExtractBlock 提取守卫引导语法之后的块
// from 指向守卫条件之后的位置。若下一个非空白字符是 {，提取配对的花括号块（含定界符）；
// 否则按单语句守卫处理，提取到行尾（不含换行）。
// 返回块文本、块起始下标、块之后的下标。
func ExtractBlock(text string, from int) (block string, start, end int) {
	idx := skipSpace(text, from)
	if idx < len(text) && text[idx] == '{' {
		blockEnd := findBlockEnd(text, idx)
		return text[idx : blockEnd+1], idx, blockEnd + 1
	}
	newline := strings.IndexByte(text[idx:], '\n')
	if newline == -1 {
		return text[idx:], idx, len(text)
	}
	return text[idx : idx+newline], idx, idx + newline
}

// ExitClassifier 判断块内是否出现逃逸控制关键字
// 只做关键字存在性检测，不做可达性分析：嵌套在内层分支里的 return 同样计数。
// 宁可漏报也不误报。
type ExitClassifier struct {
	re *regexp.Regexp
}

// NewExitClassifier 按关键字集合构造分类器
func NewExitClassifier(keywords ...string) *ExitClassifier {
	return &ExitClassifier{
		re: regexp.MustCompile(`\b(?:` + strings.Join(keywords, "|") + `)\b`),
	}
}

// Exits 块内是否包含任一逃逸关键字
func (c *ExitClassifier) Exits(block string) bool {
	return c.re.MatchString(block)
}

// LineCol 由字符偏移计算 1 起始的行列号
func LineCol(text string, pos int) (line, col int) {
	line = strings.Count(text[:pos], "\n") + 1
	lastNewline := strings.LastIndexByte(text[:pos], '\n')
	if lastNewline == -1 {
		return line, pos + 1
	}
	return line, pos - lastNewline
}
