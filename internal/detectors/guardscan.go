package detectors

import (
	"fmt"
	"regexp"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

// GuardShape 一种守卫形态
// SkipOnExit 标记守卫体内出现逃逸关键字时是否豁免：
// 否定判空（== null/nil）的守卫体退出说明空分支已经离开作用域，后续强制访问安全；
// 极性相反的守卫（!= null/nil、?. 判断）体内退出证明的是非空分支，豁免不成立。
type GuardShape struct {
	Pattern    *regexp.Regexp
	Message    string // 含一个 %s 占位，代入被守卫的标识符
	SkipOnExit bool
	// TrailingOpenBrace 形态末尾吞掉了块的开括号（用于要求必须带块体的守卫），
	// 提取块时回退一个字符
	TrailingOpenBrace bool
}

// GuardScanner 共享的守卫扫描引擎
// 匹配守卫形态 -> 提取守卫体 -> 逃逸分类 -> 向后查找首个强制访问，
// 强制访问之前出现对同名变量的赋值时视为新数据，抑制该条结果。
// 每个守卫匹配至多产生一条结果。
type GuardScanner struct {
	Shapes []GuardShape
	// ForceTemplate / AssignTemplate 含一个 %s 占位，代入转义后的标识符
	ForceTemplate  string
	AssignTemplate string
	Exit           *core.ExitClassifier
	Kind           string
}

// Scan 在掩码后的文本上执行扫描，返回的结果不带文件字段
func (g *GuardScanner) Scan(text string) []core.Finding {
	var findings []core.Finding
	for _, shape := range g.Shapes {
		for _, m := range shape.Pattern.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			from := m[1]
			if shape.TrailingOpenBrace {
				from--
			}
			block, _, guardEnd := core.ExtractBlock(text, from)
			if shape.SkipOnExit && g.Exit.Exits(block) {
				continue
			}
			if f, ok := g.findForcedAccess(text, guardEnd, name, shape.Message); ok {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

// ScanRange 针对一段已知的守卫区间执行同样的向后扫描
// 用于结构化匹配输入给出的守卫（区间为字节偏移）
func (g *GuardScanner) ScanRange(text string, start, end int, name, message string) (core.Finding, bool) {
	if start < 0 || end > len(text) || start > end {
		return core.Finding{}, false
	}
	if g.Exit.Exits(text[start:end]) {
		return core.Finding{}, false
	}
	return g.findForcedAccess(text, end, name, message)
}

// findForcedAccess 从 from 起查找 name 的首个强制访问
// 若这之前出现对 name 的赋值则抑制；命中时在强制访问处产生结果
func (g *GuardScanner) findForcedAccess(text string, from int, name, message string) (core.Finding, bool) {
	quoted := regexp.QuoteMeta(name)
	forceRe := regexp.MustCompile(fmt.Sprintf(g.ForceTemplate, quoted))
	assignRe := regexp.MustCompile(fmt.Sprintf(g.AssignTemplate, quoted))

	rest := text[from:]
	force := forceRe.FindStringIndex(rest)
	if force == nil {
		return core.Finding{}, false
	}
	if assignRe.MatchString(rest[:force[0]]) {
		return core.Finding{}, false
	}
	line, col := core.LineCol(text, from+force[0])
	return core.Finding{
		Line:    line,
		Column:  col,
		Kind:    g.Kind,
		Message: fmt.Sprintf(message, name),
	}, true
}
