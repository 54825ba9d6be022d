package detectors

import (
	"fmt"
	"regexp"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

var (
	kotlinNegativeGuard = regexp.MustCompile(`if\s*\(\s*([A-Za-z_]\w*)\s*(?:==|===)\s*null[^)]*\)`)
	kotlinPositiveGuard = regexp.MustCompile(`if\s*\(\s*([A-Za-z_]\w*)\s*!=\s*null[^)]*\)`)
	kotlinSafeCallGuard = regexp.MustCompile(`if\s*\(\s*([A-Za-z_]\w*)\s*\?\.[^)]*\)`)
	kotlinSmartCast     = regexp.MustCompile(`\b(?:val|var)\s+([A-Za-z_]\w*)\s*=\s*[^;\n]+as\?\s+[A-Za-z0-9_.]+`)
	kotlinElvisAssign   = regexp.MustCompile(`\b(?:val|var)\s+([A-Za-z_]\w*)\s*=\s*[^;\n]+?\?:`)

	kotlinExit = core.NewExitClassifier("return", "throw", "continue", "break")
)

const kotlinForceTemplate = `%s\s*!!`

// KotlinDetector Kotlin 空值守卫检测器
// 匹配判空守卫后继续用 !! 强制解包的写法，另有两条独立规则：
// as? 失败转换后的 !!，以及 Elvis 兜底赋值后的 !!。
type KotlinDetector struct {
	*BaseDetector
	scanner *GuardScanner
}

// NewKotlinDetector 创建 Kotlin 检测器
func NewKotlinDetector() *KotlinDetector {
	return &KotlinDetector{
		BaseDetector: NewBaseDetector(
			"Kotlin Null Guard Detector",
			"Detects non-exiting null guards followed by !! force unwrap",
			"kotlin",
			map[string]bool{".kt": true, ".kts": true},
			map[string]bool{
				".git": true, "build": true, "out": true, "dist": true,
				"target": true, ".gradle": true, ".idea": true, "node_modules": true,
			},
		),
		scanner: &GuardScanner{
			Shapes: []GuardShape{
				{Pattern: kotlinNegativeGuard, Message: "%s!! after non-exiting null guard", SkipOnExit: true},
				{Pattern: kotlinPositiveGuard, Message: "%s!! used after '!= null' guard without exit", SkipOnExit: false},
				{Pattern: kotlinSafeCallGuard, Message: "%s!! used after ?. guard without exit", SkipOnExit: false},
			},
			ForceTemplate:  kotlinForceTemplate,
			AssignTemplate: `%s\s*=`,
			Exit:           kotlinExit,
			Kind:           core.KindForceUnwrap,
		},
	}
}

// AnalyzeFile 分析单个 Kotlin 文件
func (d *KotlinDetector) AnalyzeFile(path string, source []byte) []core.Finding {
	text := core.Mask(string(source), core.MaskKotlin())

	findings := d.scanner.Scan(text)
	findings = append(findings, d.bindingIssues(text, kotlinSmartCast, "%s forced (!!) after as? smart cast")...)
	findings = append(findings, d.bindingIssues(text, kotlinElvisAssign, "%s assigned via Elvis operator but later forced with !!")...)

	for i := range findings {
		findings[i].File = path
	}
	return findings
}

// bindingIssues 绑定类规则：匹配声明后查找首个 !!，在强制访问处报告
func (d *KotlinDetector) bindingIssues(text string, pattern *regexp.Regexp, message string) []core.Finding {
	var findings []core.Finding
	for _, m := range pattern.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		forceRe := regexp.MustCompile(fmt.Sprintf(kotlinForceTemplate, regexp.QuoteMeta(name)))
		force := forceRe.FindStringIndex(text[m[1]:])
		if force == nil {
			continue
		}
		line, col := core.LineCol(text, m[1]+force[0])
		findings = append(findings, core.Finding{
			Line:    line,
			Column:  col,
			Kind:    core.KindForceUnwrap,
			Message: fmt.Sprintf(message, name),
		})
	}
	return findings
}
