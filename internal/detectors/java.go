package detectors

import (
	"regexp"
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

var (
	javaStatementDecl = regexp.MustCompile(`(?s)\b(?:PreparedStatement|CallableStatement|Statement)\s+([A-Za-z_][A-Za-z0-9_]*)\s*=.*?;`)
	javaResultSetDecl = regexp.MustCompile(`(?s)\bResultSet\s+([A-Za-z_][A-Za-z0-9_]*)\s*=.*?;`)
	javaTryResource   = regexp.MustCompile(`\btry\s*\(`)
)

// JavaDetector JDBC 句柄生命周期检测器
// 对掩码后的文本匹配 Statement/PreparedStatement/CallableStatement/ResultSet 声明，
// 声明既不在 try-with-resources 的资源列表内、后文又没有 <name>.close( 调用时报告。
// 不做作用域与别名建模。
type JavaDetector struct {
	*BaseDetector
}

// NewJavaDetector 创建 Java 检测器
func NewJavaDetector() *JavaDetector {
	return &JavaDetector{
		BaseDetector: NewBaseDetector(
			"Java JDBC Handle Detector",
			"Detects Statement/ResultSet declarations without close() or try-with-resources",
			"java",
			map[string]bool{".java": true},
			map[string]bool{
				".git": true, "node_modules": true, "dist": true, "build": true,
				"bin": true, "out": true, ".venv": true, "vendor": true,
			},
		),
	}
}

// AnalyzeFile 分析单个 Java 文件
func (d *JavaDetector) AnalyzeFile(path string, source []byte) []core.Finding {
	text := string(source)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	masked := core.Mask(text, core.MaskJava())

	var findings []core.Finding
	findings = append(findings, d.declarationIssues(masked, javaStatementDecl, core.KindStatementHandle, path)...)
	findings = append(findings, d.declarationIssues(masked, javaResultSetDecl, core.KindResultSetHandle, path)...)
	return findings
}

// declarationIssues 对一种声明形态匹配并过滤
func (d *JavaDetector) declarationIssues(masked string, pattern *regexp.Regexp, kind, path string) []core.Finding {
	var findings []core.Finding
	for _, m := range pattern.FindAllStringSubmatchIndex(masked, -1) {
		name := masked[m[2]:m[3]]
		if name == "_" {
			continue
		}
		start := m[0]
		if insideTryWithResources(masked, start) {
			continue
		}
		if hasClose(name, masked) {
			continue
		}
		line, _ := core.LineCol(masked, start)
		findings = append(findings, core.Finding{
			File: path,
			Line: line,
			Kind: kind,
		})
	}
	return findings
}

// hasClose 掩码文本中任意位置是否出现 <name>.close( 调用
func hasClose(name, masked string) bool {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\.close\s*\(`)
	return re.MatchString(masked)
}

// insideTryWithResources 向前找最近的 try ( 并确认声明仍处于其未闭合的括号深度内
func insideTryWithResources(masked string, start int) bool {
	matches := javaTryResource.FindAllStringIndex(masked[:start], -1)
	if len(matches) == 0 {
		return false
	}
	last := matches[len(matches)-1]
	depth := 1
	for i := last[1]; i < start; i++ {
		switch masked[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return false
			}
		}
	}
	return depth > 0
}
