package detectors

import (
	"fmt"
	"regexp"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

var (
	swiftNegativeGuard = regexp.MustCompile(`if\s*\(?\s*([A-Za-z_]\w*)\s*==\s*nil[^){]*\)?`)
	swiftPositiveGuard = regexp.MustCompile(`if\s*\(?\s*([A-Za-z_]\w*)\s*!=\s*nil[^){]*\)?`)
	swiftChainGuard    = regexp.MustCompile(`if\s*\(?\s*([A-Za-z_]\w*)\s*\?\.[^){]*\)?`)
	swiftGuardLet      = regexp.MustCompile(`guard\s+let\s+([A-Za-z_]\w*)\s*=\s*[^\n]+?\s+else`)

	swiftExit = core.NewExitClassifier("return", "throw", "break", "continue", "fatalError", "preconditionFailure")
)

// SwiftDetector Swift 可选值守卫检测器
// 判 nil 守卫后强制解包（x!）的规则与 guard let 的 else 块不退出规则
type SwiftDetector struct {
	*BaseDetector
	scanner *GuardScanner
}

// NewSwiftDetector 创建 Swift 检测器
func NewSwiftDetector() *SwiftDetector {
	return &SwiftDetector{
		BaseDetector: NewBaseDetector(
			"Swift Optional Guard Detector",
			"Detects non-exiting nil guards followed by force unwrap and non-exiting guard-let else blocks",
			"swift",
			map[string]bool{".swift": true},
			map[string]bool{
				".git": true, ".hg": true, ".svn": true, "build": true,
				"DerivedData": true, ".swiftpm": true, ".idea": true, "node_modules": true,
			},
		),
		scanner: &GuardScanner{
			Shapes: []GuardShape{
				{Pattern: swiftNegativeGuard, Message: "%s! used after == nil guard without exit", SkipOnExit: true},
				{Pattern: swiftPositiveGuard, Message: "%s! used after '!= nil' guard without exit", SkipOnExit: false},
				{Pattern: swiftChainGuard, Message: "%s! forced after ?. guard without exit", SkipOnExit: false},
			},
			ForceTemplate:  `%s\s*!`,
			AssignTemplate: `%s\s*=`,
			Exit:           swiftExit,
			Kind:           core.KindForceUnwrap,
		},
	}
}

// AnalyzeFile 分析单个 Swift 文件
func (d *SwiftDetector) AnalyzeFile(path string, source []byte) []core.Finding {
	text := core.Mask(string(source), core.MaskSwift())

	findings := d.scanner.Scan(text)
	findings = append(findings, d.guardLetIssues(text)...)

	for i := range findings {
		findings[i].File = path
	}
	return findings
}

// guardLetIssues guard let 的 else 块必须让控制流离开当前作用域，
// 否则绑定失败后代码继续执行，本身即是一条结果
func (d *SwiftDetector) guardLetIssues(text string) []core.Finding {
	var findings []core.Finding
	for _, m := range swiftGuardLet.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		block, blockStart, _ := core.ExtractBlock(text, m[1])
		if swiftExit.Exits(block) {
			continue
		}
		line, col := core.LineCol(text, blockStart)
		findings = append(findings, core.Finding{
			Line:    line,
			Column:  col,
			Kind:    core.KindGuardNoExit,
			Message: fmt.Sprintf("guard let '%s' else-block does not exit before continuing", name),
		})
	}
	return findings
}
