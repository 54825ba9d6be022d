package detectors

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

var (
	rustIfLetGuard = regexp.MustCompile(`if\s+let\s+(?:Some|Ok)\s*\([^)]*\)\s*=\s*([A-Za-z_][A-Za-z0-9_]*)\s*\{`)
	rustIdent      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	rustExit = core.NewExitClassifier("return", "break", "continue")
)

const rustUnwrapMessage = "%s unwrap/expect after partial guard"

// RustDetector Rust 局部守卫检测器
// if let Some/Ok 守卫未退出却在后续对同一值调用 unwrap/expect。
// 可选的结构化匹配输入（行分隔 JSON）给出更精确的守卫区间，
// 有可用结果时取代正则扫描，否则无条件静默回退到正则路径。
type RustDetector struct {
	*BaseDetector
	scanner *GuardScanner
}

// feedEntry 结构化匹配输入的一行
type feedEntry struct {
	File  string `json:"file"`
	Range struct {
		ByteOffset struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"byteOffset"`
	} `json:"range"`
	MetaVariables struct {
		Single map[string]struct {
			Text string `json:"text"`
		} `json:"single"`
	} `json:"metaVariables"`
}

// feedGuard 从输入行解析出的一个候选守卫
type feedGuard struct {
	path  string
	expr  string
	start int
	end   int
}

// NewRustDetector 创建 Rust 检测器
func NewRustDetector() *RustDetector {
	return &RustDetector{
		BaseDetector: NewBaseDetector(
			"Rust Partial Guard Detector",
			"Detects if-let guards that still unwrap/expect the guarded value later",
			"rust",
			map[string]bool{".rs": true},
			map[string]bool{
				"target": true, ".git": true, ".hg": true, ".svn": true, "node_modules": true,
			},
		),
		scanner: &GuardScanner{
			Shapes: []GuardShape{
				{Pattern: rustIfLetGuard, Message: rustUnwrapMessage, SkipOnExit: true, TrailingOpenBrace: true},
			},
			ForceTemplate:  `%s\s*\.(?:unwrap|expect)\s*\(`,
			AssignTemplate: `%s\s*=`,
			Exit:           rustExit,
			Kind:           core.KindForceUnwrap,
		},
	}
}

// AnalyzeFile 分析单个 Rust 文件（正则路径）
func (d *RustDetector) AnalyzeFile(path string, source []byte) []core.Finding {
	text := core.Mask(string(source), core.MaskRust())
	findings := d.scanner.Scan(text)
	for i := range findings {
		findings[i].File = path
	}
	return findings
}

// AnalyzeFeed 消费结构化匹配输入
// 返回的结果为空（输入缺失、不可读、无合法条目或没有命中）时由调用方回退到正则扫描
func (d *RustDetector) AnalyzeFeed(root, feedPath string) []core.Finding {
	guards := d.readFeed(root, feedPath)
	if len(guards) == 0 {
		return nil
	}

	cache := core.NewSourceCache()
	masked := make(map[string]string)

	var findings []core.Finding
	for _, g := range guards {
		text, ok := masked[g.path]
		if !ok {
			raw, err := cache.Get(g.path)
			if err != nil {
				continue
			}
			text = core.Mask(raw, core.MaskRust())
			masked[g.path] = text
		}
		f, ok := d.scanner.ScanRange(text, g.start, g.end, g.expr, rustUnwrapMessage)
		if !ok {
			continue
		}
		f.File = core.DisplayPath(root, g.path)
		findings = append(findings, f)
	}
	return findings
}

// readFeed 逐行解析输入，坏行跳过；守卫文件必须位于扫描根之下
func (d *RustDetector) readFeed(root, feedPath string) []feedGuard {
	fh, err := os.Open(feedPath)
	if err != nil {
		return nil
	}
	defer fh.Close()

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil
	}

	var guards []feedGuard
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var entry feedEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if g, ok := guardFromEntry(rootAbs, entry); ok {
			guards = append(guards, g)
		}
	}
	// 按文件和位置排序，保证输出与输入行序无关
	sort.Slice(guards, func(i, j int) bool {
		if guards[i].path != guards[j].path {
			return guards[i].path < guards[j].path
		}
		return guards[i].start < guards[j].start
	})
	return guards
}

// guardFromEntry 校验并转换一行输入
func guardFromEntry(rootAbs string, entry feedEntry) (feedGuard, bool) {
	node, ok := entry.MetaVariables.Single["SOURCE"]
	if !ok {
		node, ok = entry.MetaVariables.Single["S"]
	}
	if !ok || !rustIdent.MatchString(node.Text) {
		return feedGuard{}, false
	}
	if entry.File == "" {
		return feedGuard{}, false
	}
	start := entry.Range.ByteOffset.Start
	end := entry.Range.ByteOffset.End
	if start < 0 || end <= start {
		return feedGuard{}, false
	}
	path, err := filepath.Abs(entry.File)
	if err != nil {
		return feedGuard{}, false
	}
	rel, err := filepath.Rel(rootAbs, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return feedGuard{}, false
	}
	return feedGuard{path: path, expr: node.Text, start: start, end: end}, true
}
