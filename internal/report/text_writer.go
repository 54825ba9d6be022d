package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// TextWriter 文本格式报告写入器
type TextWriter struct {
	writer    io.Writer
	verbose   bool
	showStats bool
}

// NewTextWriter 创建新的文本写入器
func NewTextWriter(writer io.Writer, options ...TextOption) *TextWriter {
	w := &TextWriter{
		writer:    writer,
		verbose:   false,
		showStats: true,
	}

	for _, opt := range options {
		opt(w)
	}

	return w
}

// TextOption 文本选项
type TextOption func(*TextWriter)

// WithVerbose 启用详细输出
func WithVerbose() TextOption {
	return func(w *TextWriter) {
		w.verbose = true
	}
}

// WithoutStats 禁用统计信息
func WithoutStats() TextOption {
	return func(w *TextWriter) {
		w.showStats = false
	}
}

// Write 生成并写入文本报告
func (w *TextWriter) Write(result *ScanResult) error {
	if len(result.Findings) == 0 {
		w.writeNoFindings(result)
		return nil
	}

	w.writeHeader(result)

	if w.showStats {
		w.writeStatistics(result)
	}

	w.writeFindings(result)

	return nil
}

// writeHeader 写入报告标题
func (w *TextWriter) writeHeader(result *ScanResult) {
	fmt.Fprintf(w.writer, "\n")
	fmt.Fprintf(w.writer, "ultimate-bug-scanner Scan Results\n")
	fmt.Fprintf(w.writer, "=================================\n")
	fmt.Fprintf(w.writer, "Language: %s\n", result.Language)
	fmt.Fprintf(w.writer, "Scan Time: %s\n", result.Duration)
	fmt.Fprintf(w.writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
}

// writeNoFindings 写入无结果信息
func (w *TextWriter) writeNoFindings(result *ScanResult) {
	fmt.Fprintf(w.writer, "\n✓ No issues found.\n\n")
	fmt.Fprintf(w.writer, "Scan Summary:\n")
	fmt.Fprintf(w.writer, "  Language: %s\n", result.Language)
	fmt.Fprintf(w.writer, "  Files scanned: %d\n", result.FilesScanned)
	fmt.Fprintf(w.writer, "  Duration: %s\n\n", result.Duration)
}

// writeStatistics 写入统计信息
func (w *TextWriter) writeStatistics(result *ScanResult) {
	severityCount := make(map[string]int)
	kindCount := make(map[string]int)
	fileCount := make(map[string]int)
	for _, f := range result.Findings {
		severityCount[SeverityForKind(f.Kind)]++
		kindCount[f.Kind]++
		fileCount[f.File]++
	}

	fmt.Fprintf(w.writer, "Summary:\n")
	fmt.Fprintf(w.writer, "--------\n")
	fmt.Fprintf(w.writer, "Total issues: %d\n", len(result.Findings))
	fmt.Fprintf(w.writer, "  High: %d\n", severityCount["high"])
	fmt.Fprintf(w.writer, "  Medium: %d\n\n", severityCount["medium"])

	if w.verbose {
		kinds := make([]string, 0, len(kindCount))
		for kind := range kindCount {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		fmt.Fprintf(w.writer, "By Kind:\n")
		for _, kind := range kinds {
			fmt.Fprintf(w.writer, "  %s: %d\n", kind, kindCount[kind])
		}
		fmt.Fprintf(w.writer, "\n")
	}

	fmt.Fprintf(w.writer, "Files with issues: %d\n", len(fileCount))
	fmt.Fprintf(w.writer, "Files scanned: %d\n\n", result.FilesScanned)
}

// writeFindings 写入结果详情
func (w *TextWriter) writeFindings(result *ScanResult) {
	// 按严重性分组
	groups := make(map[string][]FindingReport)
	for _, f := range result.Findings {
		severity := SeverityForKind(f.Kind)
		groups[severity] = append(groups[severity], FindingReport{
			Kind:     f.Kind,
			Message:  messageFor(f),
			File:     f.File,
			Line:     f.Line,
			Column:   f.Column,
			Severity: severity,
		})
	}

	severityOrder := []string{"high", "medium", "low"}

	for _, severity := range severityOrder {
		findings, ok := groups[severity]
		if !ok || len(findings) == 0 {
			continue
		}

		// 按文件分组，文件名排序保证输出稳定
		fileGroups := make(map[string][]FindingReport)
		for _, f := range findings {
			fileGroups[f.File] = append(fileGroups[f.File], f)
		}
		filenames := make([]string, 0, len(fileGroups))
		for filename := range fileGroups {
			filenames = append(filenames, filename)
		}
		sort.Strings(filenames)

		fmt.Fprintf(w.writer, "%s Issues (%d):\n", strings.ToUpper(severity), len(findings))
		fmt.Fprintf(w.writer, "%s\n", strings.Repeat("=", 50))

		for _, filename := range filenames {
			fmt.Fprintf(w.writer, "\nFile: %s\n", filename)
			fmt.Fprintf(w.writer, "%s\n", strings.Repeat("-", 50))

			tw := tabwriter.NewWriter(w.writer, 0, 8, 2, ' ', 0)
			for _, f := range fileGroups[filename] {
				pos := fmt.Sprintf("%d", f.Line)
				if f.Column > 0 {
					pos = fmt.Sprintf("%d:%d", f.Line, f.Column)
				}
				fmt.Fprintf(tw, "  %s\t%s\t%s\t(%s)\n",
					severity,
					pos,
					f.Message,
					f.Kind,
				)
			}
			tw.Flush()
		}
		fmt.Fprintf(w.writer, "\n")
	}
}
