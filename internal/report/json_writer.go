package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"
)

// JSONReport JSON 格式报告
type JSONReport struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Tool        ToolInfo               `json:"tool"`
	Summary     Summary                `json:"summary"`
	Findings    []FindingReport        `json:"findings"`
	Statistics  map[string]interface{} `json:"statistics,omitempty"`
}

// ToolInfo 工具信息
type ToolInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// Summary 结果统计摘要
type Summary struct {
	Total        int            `json:"total"`
	BySeverity   map[string]int `json:"by_severity"`
	ByKind       map[string]int `json:"by_kind"`
	FilesScanned int            `json:"files_scanned,omitempty"`
}

// FindingReport 单条结果
type FindingReport struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity"`
}

// JSONWriter JSON 报告写入器
type JSONWriter struct {
	writer io.Writer
	pretty bool
}

// NewJSONWriter 创建新的 JSON 写入器
func NewJSONWriter(writer io.Writer, options ...JSONOption) *JSONWriter {
	w := &JSONWriter{
		writer: writer,
		pretty: false,
	}

	for _, opt := range options {
		opt(w)
	}

	return w
}

// JSONOption JSON 选项
type JSONOption func(*JSONWriter)

// WithPrettyJSON 启用美化 JSON 输出
func WithPrettyJSON() JSONOption {
	return func(w *JSONWriter) {
		w.pretty = true
	}
}

// Write 生成并写入报告
func (w *JSONWriter) Write(result *ScanResult) error {
	report := w.generateReport(result)

	var data []byte
	var err error

	if w.pretty {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = json.Marshal(report)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}

	_, err = w.writer.Write(data)
	return err
}

// generateReport 生成报告数据
func (w *JSONWriter) generateReport(result *ScanResult) *JSONReport {
	report := &JSONReport{
		GeneratedAt: time.Now(),
		Tool: ToolInfo{
			Name:        "ultimate-bug-scanner",
			Version:     "1.0.0",
			Description: "Resource lifecycle and nullable narrowing scanner",
		},
		Summary: Summary{
			Total:        len(result.Findings),
			BySeverity:   make(map[string]int),
			ByKind:       make(map[string]int),
			FilesScanned: result.FilesScanned,
		},
		Findings:   make([]FindingReport, 0, len(result.Findings)),
		Statistics: make(map[string]interface{}),
	}

	for _, f := range result.Findings {
		severity := SeverityForKind(f.Kind)
		report.Summary.BySeverity[severity]++
		report.Summary.ByKind[f.Kind]++

		report.Findings = append(report.Findings, FindingReport{
			Kind:     f.Kind,
			Message:  messageFor(f),
			File:     f.File,
			Line:     f.Line,
			Column:   f.Column,
			Severity: severity,
		})
	}

	// 按严重性排序，同级按文件和行号
	severityOrder := map[string]int{
		"high":   0,
		"medium": 1,
		"low":    2,
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		si := severityOrder[report.Findings[i].Severity]
		sj := severityOrder[report.Findings[j].Severity]
		if si != sj {
			return si < sj
		}
		if report.Findings[i].File != report.Findings[j].File {
			return report.Findings[i].File < report.Findings[j].File
		}
		return report.Findings[i].Line < report.Findings[j].Line
	})

	report.Statistics["scan_duration"] = result.Duration.String()
	report.Statistics["language"] = result.Language
	report.Statistics["detector"] = result.Detector

	return report
}
