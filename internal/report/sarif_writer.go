package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// kindDescriptions 规则级描述，按结果种类索引
var kindDescriptions = map[string]string{
	"file_handle":      "File handle acquired without a matching close or context manager",
	"socket_handle":    "Socket acquired without a matching close or context manager",
	"popen_handle":     "Subprocess handle acquired without wait/kill/terminate/communicate",
	"asyncio_task":     "Asyncio task created without await/cancel or bulk join",
	"statement_handle": "JDBC statement declared without close() or try-with-resources",
	"resultset_handle": "JDBC result set declared without close() or try-with-resources",
	"force_unwrap":     "Value force-accessed after a guard that does not cover this path",
	"guard_noexit":     "Guard else-block falls through without exiting the scope",
}

// SARIFWriter SARIF 格式报告写入器
type SARIFWriter struct {
	writer io.Writer
	pretty bool
}

// NewSARIFWriter 创建新的 SARIF 写入器
func NewSARIFWriter(writer io.Writer, options ...SARIFOption) *SARIFWriter {
	w := &SARIFWriter{
		writer: writer,
		pretty: false,
	}

	for _, opt := range options {
		opt(w)
	}

	return w
}

// SARIFOption SARIF 选项
type SARIFOption func(*SARIFWriter)

// WithPrettySARIF 启用美化 JSON 输出
func WithPrettySARIF() SARIFOption {
	return func(w *SARIFWriter) {
		w.pretty = true
	}
}

// Write 生成并写入 SARIF 报告
func (w *SARIFWriter) Write(result *ScanResult) error {
	sarifReport := w.generateSARIFReport(result)

	var data []byte
	var err error

	if w.pretty {
		data, err = json.MarshalIndent(sarifReport, "", "  ")
	} else {
		data, err = json.Marshal(sarifReport)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal SARIF report: %w", err)
	}

	_, err = w.writer.Write(data)
	return err
}

// generateSARIFReport 生成 SARIF 2.1.0 报告
func (w *SARIFWriter) generateSARIFReport(result *ScanResult) *SARIF {
	rules, ruleIndex := w.generateRules(result)

	return &SARIF{
		Version: "2.1.0",
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Runs: []Run{
			{
				Tool: Tool{
					Driver: Driver{
						Name:           "ultimate-bug-scanner",
						Version:        "1.0.0",
						InformationURI: "https://github.com/shaneholloman/ultimate-bug-scanner",
						Rules:          rules,
					},
				},
				Results: w.generateResults(result, ruleIndex),
			},
		},
	}
}

// generateRules 生成规则定义，规则 ID 即结果种类
func (w *SARIFWriter) generateRules(result *ScanResult) ([]Rule, map[string]int) {
	seen := make(map[string]bool)
	var kinds []string
	for _, f := range result.Findings {
		if !seen[f.Kind] {
			seen[f.Kind] = true
			kinds = append(kinds, f.Kind)
		}
	}
	sort.Strings(kinds)

	rules := make([]Rule, 0, len(kinds))
	ruleIndex := make(map[string]int, len(kinds))
	for i, kind := range kinds {
		desc := kindDescriptions[kind]
		if desc == "" {
			desc = kind
		}
		rules = append(rules, Rule{
			ID:               kind,
			Name:             kind,
			ShortDescription: Description{Text: desc},
			FullDescription:  Description{Text: desc},
		})
		ruleIndex[kind] = i
	}

	return rules, ruleIndex
}

// generateResults 生成结果
func (w *SARIFWriter) generateResults(result *ScanResult, ruleIndex map[string]int) []Result {
	results := make([]Result, 0, len(result.Findings))

	for _, f := range result.Findings {
		region := Region{StartLine: f.Line}
		if f.Column > 0 {
			region.StartColumn = f.Column
		}

		results = append(results, Result{
			RuleID:    f.Kind,
			RuleIndex: ruleIndex[f.Kind],
			Level:     w.mapSeverityToSARIF(SeverityForKind(f.Kind)),
			Message:   Message{Text: messageFor(f)},
			Locations: []Location{
				{
					PhysicalLocation: PhysicalLocation{
						ArtifactLocation: ArtifactLocation{
							URI: f.File,
						},
						Region: region,
					},
				},
			},
		})
	}

	return results
}

// mapSeverityToSARIF 映射严重性到 SARIF 级别
func (w *SARIFWriter) mapSeverityToSARIF(severity string) string {
	switch severity {
	case "high":
		return "error"
	case "medium":
		return "warning"
	case "low":
		return "note"
	default:
		return "warning"
	}
}

// SARIF SARIF 报告结构
type SARIF struct {
	Version string `json:"version"`
	Schema  string `json:"$schema"`
	Runs    []Run  `json:"runs"`
}

// Run SARIF 运行
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool SARIF 工具
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver 工具驱动
type Driver struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	InformationURI string `json:"informationUri,omitempty"`
	Rules          []Rule `json:"rules,omitempty"`
}

// Rule SARIF 规则
type Rule struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	ShortDescription Description `json:"shortDescription"`
	FullDescription  Description `json:"fullDescription"`
	HelpURI          string      `json:"helpUri,omitempty"`
}

// Description 描述
type Description struct {
	Text string `json:"text"`
}

// Result SARIF 结果
type Result struct {
	RuleID    string     `json:"ruleId"`
	RuleIndex int        `json:"ruleIndex"`
	Level     string     `json:"level"`
	Message   Message    `json:"message"`
	Locations []Location `json:"locations,omitempty"`
}

// Message 消息
type Message struct {
	Text string `json:"text"`
}

// Location 位置
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation,omitempty"`
}

// PhysicalLocation 物理位置
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region,omitempty"`
}

// ArtifactLocation artifact 位置
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region 区域
type Region struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn,omitempty"`
	EndLine     int `json:"endLine,omitempty"`
	EndColumn   int `json:"endColumn,omitempty"`
}
