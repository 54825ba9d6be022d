package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

// Format 报告格式类型
type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatSARIF Format = "sarif"
)

// ScanResult 一次扫描的完整结果
type ScanResult struct {
	Findings     []core.Finding
	Language     string
	Root         string
	Detector     string
	Duration     time.Duration
	FilesScanned int
}

// SeverityForKind 按结果种类映射严重级别
// 资源泄漏类判为 high，空值强制访问类判为 medium
func SeverityForKind(kind string) string {
	switch kind {
	case core.KindForceUnwrap, core.KindGuardNoExit:
		return "medium"
	default:
		return "high"
	}
}

// messageFor 结果展示消息，缺省时退回种类名
func messageFor(f core.Finding) string {
	if f.Message != "" {
		return f.Message
	}
	return f.Kind
}

// Writer 报告写入器接口
type Writer interface {
	Write(result *ScanResult) error
}

// Manager 报告管理器
type Manager struct {
	format Format
	path   string
	pretty bool
}

// ManagerOption 管理器选项
type ManagerOption func(*Manager)

// WithFormat 设置报告格式
func WithFormat(format Format) ManagerOption {
	return func(m *Manager) {
		m.format = format
	}
}

// WithOutputPath 设置输出文件路径，为空时写到标准输出
func WithOutputPath(path string) ManagerOption {
	return func(m *Manager) {
		m.path = path
	}
}

// WithPretty 对 JSON 类格式启用缩进输出
func WithPretty() ManagerOption {
	return func(m *Manager) {
		m.pretty = true
	}
}

// NewManager 创建新的报告管理器
func NewManager(options ...ManagerOption) *Manager {
	m := &Manager{
		format: FormatText,
	}

	for _, opt := range options {
		opt(m)
	}

	return m
}

// CreateWriter 创建报告写入器
func (m *Manager) CreateWriter(format Format, writer io.Writer) (Writer, error) {
	switch format {
	case FormatJSON:
		if m.pretty {
			return NewJSONWriter(writer, WithPrettyJSON()), nil
		}
		return NewJSONWriter(writer), nil
	case FormatText:
		return NewTextWriter(writer), nil
	case FormatSARIF:
		if m.pretty {
			return NewSARIFWriter(writer, WithPrettySARIF()), nil
		}
		return NewSARIFWriter(writer), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Generate 生成报告，返回写入的文件路径（写标准输出时为空）
func (m *Manager) Generate(result *ScanResult) (string, error) {
	var out io.Writer = os.Stdout
	if m.path != "" {
		file, err := os.Create(m.path)
		if err != nil {
			return "", fmt.Errorf("failed to create report file: %w", err)
		}
		defer file.Close()
		out = file
	}

	writer, err := m.CreateWriter(m.format, out)
	if err != nil {
		return "", err
	}
	if err := writer.Write(result); err != nil {
		return "", fmt.Errorf("failed to write %s report: %w", m.format, err)
	}
	return m.path, nil
}

// ParseFormat 解析格式字符串
func ParseFormat(formatStr string) (Format, error) {
	switch strings.ToLower(formatStr) {
	case "json":
		return FormatJSON, nil
	case "text":
		return FormatText, nil
	case "sarif":
		return FormatSARIF, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", formatStr)
	}
}

// SupportedFormats 获取支持的格式列表
func SupportedFormats() []Format {
	return []Format{FormatJSON, FormatText, FormatSARIF}
}
