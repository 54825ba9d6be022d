package detectors

import (
	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

// Detector 检测器接口
// 每次 AnalyzeFile 调用只依赖传入的文件内容，文件之间不共享可变状态
type Detector interface {
	// Name 返回检测器名称
	Name() string

	// Description 返回检测器描述
	Description() string

	// Language 返回目标语言标识
	Language() string

	// Extensions 返回该语言的文件扩展名集合（小写，含点）
	Extensions() map[string]bool

	// SkipDirs 返回遍历时跳过的目录名集合
	SkipDirs() map[string]bool

	// AnalyzeFile 分析单个文件，path 仅用于结果中的文件字段
	AnalyzeFile(path string, source []byte) []core.Finding
}

// BaseDetector 基础检测器，提供通用字段
type BaseDetector struct {
	name        string
	description string
	language    string
	extensions  map[string]bool
	skipDirs    map[string]bool
}

// NewBaseDetector 创建基础检测器
func NewBaseDetector(name, description, language string, extensions, skipDirs map[string]bool) *BaseDetector {
	return &BaseDetector{
		name:        name,
		description: description,
		language:    language,
		extensions:  extensions,
		skipDirs:    skipDirs,
	}
}

// Name 返回检测器名称
func (d *BaseDetector) Name() string {
	return d.name
}

// Description 返回检测器描述
func (d *BaseDetector) Description() string {
	return d.description
}

// Language 返回目标语言标识
func (d *BaseDetector) Language() string {
	return d.language
}

// Extensions 返回文件扩展名集合
func (d *BaseDetector) Extensions() map[string]bool {
	return d.extensions
}

// SkipDirs 返回排除目录集合
func (d *BaseDetector) SkipDirs() map[string]bool {
	return d.skipDirs
}
