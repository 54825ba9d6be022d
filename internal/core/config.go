package core

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 扫描配置文件
// 命令行参数优先于配置文件中的同名设置
type Config struct {
	Workers  int      `yaml:"workers"`
	SkipDirs []string `yaml:"skip_dirs"` // 追加到各检测器内置的排除目录之外
	Format   string   `yaml:"format"`
	Output   string   `yaml:"output"`
}

// LoadConfig 从 YAML 文件加载扫描配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}
