package core

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CollectFiles 收集待分析文件列表
// root 为单个文件时，扩展名匹配则返回它本身；为目录时递归遍历，
// 跳过 skipDirs 中的目录名，收集扩展名匹配的文件。结果按路径排序，保证输出确定性。
func CollectFiles(root string, exts map[string]bool, skipDirs map[string]bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		if exts[strings.ToLower(filepath.Ext(root))] {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// 单个目录项读取失败不终止遍历
			return nil
		}
		if info.IsDir() {
			if path != root && skipDirs[filepath.Base(path)] {
				return filepath.SkipDir
			}
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// DisplayPath 输出用路径：位于扫描根之下时取相对路径，否则原样返回
func DisplayPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
