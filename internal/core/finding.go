package core

import (
	"fmt"
	"io"
)

// 资源类别标签
const (
	KindFileHandle      = "file_handle"
	KindSocketHandle    = "socket_handle"
	KindPopenHandle     = "popen_handle"
	KindAsyncioTask     = "asyncio_task"
	KindStatementHandle = "statement_handle"
	KindResultSetHandle = "resultset_handle"
)

// 空值收窄类别标签
const (
	KindForceUnwrap = "force_unwrap"
	KindGuardNoExit = "guard_noexit"
)

// Finding 一条检测结果，输出的最小单位
// Column 为 0 表示该检测器不产生列号
type Finding struct {
	File    string
	Line    int
	Column  int
	Kind    string
	Message string
}

// Format 行式输出格式：path:line[:col]\tkind[\tmessage]
func (f Finding) Format() string {
	s := fmt.Sprintf("%s:%d", f.File, f.Line)
	if f.Column > 0 {
		s = fmt.Sprintf("%s:%d", s, f.Column)
	}
	s += "\t" + f.Kind
	if f.Message != "" {
		s += "\t" + f.Message
	}
	return s
}

type dedupKey struct {
	file    string
	line    int
	column  int
	message string
}

// Reporter 按发现顺序逐行输出检测结果
// 同一文件内 (line, column, message) 完全相同的结果只输出一次
type Reporter struct {
	w       io.Writer
	seen    map[dedupKey]bool
	emitted []Finding
}

// NewReporter 创建 Reporter
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{
		w:    w,
		seen: make(map[dedupKey]bool),
	}
}

// Emit 输出一条结果，重复结果被抑制
func (r *Reporter) Emit(f Finding) {
	key := dedupKey{file: f.File, line: f.Line, column: f.Column, message: f.Message}
	if r.seen[key] {
		return
	}
	r.seen[key] = true
	r.emitted = append(r.emitted, f)
	fmt.Fprintln(r.w, f.Format())
}

// EmitAll 按序输出一组结果
func (r *Reporter) EmitAll(findings []Finding) {
	for _, f := range findings {
		r.Emit(f)
	}
}

// Emitted 返回实际输出过的结果（去重后），供报告生成使用
func (r *Reporter) Emitted() []Finding {
	return r.emitted
}
