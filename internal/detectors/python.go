package detectors

import (
	"context"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

// sigKey 调用签名：(所属模块或对象, 属性名)，owner 为空表示未解析到归属
type sigKey struct {
	owner string
	attr  string
}

// pythonTargetSigs 已知的资源构造调用
var pythonTargetSigs = map[sigKey]string{
	{"", "open"}:             core.KindFileHandle,
	{"builtins", "open"}:     core.KindFileHandle,
	{"io", "open"}:           core.KindFileHandle,
	{"pathlib", "open"}:      core.KindFileHandle,
	{"pathlib.Path", "open"}: core.KindFileHandle,

	{"tempfile", "NamedTemporaryFile"}:   core.KindFileHandle,
	{"tempfile", "TemporaryFile"}:        core.KindFileHandle,
	{"tempfile", "SpooledTemporaryFile"}: core.KindFileHandle,

	{"socket", "socket"}:            core.KindSocketHandle,
	{"socket", "create_connection"}: core.KindSocketHandle,
	{"socket", "socketpair"}:        core.KindSocketHandle,

	{"subprocess", "Popen"}: core.KindPopenHandle,
	{"asyncio", "create_task"}: core.KindAsyncioTask,
}

// pythonReleaseMethods 各资源类别识别的释放方法
var pythonReleaseMethods = map[string]map[string]bool{
	core.KindFileHandle:   {"close": true},
	core.KindSocketHandle: {"close": true, "shutdown": true},
	core.KindPopenHandle:  {"wait": true, "communicate": true, "terminate": true, "kill": true},
	core.KindAsyncioTask:  {"cancel": true},
}

// pythonTaskReleaseSigs 批量等待原语：名字出现在实参中即视为释放
var pythonTaskReleaseSigs = map[sigKey]bool{
	{"asyncio", "gather"}:   true,
	{"asyncio", "wait"}:     true,
	{"asyncio", "wait_for"}: true,
}

// pythonMessages 各资源类别的报告模板
var pythonMessages = map[string]string{
	core.KindFileHandle:   "File handle %s opened without context manager or close()",
	core.KindSocketHandle: "Socket %s opened without close()",
	core.KindPopenHandle:  "subprocess handle %s never waited/terminated",
	core.KindAsyncioTask:  "asyncio task %s neither awaited nor cancelled",
}

// resourceRecord 一次资源获取
// released 单调置位，报告阶段读取后整体丢弃
type resourceRecord struct {
	name     string // 为空表示未绑定到任何名字
	kind     string
	line     int
	released bool
}

// aliasEntry 导入别名：本地名 -> (模块, 原符号)
type aliasEntry struct {
	module string
	object string
}

// pyScope 词法作用域：别名表 + 名字到记录的有序映射
type pyScope struct {
	aliases map[string]aliasEntry
	byName  map[string][]*resourceRecord
}

func newPyScope() *pyScope {
	return &pyScope{
		aliases: make(map[string]aliasEntry),
		byName:  make(map[string][]*resourceRecord),
	}
}

// span 以字节区间标识一个语法树节点
type span struct {
	start uint32
	end   uint32
}

func nodeSpan(n *sitter.Node) span {
	return span{start: n.StartByte(), end: n.EndByte()}
}

// pythonAnalyzer 单个文件的一次分析过程
type pythonAnalyzer struct {
	src           []byte
	records       []*resourceRecord
	safeCalls     map[span]bool // with 语句管理的资源构造调用
	assignedCalls map[span]bool // 已作为赋值右值归类的调用
	scopes        []*pyScope
}

func newPythonAnalyzer(src []byte) *pythonAnalyzer {
	return &pythonAnalyzer{
		src:           src,
		safeCalls:     make(map[span]bool),
		assignedCalls: make(map[span]bool),
		scopes:        []*pyScope{newPyScope()},
	}
}

func (a *pythonAnalyzer) currentScope() *pyScope {
	return a.scopes[len(a.scopes)-1]
}

func (a *pythonAnalyzer) lookupAlias(name string) (aliasEntry, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if entry, ok := a.scopes[i].aliases[name]; ok {
			return entry, true
		}
	}
	return aliasEntry{}, false
}

func (a *pythonAnalyzer) content(n *sitter.Node) string {
	return n.Content(a.src)
}

func (a *pythonAnalyzer) line(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// walk 递归遍历语法树
func (a *pythonAnalyzer) walk(n *sitter.Node) {
	switch n.Type() {
	case "function_definition":
		// 函数/闭包进入时压栈，退出时弹栈；子作用域不继承父作用域的声明
		a.scopes = append(a.scopes, newPyScope())
		a.walkChildren(n)
		a.scopes = a.scopes[:len(a.scopes)-1]
		return

	case "import_statement":
		a.handleImport(n)
		return

	case "import_from_statement":
		a.handleImportFrom(n)
		return

	case "return_statement":
		if v := firstNamedChild(n); v != nil {
			a.handleOwnershipTransfer(v)
		}

	case "yield":
		if v := firstNamedChild(n); v != nil {
			a.handleOwnershipTransfer(v)
		}

	case "with_statement":
		a.markContextSafe(n)

	case "assignment":
		a.handleAssignment(n)

	case "call":
		a.handleCall(n)

	case "await":
		if v := firstNamedChild(n); v != nil && v.Type() == "identifier" {
			a.markReleased(a.content(v), core.KindAsyncioTask, false)
		}
	}

	a.walkChildren(n)
}

func (a *pythonAnalyzer) walkChildren(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a.walk(n.NamedChild(i))
	}
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	if n.NamedChildCount() == 0 {
		return nil
	}
	return n.NamedChild(0)
}

// handleImport 处理 import a / import a as b
func (a *pythonAnalyzer) handleImport(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			name := a.content(child)
			a.currentScope().aliases[name] = aliasEntry{module: name}
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			a.currentScope().aliases[a.content(aliasNode)] = aliasEntry{module: a.content(nameNode)}
		}
	}
}

// handleImportFrom 处理 from m import a / from m import a as b
func (a *pythonAnalyzer) handleImportFrom(n *sitter.Node) {
	moduleNode := n.ChildByFieldName("module_name")
	if moduleNode == nil {
		return
	}
	module := a.content(moduleNode)

	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) != "name" {
			continue
		}
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			name := a.content(child)
			a.currentScope().aliases[name] = aliasEntry{module: module, object: name}
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			a.currentScope().aliases[a.content(aliasNode)] = aliasEntry{module: module, object: a.content(nameNode)}
		}
	}
}

// handleOwnershipTransfer return/yield 一个名字即把释放责任转交给调用方
// 这里检索整个作用域栈（由内向外）：闭包可能捕获并返回外层作用域的资源。
// 类别不限，命中第一条未释放记录。
func (a *pythonAnalyzer) handleOwnershipTransfer(value *sitter.Node) {
	for _, name := range a.collectNames(value) {
		a.markReleased(name, "", true)
	}
}

// markContextSafe with 语句的受管表达式中出现的资源构造调用标记为安全
// 必须发生在子节点遍历之前，否则调用会先被当作未绑定获取
func (a *pythonAnalyzer) markContextSafe(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "with_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			item := clause.NamedChild(j)
			if item.Type() != "with_item" {
				continue
			}
			value := item.ChildByFieldName("value")
			if value == nil {
				continue
			}
			if value.Type() == "as_pattern" {
				value = firstNamedChild(value)
				if value == nil {
					continue
				}
			}
			a.markSafeCalls(value)
		}
	}
}

// markSafeCalls 递归标记表达式内的资源构造调用（含实参与关键字实参）
func (a *pythonAnalyzer) markSafeCalls(expr *sitter.Node) {
	switch expr.Type() {
	case "call":
		if sig, ok := a.callSignature(expr); ok {
			if _, known := pythonTargetSigs[sig]; known {
				a.safeCalls[nodeSpan(expr)] = true
			}
		}
		if args := expr.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				arg := args.NamedChild(i)
				if arg.Type() == "keyword_argument" {
					if v := arg.ChildByFieldName("value"); v != nil {
						a.markSafeCalls(v)
					}
					continue
				}
				a.markSafeCalls(arg)
			}
		}
	case "attribute":
		if obj := expr.ChildByFieldName("object"); obj != nil {
			a.markSafeCalls(obj)
		}
	}
}

// handleAssignment 右值为已知资源构造调用时，为每个目标名建一条记录
// 没有任何可提取的目标名时建一条无名记录
func (a *pythonAnalyzer) handleAssignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left == nil || right == nil || right.Type() != "call" {
		return
	}
	sig, ok := a.callSignature(right)
	if !ok {
		return
	}
	kind, known := pythonTargetSigs[sig]
	if !known {
		return
	}
	a.assignedCalls[nodeSpan(right)] = true
	names := a.collectNames(left)
	if len(names) == 0 {
		a.addRecord("", kind, a.line(right))
		return
	}
	for _, name := range names {
		a.addRecord(name, kind, a.line(right))
	}
}

// collectNames 从赋值目标/返回值表达式里收集名字
// 支持元组/列表解包与点分属性目标
func (a *pythonAnalyzer) collectNames(n *sitter.Node) []string {
	switch n.Type() {
	case "identifier":
		return []string{a.content(n)}
	case "tuple", "list", "pattern_list", "tuple_pattern", "list_pattern", "expression_list":
		var names []string
		for i := 0; i < int(n.NamedChildCount()); i++ {
			names = append(names, a.collectNames(n.NamedChild(i))...)
		}
		return names
	case "attribute":
		if dotted, ok := a.dottedName(n); ok {
			return []string{dotted}
		}
	}
	return nil
}

// handleCall 未绑定的资源构造调用建无名记录，然后识别释放事件
func (a *pythonAnalyzer) handleCall(n *sitter.Node) {
	if !a.assignedCalls[nodeSpan(n)] {
		if sig, ok := a.callSignature(n); ok {
			if kind, known := pythonTargetSigs[sig]; known && !a.safeCalls[nodeSpan(n)] {
				a.addRecord("", kind, a.line(n))
			}
		}
	}
	a.handleRelease(n)
}

// handleRelease 释放事件：
// 接收者名字的方法调用命中其记录类别的释放方法集；
// 批量等待原语的实参（含嵌套在序列字面量里的）按任务类别释放。
// 显式释放只检索最内层作用域。
func (a *pythonAnalyzer) handleRelease(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn != nil && fn.Type() == "attribute" {
		obj := fn.ChildByFieldName("object")
		attrNode := fn.ChildByFieldName("attribute")
		if obj != nil && attrNode != nil {
			if name, ok := a.dottedName(obj); ok {
				a.markReleasedByMethod(name, a.content(attrNode))
			}
		}
	}

	sig, ok := a.callSignature(n)
	if !ok || !pythonTaskReleaseSigs[sig] {
		return
	}
	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				if v := arg.ChildByFieldName("value"); v != nil {
					a.releaseTaskArgs(v)
				}
				continue
			}
			a.releaseTaskArgs(arg)
		}
	}
}

// releaseTaskArgs 直接名字或序列字面量内嵌套的名字
func (a *pythonAnalyzer) releaseTaskArgs(n *sitter.Node) {
	switch n.Type() {
	case "identifier":
		a.markReleased(a.content(n), core.KindAsyncioTask, false)
	case "tuple", "list", "set", "list_splat":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			a.releaseTaskArgs(n.NamedChild(i))
		}
	}
}

// markReleasedByMethod 按方法名释放：最内层作用域中名字命中且方法属于
// 该记录类别的释放方法集时，置位第一条未释放记录
func (a *pythonAnalyzer) markReleasedByMethod(name, method string) {
	entries := a.currentScope().byName[name]
	for _, rec := range entries {
		if rec.released {
			continue
		}
		if pythonReleaseMethods[rec.kind][method] {
			rec.released = true
			return
		}
	}
}

// markReleased 释放名字对应的第一条未释放记录
// kind 为空表示类别不限；allScopes 为 true 时由内向外检索整个作用域栈
func (a *pythonAnalyzer) markReleased(name, kind string, allScopes bool) {
	if name == "" {
		return
	}
	last := len(a.scopes) - 1
	lowest := last
	if allScopes {
		lowest = 0
	}
	for i := last; i >= lowest; i-- {
		for _, rec := range a.scopes[i].byName[name] {
			if !rec.released && (kind == "" || rec.kind == kind) {
				rec.released = true
				return
			}
		}
	}
}

func (a *pythonAnalyzer) addRecord(name, kind string, line int) {
	rec := &resourceRecord{name: name, kind: kind, line: line}
	a.records = append(a.records, rec)
	if name != "" {
		scope := a.currentScope()
		scope.byName[name] = append(scope.byName[name], rec)
	}
}

// callSignature 解析调用表达式的规范签名
// 追别名表，接收者本身是调用时递归解析（如构造器返回的对象再被调用）
func (a *pythonAnalyzer) callSignature(call *sitter.Node) (sigKey, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return sigKey{}, false
	}

	switch fn.Type() {
	case "identifier":
		id := a.content(fn)
		if entry, ok := a.lookupAlias(id); ok {
			if entry.object != "" {
				return sigKey{owner: entry.module, attr: entry.object}, true
			}
			return sigKey{owner: entry.module, attr: id}, true
		}
		return sigKey{owner: "", attr: id}, true

	case "attribute":
		base := fn.ChildByFieldName("object")
		attrNode := fn.ChildByFieldName("attribute")
		if base == nil || attrNode == nil {
			return sigKey{}, false
		}
		attr := a.content(attrNode)

		switch base.Type() {
		case "identifier":
			baseName := a.content(base)
			owner := ""
			if entry, ok := a.lookupAlias(baseName); ok {
				owner = entry.module
				if entry.object != "" && owner == "" {
					owner = entry.object
				}
			}
			// 既不是别名也不是已知模块名时按裸名回退，不再继续解析
			if owner == "" {
				owner = baseName
			}
			return sigKey{owner: owner, attr: attr}, true

		case "attribute":
			if dotted, ok := a.dottedName(base); ok {
				return sigKey{owner: dotted, attr: attr}, true
			}

		case "call":
			inner, ok := a.callSignature(base)
			if !ok {
				return sigKey{}, false
			}
			owner := inner.owner
			if inner.attr != "" {
				if owner != "" {
					owner = owner + "." + inner.attr
				} else {
					owner = inner.attr
				}
			}
			return sigKey{owner: owner, attr: attr}, true
		}
	}
	return sigKey{}, false
}

// dottedName 把 identifier / 嵌套 attribute 还原为点分名字
func (a *pythonAnalyzer) dottedName(n *sitter.Node) (string, bool) {
	switch n.Type() {
	case "identifier":
		return a.content(n), true
	case "attribute":
		obj := n.ChildByFieldName("object")
		attrNode := n.ChildByFieldName("attribute")
		if obj == nil || attrNode == nil {
			return "", false
		}
		base, ok := a.dottedName(obj)
		if !ok {
			return "", false
		}
		return base + "." + a.content(attrNode), true
	}
	return "", false
}

// report 未释放记录按 (行号, 类别, 名字) 排序输出
func (a *pythonAnalyzer) report(path string) []core.Finding {
	records := make([]*resourceRecord, len(a.records))
	copy(records, a.records)
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].line != records[j].line {
			return records[i].line < records[j].line
		}
		if records[i].kind != records[j].kind {
			return records[i].kind < records[j].kind
		}
		return records[i].name < records[j].name
	})

	var findings []core.Finding
	for _, rec := range records {
		if rec.released {
			continue
		}
		subject := rec.name
		if subject == "" {
			subject = rec.kind
		}
		findings = append(findings, core.Finding{
			File:    path,
			Line:    rec.line,
			Kind:    rec.kind,
			Message: fmt.Sprintf(pythonMessages[rec.kind], subject),
		})
	}
	return findings
}

// PythonDetector Python 资源生命周期检测器
// 基于完整语法树做作用域与别名感知的遍历
type PythonDetector struct {
	*BaseDetector
	logger *zap.Logger
}

// NewPythonDetector 创建 Python 检测器
func NewPythonDetector(logger *zap.Logger) *PythonDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PythonDetector{
		BaseDetector: NewBaseDetector(
			"Python Resource Lifecycle Detector",
			"Scope/alias aware detection of unreleased files, sockets, subprocesses and asyncio tasks",
			"python",
			map[string]bool{".py": true},
			map[string]bool{
				".git": true, "__pycache__": true, ".mypy_cache": true, ".pytest_cache": true,
				".ruff_cache": true, "node_modules": true, "dist": true, "build": true,
				".venv": true, "venv": true, "env": true, "envs": true,
				"site-packages": true, "target": true,
			},
		),
		logger: logger,
	}
}

// AnalyzeFile 分析单个 Python 文件
func (d *PythonDetector) AnalyzeFile(path string, source []byte) []core.Finding {
	parser := acquirePythonParser()
	defer releasePythonParser(parser)

	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		d.logger.Warn("failed to parse file", zap.String("file", path), zap.Error(err))
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		d.logger.Warn("syntax error, skipping file", zap.String("file", path))
		return nil
	}

	analyzer := newPythonAnalyzer(source)
	analyzer.walk(root)
	return analyzer.report(path)
}
