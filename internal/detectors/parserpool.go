package detectors

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// pythonParserPool tree-sitter Parser 实例池
// Parser 非并发安全，每个 goroutine 从池中取独立实例，用完归还
var pythonParserPool = sync.Pool{
	New: func() interface{} {
		parser := sitter.NewParser()
		parser.SetLanguage(python.GetLanguage())
		return parser
	},
}

// acquirePythonParser 从池中取一个 Python 解析器
func acquirePythonParser() *sitter.Parser {
	return pythonParserPool.Get().(*sitter.Parser)
}

// releasePythonParser 重置并归还解析器
func releasePythonParser(parser *sitter.Parser) {
	parser.Reset()
	pythonParserPool.Put(parser)
}
