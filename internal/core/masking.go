package core

// MaskOptions 掩码扫描器的语言参数
// 不同语言的注释/字面量语法由这里的开关组合描述
type MaskOptions struct {
	LineComment  bool // 是否识别 // 行注释
	BlockComment bool // 是否识别 /* */ 块注释
	DoubleQuote  bool // 是否识别 " 字符串
	SingleQuote  bool // 是否识别 ' 字符/字符串字面量
	TripleQuote  bool // 是否识别 """ 文本块（内部不处理转义）
	// BoundedSingleQuote 限定 ' 字面量必须在同一行短窗口内闭合
	// 用于区分 Rust 的字符字面量 'x' 与生命周期标注 'a
	BoundedSingleQuote bool
}

// MaskJava Java 源码掩码参数
func MaskJava() MaskOptions {
	return MaskOptions{LineComment: true, BlockComment: true, DoubleQuote: true, SingleQuote: true, TripleQuote: true}
}

// MaskKotlin Kotlin 源码掩码参数
func MaskKotlin() MaskOptions {
	return MaskOptions{LineComment: true, BlockComment: true, DoubleQuote: true, SingleQuote: true, TripleQuote: true}
}

// MaskSwift Swift 源码掩码参数（Swift 没有独立的字符字面量）
func MaskSwift() MaskOptions {
	return MaskOptions{LineComment: true, BlockComment: true, DoubleQuote: true, TripleQuote: true}
}

// MaskRust Rust 源码掩码参数
func MaskRust() MaskOptions {
	return MaskOptions{LineComment: true, BlockComment: true, DoubleQuote: true, SingleQuote: true, BoundedSingleQuote: true}
}

// charLiteralWindow 有界单引号模式下，字面量必须在这么多字符内闭合
// 覆盖 '\u{10FFFF}' 这样的最长合法形式
const charLiteralWindow = 12

// maskChar 换行保留为换行，其余替换为空格，保证偏移与行号不变
func maskChar(ch byte) byte {
	if ch == '\n' {
		return '\n'
	}
	return ' '
}

// closesWithin 判断从 idx（指向开头的 '）起，字面量是否在窗口内同行闭合
func closesWithin(text string, idx int) bool {
	end := idx + charLiteralWindow
	if end > len(text) {
		end = len(text)
	}
	escaped := false
	for i := idx + 1; i < end; i++ {
		ch := text[i]
		if ch == '\n' {
			return false
		}
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '\'' {
			// 'x' 最短也要包含一个内容字符
			return i > idx+1
		}
	}
	return false
}

// Mask 对源码做注释/字符串掩码：输出与输入等长，换行位置不变，
// 注释与字面量内容全部替换为空格，引号与 """ 定界符保留。
// 在掩码文本上计算出的任何偏移都可以直接回到原文求行列号。
func Mask(text string, opt MaskOptions) string {
	result := make([]byte, 0, len(text))
	n := len(text)
	i := 0

	inLine := false
	inBlock := false
	inString := false
	inTextBlock := false
	var stringQuote byte
	escaped := false

	for i < n {
		ch := text[i]
		var nxt, nxt2 byte
		if i+1 < n {
			nxt = text[i+1]
		}
		if i+2 < n {
			nxt2 = text[i+2]
		}

		switch {
		case inLine:
			result = append(result, maskChar(ch))
			if ch == '\n' {
				inLine = false
			}
			i++

		case inBlock:
			if ch == '*' && nxt == '/' {
				result = append(result, ' ', ' ')
				inBlock = false
				i += 2
			} else {
				result = append(result, maskChar(ch))
				i++
			}

		case inTextBlock:
			if ch == '"' && nxt == '"' && nxt2 == '"' {
				result = append(result, '"', '"', '"')
				inTextBlock = false
				i += 3
			} else {
				result = append(result, maskChar(ch))
				i++
			}

		case inString:
			if escaped {
				result = append(result, maskChar(ch))
				escaped = false
			} else if ch == '\\' {
				result = append(result, ' ')
				escaped = true
			} else if ch == stringQuote {
				result = append(result, ch)
				inString = false
			} else {
				result = append(result, maskChar(ch))
			}
			i++

		case opt.TripleQuote && ch == '"' && nxt == '"' && nxt2 == '"':
			inTextBlock = true
			result = append(result, '"', '"', '"')
			i += 3

		case opt.DoubleQuote && ch == '"':
			inString = true
			stringQuote = ch
			result = append(result, ch)
			i++

		case opt.SingleQuote && ch == '\'':
			if opt.BoundedSingleQuote && !closesWithin(text, i) {
				// 生命周期标注之类的裸单引号，按普通代码处理
				result = append(result, ch)
				i++
				break
			}
			inString = true
			stringQuote = ch
			result = append(result, ch)
			i++

		case opt.LineComment && ch == '/' && nxt == '/':
			inLine = true
			result = append(result, ' ', ' ')
			i += 2

		case opt.BlockComment && ch == '/' && nxt == '*':
			inBlock = true
			result = append(result, ' ', ' ')
			i += 2

		default:
			result = append(result, ch)
			i++
		}
	}

	return string(result)
}
