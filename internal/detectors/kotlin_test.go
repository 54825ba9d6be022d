package detectors

import (
	"strings"
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

func analyzeKotlin(t *testing.T, src string) []core.Finding {
	t.Helper()
	return NewKotlinDetector().AnalyzeFile("test.kt", []byte(src))
}

func TestKotlinNegativeGuardWithoutExit(t *testing.T) {
	src := `fun f(x: String?) {
    if (x == null) {
        println(1)
    }
    x!!.length
}
`
	findings := analyzeKotlin(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	f := findings[0]
	if f.Kind != core.KindForceUnwrap {
		t.Errorf("Kind = %q", f.Kind)
	}
	if f.Line != 5 {
		t.Errorf("Line = %d, want 5", f.Line)
	}
	if f.Message != "x!! after non-exiting null guard" {
		t.Errorf("Message = %q", f.Message)
	}
}

func TestKotlinNegativeGuardWithExit(t *testing.T) {
	src := `fun f(x: String?) {
    if (x == null) {
        return
    }
    x!!.length
}
`
	if findings := analyzeKotlin(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (guard body exits)", findings)
	}
}

func TestKotlinPositiveGuardExitDoesNotExempt(t *testing.T) {
	// != null 守卫体内退出证明的是非空分支，豁免不成立
	src := `fun g(y: String?) {
    if (y != null) {
        return
    }
    y!!.length
}
`
	findings := analyzeKotlin(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Message != "y!! used after '!= null' guard without exit" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestKotlinSafeCallGuard(t *testing.T) {
	src := `fun g(y: String?) {
    if (y?.isEmpty() == true) {
        log()
    }
    y!!.length
}
`
	findings := analyzeKotlin(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Message != "y!! used after ?. guard without exit" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestKotlinReassignmentSuppresses(t *testing.T) {
	src := `fun h(z: String?) {
    if (z == null) {
        println(1)
    }
    z = fresh()
    z!!.length
}
`
	if findings := analyzeKotlin(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (reassignment before force)", findings)
	}
}

func TestKotlinNoForceAccess(t *testing.T) {
	src := `fun f(x: String?) {
    if (x == null) {
        println(1)
    }
    println(x)
}
`
	if findings := analyzeKotlin(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (no force unwrap)", findings)
	}
}

func TestKotlinSmartCast(t *testing.T) {
	src := `fun f(obj: Any) {
    val s = obj as? String
    print(s!!)
}
`
	findings := analyzeKotlin(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Message != "s forced (!!) after as? smart cast" {
		t.Errorf("Message = %q", findings[0].Message)
	}
	if findings[0].Line != 3 {
		t.Errorf("Line = %d, want 3 (at the force access)", findings[0].Line)
	}
}

func TestKotlinElvisAssign(t *testing.T) {
	src := `fun f(input: String?) {
    val name = input ?: fallback()
    use(name!!)
}
`
	findings := analyzeKotlin(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Message != "name assigned via Elvis operator but later forced with !!" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestKotlinGuardInCommentIgnored(t *testing.T) {
	src := `fun f(x: String?) {
    // if (x == null) { println(1) }
    x!!.length
}
`
	if findings := analyzeKotlin(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (guard only in comment)", findings)
	}
}

func TestKotlinFilePropagated(t *testing.T) {
	src := "fun f(x: String?) {\n    if (x == null) { log() }\n    x!!.length\n}\n"
	findings := NewKotlinDetector().AnalyzeFile("dir/file.kt", []byte(src))
	if len(findings) != 1 || findings[0].File != "dir/file.kt" {
		t.Errorf("findings = %v, want File dir/file.kt", findings)
	}
}

func TestKotlinExtensions(t *testing.T) {
	d := NewKotlinDetector()
	for _, ext := range []string{".kt", ".kts"} {
		if !d.Extensions()[ext] {
			t.Errorf("missing extension %s", ext)
		}
	}
	if d.Language() != "kotlin" {
		t.Errorf("Language = %q", d.Language())
	}
	if !strings.Contains(d.Description(), "null") {
		t.Errorf("Description = %q", d.Description())
	}
}
