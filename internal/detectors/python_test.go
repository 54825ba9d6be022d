package detectors

import (
	"testing"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

func analyzePython(t *testing.T, src string) []core.Finding {
	t.Helper()
	return NewPythonDetector(nil).AnalyzeFile("test.py", []byte(src))
}

func TestPythonOpenWithoutClose(t *testing.T) {
	src := `f = open("data.txt")
data = f.read()
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	f := findings[0]
	if f.Kind != core.KindFileHandle {
		t.Errorf("Kind = %q", f.Kind)
	}
	if f.Line != 1 {
		t.Errorf("Line = %d, want 1", f.Line)
	}
	if f.Message != "File handle f opened without context manager or close()" {
		t.Errorf("Message = %q", f.Message)
	}
}

func TestPythonOpenThenClose(t *testing.T) {
	src := `f = open("data.txt")
data = f.read()
f.close()
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (closed)", findings)
	}
}

func TestPythonWithStatementSafe(t *testing.T) {
	src := `with open("data.txt") as f:
    data = f.read()
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (context manager)", findings)
	}
}

func TestPythonUnboundOpen(t *testing.T) {
	src := `print(open("data.txt").read())
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Message != "File handle file_handle opened without context manager or close()" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestPythonSocketLifecycle(t *testing.T) {
	src := `import socket

s = socket.socket()
s.connect(addr)
s.close()

leaked = socket.create_connection(addr)
leaked.send(data)
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	f := findings[0]
	if f.Kind != core.KindSocketHandle || f.Line != 7 {
		t.Errorf("finding = %+v, want socket_handle at line 7", f)
	}
	if f.Message != "Socket leaked opened without close()" {
		t.Errorf("Message = %q", f.Message)
	}
}

func TestPythonSocketShutdownReleases(t *testing.T) {
	src := `import socket

s = socket.socket()
s.shutdown(how)
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (shutdown releases)", findings)
	}
}

func TestPythonWrongKindMethodDoesNotRelease(t *testing.T) {
	// close 不在 Popen 的释放方法集内
	src := `import subprocess

p = subprocess.Popen(cmd)
p.close()
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Kind != core.KindPopenHandle {
		t.Errorf("Kind = %q", findings[0].Kind)
	}
	if findings[0].Message != "subprocess handle p never waited/terminated" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestPythonPopenWaitReleases(t *testing.T) {
	src := `import subprocess

p = subprocess.Popen(cmd)
p.wait()
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (waited)", findings)
	}
}

func TestPythonImportAlias(t *testing.T) {
	src := `from subprocess import Popen as P

p = P(cmd)
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Kind != core.KindPopenHandle {
		t.Errorf("Kind = %q", findings[0].Kind)
	}
}

func TestPythonModuleAlias(t *testing.T) {
	src := `import subprocess as sp

p = sp.Popen(cmd)
`
	findings := analyzePython(t, src)
	if len(findings) != 1 || findings[0].Kind != core.KindPopenHandle {
		t.Fatalf("got %v, want one popen_handle", findings)
	}
}

func TestPythonTempfile(t *testing.T) {
	src := `import tempfile

tmp = tempfile.NamedTemporaryFile()
`
	findings := analyzePython(t, src)
	if len(findings) != 1 || findings[0].Kind != core.KindFileHandle {
		t.Fatalf("got %v, want one file_handle", findings)
	}
}

func TestPythonPathOpen(t *testing.T) {
	src := `from pathlib import Path

fh = Path(name).open()
`
	findings := analyzePython(t, src)
	if len(findings) != 1 || findings[0].Kind != core.KindFileHandle {
		t.Fatalf("got %v, want one file_handle", findings)
	}
}

func TestPythonReturnTransfersOwnership(t *testing.T) {
	src := `def make():
    f = open("data.txt")
    return f
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (ownership returned)", findings)
	}
}

func TestPythonClosureReturnsOuterResource(t *testing.T) {
	src := `f = open("data.txt")

def provide():
    return f
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (closure returns outer handle)", findings)
	}
}

func TestPythonScopesAreIndependent(t *testing.T) {
	// 内层函数的 f 与外层的 f 是不同资源
	src := `f = open("a.txt")

def worker():
    f = open("b.txt")
    f.close()
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Line != 1 {
		t.Errorf("Line = %d, want 1 (outer handle leaked)", findings[0].Line)
	}
}

func TestPythonTupleUnpack(t *testing.T) {
	src := `import socket

a, b = socket.socketpair()
a.close()
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Message != "Socket b opened without close()" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestPythonAsyncioAwaitReleases(t *testing.T) {
	src := `import asyncio

async def main():
    t = asyncio.create_task(work())
    await t
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (awaited)", findings)
	}
}

func TestPythonAsyncioTaskLeaked(t *testing.T) {
	src := `import asyncio

async def main():
    t = asyncio.create_task(work())
    log(t)
`
	findings := analyzePython(t, src)
	if len(findings) != 1 {
		t.Fatalf("got %d findings, want 1: %v", len(findings), findings)
	}
	if findings[0].Kind != core.KindAsyncioTask {
		t.Errorf("Kind = %q", findings[0].Kind)
	}
	if findings[0].Message != "asyncio task t neither awaited nor cancelled" {
		t.Errorf("Message = %q", findings[0].Message)
	}
}

func TestPythonGatherReleasesAll(t *testing.T) {
	src := `import asyncio

async def main():
    t1 = asyncio.create_task(work())
    t2 = asyncio.create_task(work())
    await asyncio.gather(t1, t2)
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (gathered)", findings)
	}
}

func TestPythonWaitWithListReleases(t *testing.T) {
	src := `import asyncio

async def main():
    t1 = asyncio.create_task(work())
    t2 = asyncio.create_task(work())
    await asyncio.wait([t1, t2])
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (bulk wait over list)", findings)
	}
}

func TestPythonCancelReleases(t *testing.T) {
	src := `import asyncio

async def main():
    t = asyncio.create_task(work())
    t.cancel()
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (cancelled)", findings)
	}
}

func TestPythonFindingsSorted(t *testing.T) {
	src := `import socket

s = socket.socket()
f = open("data.txt")
`
	findings := analyzePython(t, src)
	if len(findings) != 2 {
		t.Fatalf("got %d findings, want 2: %v", len(findings), findings)
	}
	if findings[0].Line != 3 || findings[1].Line != 4 {
		t.Errorf("findings out of line order: %v", findings)
	}
}

func TestPythonSyntaxErrorSkipsFile(t *testing.T) {
	src := "def broken(:\n    f = open(\"x\")\n"
	if findings := analyzePython(t, src); findings != nil {
		t.Errorf("got %v, want nil for unparsable file", findings)
	}
}

func TestPythonUnknownCallIgnored(t *testing.T) {
	src := `conn = connect(host)
data = conn.fetch()
`
	if findings := analyzePython(t, src); len(findings) != 0 {
		t.Errorf("got %v, want none (unknown signature)", findings)
	}
}
