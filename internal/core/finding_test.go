package core

import (
	"bytes"
	"strings"
	"testing"
)

func TestFindingFormat(t *testing.T) {
	tests := []struct {
		name string
		f    Finding
		want string
	}{
		{
			name: "full",
			f:    Finding{File: "a.kt", Line: 3, Column: 7, Kind: KindForceUnwrap, Message: "x!! after guard"},
			want: "a.kt:3:7\tforce_unwrap\tx!! after guard",
		},
		{
			name: "no column no message",
			f:    Finding{File: "b.java", Line: 12, Kind: KindStatementHandle},
			want: "b.java:12\tstatement_handle",
		},
	}
	for _, tt := range tests {
		if got := tt.f.Format(); got != tt.want {
			t.Errorf("%s: Format() = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestReporterDedupe(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	f := Finding{File: "a.py", Line: 5, Kind: KindFileHandle, Message: "File handle f opened without context manager or close()"}
	r.Emit(f)
	r.Emit(f)
	r.Emit(Finding{File: "a.py", Line: 6, Kind: KindFileHandle, Message: "File handle g opened without context manager or close()"})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("emitted %d lines, want 2: %q", len(lines), buf.String())
	}
	if got := len(r.Emitted()); got != 2 {
		t.Errorf("Emitted() has %d findings, want 2", got)
	}
}

func TestReporterOrderPreserved(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(&buf)

	r.EmitAll([]Finding{
		{File: "b.rs", Line: 9, Kind: KindForceUnwrap, Message: "v unwrap/expect after partial guard"},
		{File: "a.rs", Line: 2, Kind: KindForceUnwrap, Message: "w unwrap/expect after partial guard"},
	})

	out := buf.String()
	if strings.Index(out, "b.rs:9") > strings.Index(out, "a.rs:2") {
		t.Errorf("output reordered findings: %q", out)
	}
}
