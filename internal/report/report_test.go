package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shaneholloman/ultimate-bug-scanner/internal/core"
)

func sampleResult() *ScanResult {
	return &ScanResult{
		Findings: []core.Finding{
			{File: "a.kt", Line: 5, Column: 5, Kind: core.KindForceUnwrap, Message: "x!! after non-exiting null guard"},
			{File: "b.py", Line: 3, Kind: core.KindFileHandle, Message: "File handle f opened without context manager or close()"},
			{File: "b.py", Line: 9, Kind: core.KindSocketHandle, Message: "Socket s opened without close()"},
		},
		Language:     "python",
		Root:         "/proj",
		Detector:     "Test Detector",
		Duration:     1500 * time.Millisecond,
		FilesScanned: 4,
	}
}

func TestSeverityForKind(t *testing.T) {
	tests := []struct {
		kind, want string
	}{
		{core.KindFileHandle, "high"},
		{core.KindSocketHandle, "high"},
		{core.KindPopenHandle, "high"},
		{core.KindAsyncioTask, "high"},
		{core.KindStatementHandle, "high"},
		{core.KindResultSetHandle, "high"},
		{core.KindForceUnwrap, "medium"},
		{core.KindGuardNoExit, "medium"},
	}
	for _, tt := range tests {
		if got := SeverityForKind(tt.kind); got != tt.want {
			t.Errorf("SeverityForKind(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"json", "JSON", "text", "sarif"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat(xml) should fail")
	}
}

func TestJSONWriterSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := NewJSONWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatal(err)
	}

	var rep JSONReport
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if rep.Tool.Name != "ultimate-bug-scanner" {
		t.Errorf("Tool.Name = %q", rep.Tool.Name)
	}
	if rep.Summary.Total != 3 {
		t.Errorf("Summary.Total = %d, want 3", rep.Summary.Total)
	}
	if rep.Summary.BySeverity["high"] != 2 || rep.Summary.BySeverity["medium"] != 1 {
		t.Errorf("BySeverity = %v", rep.Summary.BySeverity)
	}
	if rep.Summary.ByKind[core.KindFileHandle] != 1 {
		t.Errorf("ByKind = %v", rep.Summary.ByKind)
	}
	// high 排在 medium 之前
	if len(rep.Findings) != 3 || rep.Findings[0].Severity != "high" || rep.Findings[2].Severity != "medium" {
		t.Errorf("findings not sorted by severity: %v", rep.Findings)
	}
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewSARIFWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatal(err)
	}

	var doc SARIF
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid SARIF output: %v", err)
	}
	if doc.Version != "2.1.0" {
		t.Errorf("Version = %q", doc.Version)
	}
	if len(doc.Runs) != 1 {
		t.Fatalf("got %d runs", len(doc.Runs))
	}
	run := doc.Runs[0]
	if len(run.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(run.Results))
	}
	if len(run.Tool.Driver.Rules) != 3 {
		t.Errorf("got %d rules, want 3 distinct kinds", len(run.Tool.Driver.Rules))
	}
	for _, res := range run.Results {
		switch res.RuleID {
		case core.KindForceUnwrap:
			if res.Level != "warning" {
				t.Errorf("force_unwrap level = %q, want warning", res.Level)
			}
		case core.KindFileHandle, core.KindSocketHandle:
			if res.Level != "error" {
				t.Errorf("%s level = %q, want error", res.RuleID, res.Level)
			}
		default:
			t.Errorf("unexpected ruleId %q", res.RuleID)
		}
		if res.RuleIndex < 0 || res.RuleIndex >= len(run.Tool.Driver.Rules) {
			t.Errorf("ruleIndex %d out of range", res.RuleIndex)
		} else if run.Tool.Driver.Rules[res.RuleIndex].ID != res.RuleID {
			t.Errorf("ruleIndex %d does not point at %q", res.RuleIndex, res.RuleID)
		}
	}
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewTextWriter(&buf).Write(sampleResult()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Total issues: 3") {
		t.Errorf("missing totals in output: %q", out)
	}
	if !strings.Contains(out, "HIGH Issues (2)") || !strings.Contains(out, "MEDIUM Issues (1)") {
		t.Errorf("missing severity sections: %q", out)
	}
	if strings.Index(out, "HIGH Issues") > strings.Index(out, "MEDIUM Issues") {
		t.Errorf("severity sections out of order: %q", out)
	}
}

func TestTextWriterNoFindings(t *testing.T) {
	var buf bytes.Buffer
	result := &ScanResult{Language: "java", FilesScanned: 2}
	if err := NewTextWriter(&buf).Write(result); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No issues found") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestManagerCreateWriter(t *testing.T) {
	m := NewManager()
	var buf bytes.Buffer
	for _, f := range SupportedFormats() {
		if _, err := m.CreateWriter(f, &buf); err != nil {
			t.Errorf("CreateWriter(%s) failed: %v", f, err)
		}
	}
	if _, err := m.CreateWriter(Format("csv"), &buf); err == nil {
		t.Error("CreateWriter(csv) should fail")
	}
}
