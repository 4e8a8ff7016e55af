package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/docingest/internal/model"
)

// createTestReport creates an update report with sample data for testing.
func createTestReport() *model.IngestReport {
	kb := model.KnowledgeBase{
		ID:        "0b7d4c1e-1111-4a5b-9c3d-000000000001",
		Name:      "Example Docs",
		SourceURL: "https://docs.example.com/",
		Mode:      model.ModeAuto,
	}
	report := model.NewIngestReport(kb, true)
	report.Discovery = &model.DiscoveryResult{}
	report.Crawl = &model.CrawlResult{
		JobID:        "job-1",
		Status:       model.JobCompleted,
		PagesFetched: 5,
		PagesSkipped: 1,
		Duration:     1500 * time.Millisecond,
		Errors: []model.CrawlError{
			{URL: "https://docs.example.com/gone", Reason: "unexpected status 404", Kind: model.ErrorKindNetwork},
		},
		PerPage: []model.PageOutcome{
			{URL: "https://docs.example.com/", StablePath: "index", AdapterName: "docusaurus"},
			{URL: "https://docs.example.com/a", StablePath: "a", AdapterName: "docusaurus"},
			{URL: "https://docs.example.com/b", StablePath: "b", AdapterName: "generic", NotModified: true},
		},
	}
	report.Diff = &model.DiffResult{
		KBID:      kb.ID,
		Added:     []string{"https://docs.example.com/new"},
		Changed:   []string{"https://docs.example.com/a"},
		Unchanged: []string{"https://docs.example.com/", "https://docs.example.com/b", "https://docs.example.com/c"},
		Removed:   []string{"https://docs.example.com/gone"},
	}
	report.Steps = []string{"discover", "snapshot", "crawl", "diff"}
	report.FinishedAt = report.StartedAt.Add(2 * time.Second)
	return report
}

func createTestJobs() []model.CrawlJob {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job := model.NewCrawlJob("job-1", "kb-1", "https://docs.example.com/", start)
	_ = job.Transition(model.JobRunning, start)
	_ = job.Transition(model.JobCompleted, start.Add(3*time.Second))
	job.PagesFetched = 12
	return []model.CrawlJob{*job}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"DOCINGEST UPDATE",
			"Example Docs",
			"https://docs.example.com/",
			"no index, crawled",
			"Status:         Completed",
			"Pages fetched: 5",
			"Adapter:       docusaurus",
			"ADDED:     1",
			"UNCHANGED: 3",
			"[network] https://docs.example.com/gone",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("lists urls only when verbose", func(t *testing.T) {
		t.Parallel()

		var quiet, verbose bytes.Buffer
		report := createTestReport()
		if _, err := NewSimpleWriter(&quiet).Write(report); err != nil {
			t.Fatal(err)
		}
		if _, err := NewSimpleWriter(&verbose, WithVerbose(true)).Write(report); err != nil {
			t.Fatal(err)
		}

		if strings.Contains(quiet.String(), "[+] https://docs.example.com/new") {
			t.Error("quiet output should not list added URLs")
		}
		if !strings.Contains(verbose.String(), "[+] https://docs.example.com/new") {
			t.Error("verbose output should list added URLs")
		}
		if !strings.Contains(verbose.String(), "[=] https://docs.example.com/b") {
			t.Error("verbose output should mark not-modified pages")
		}
	})

	t.Run("add without diff", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Update = false
		report.Diff = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "DOCINGEST ADD") {
			t.Error("expected add header")
		}
		if strings.Contains(buf.String(), "CHANGES") {
			t.Error("add report should not have a changes section")
		}
	})

	t.Run("caps listed errors", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Crawl.Errors = nil
		for i := range maxListedErrors + 5 {
			report.Crawl.Errors = append(report.Crawl.Errors, model.CrawlError{
				URL: fmt.Sprintf("https://docs.example.com/%d", i), Reason: "timeout", Kind: model.ErrorKindNetwork,
			})
		}

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "... and 5 more") {
			t.Error("expected the error list to be capped")
		}
	})

	t.Run("writes error status", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Crawl = nil
		report.Error = "no llms.txt index found"

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(report); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Error - no llms.txt index found") {
			t.Errorf("expected error status, got:\n%s", buf.String())
		}
	})
}

func TestSimpleWriterHistory(t *testing.T) {
	t.Parallel()

	kb := &model.KnowledgeBase{ID: "kb-1", Name: "Example Docs", SourceURL: "https://docs.example.com/"}

	var buf bytes.Buffer
	if _, err := NewSimpleWriter(&buf).WriteHistory(kb, createTestJobs()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "job-1") || !strings.Contains(buf.String(), "completed") {
		t.Errorf("unexpected history output:\n%s", buf.String())
	}

	buf.Reset()
	if _, err := NewSimpleWriter(&buf).WriteHistory(kb, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No crawl jobs.") {
		t.Error("expected empty history message")
	}

	buf.Reset()
	if _, err := NewSimpleWriter(&buf).WriteKnowledgeBases(nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No knowledge bases") {
		t.Error("expected empty list message")
	}
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes valid JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}

		var got model.IngestReport
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.KnowledgeBase.Name != "Example Docs" || got.Diff == nil || len(got.Diff.Unchanged) != 3 {
			t.Errorf("unexpected decoded report: %+v", got)
		}
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Error("expected trailing newline")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"knowledge_base\"") {
			t.Error("expected indented output")
		}
	})

	t.Run("empty lists encode as arrays", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteKnowledgeBases(nil); err != nil {
			t.Fatal(err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("got %q, want []", buf.String())
		}

		buf.Reset()
		kb := &model.KnowledgeBase{ID: "kb-1"}
		if _, err := NewJSONWriter(&buf).WriteHistory(kb, nil); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), `"jobs":[]`) {
			t.Errorf("unexpected history JSON: %s", buf.String())
		}
	})
}

func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "v1.2.3").Write(createTestReport()); err != nil {
		t.Fatal(err)
	}

	var got JSONReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Version != "v1.2.3" || got.Report == nil || got.Report.Crawl.PagesFetched != 5 {
		t.Errorf("unexpected wrapped report: %+v", got)
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables and chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Update Report: Example Docs",
			"## Crawl",
			"## Changes",
			"```mermaid",
			"pie",
			"### Added",
			"https://docs.example.com/new",
			"## Errors",
			"docingest update --prune",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("no changes", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Diff = &model.DiffResult{Unchanged: []string{"https://docs.example.com/"}}
		report.Crawl.Errors = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "No page changed") {
			t.Error("expected no-change tip")
		}
		if strings.Contains(buf.String(), "## Errors") {
			t.Error("errors section should be omitted")
		}
	})

	t.Run("pruned pages", func(t *testing.T) {
		t.Parallel()

		report := createTestReport()
		report.Pruned = []string{"https://docs.example.com/gone"}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "were pruned") {
			t.Error("expected pruned notice")
		}
	})

	t.Run("history", func(t *testing.T) {
		t.Parallel()

		kb := &model.KnowledgeBase{ID: "kb-1", Name: "Example Docs", SourceURL: "https://docs.example.com/"}
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).WriteHistory(kb, createTestJobs()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "# History: Example Docs") || !strings.Contains(buf.String(), "Completed") {
			t.Errorf("unexpected history markdown:\n%s", buf.String())
		}
	})
}

// failingWriter fails every write.
type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to every writer", func(t *testing.T) {
		t.Parallel()

		var text, js bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&text), NewJSONWriter(&js))
		n, err := m.Write(createTestReport())
		if err != nil {
			t.Fatal(err)
		}
		if n != text.Len()+js.Len() {
			t.Errorf("n = %d, want %d", n, text.Len()+js.Len())
		}
		if text.Len() == 0 || js.Len() == 0 {
			t.Error("both writers should receive the report")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var after bytes.Buffer
		m := NewMultiWriter(NewJSONWriter(failingWriter{}), NewSimpleWriter(&after))
		if _, err := m.WriteKnowledgeBases(nil); err == nil {
			t.Fatal("expected error")
		}
		if after.Len() != 0 {
			t.Error("writers after the failing one should not run")
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
