package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/Corphon/RevidClone/internal/errors"
)

func TestNormalizeFormat(t *testing.T) {
	for input, want := range map[string]string{"md": FormatMarkdown, " Markdown ": FormatMarkdown, "TEXT": FormatText, "html": FormatHTML, "json": FormatJSON} {
		got, err := NormalizeFormat(input)
		if err != nil || got != want {
			t.Errorf("NormalizeFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := NormalizeFormat("pdf"); !apperrors.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExportProjectMarkdown(t *testing.T) {
	service, store := newTestService(t)
	project, _ := service.CreateProject(morningParams)
	project, err := service.DesignStoryboard(project)
	if err != nil {
		t.Fatalf("DesignStoryboard failed: %v", err)
	}

	exports := NewExportService(store)
	exports.Now = func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

	result, err := exports.ExportProject(project, "md", "")
	if err != nil {
		t.Fatalf("ExportProject failed: %v", err)
	}

	wantPath := filepath.Join(store.Home(), "exports", project.ProjectID+"_storyboard_20250102_030405.md")
	if result.FilePath != wantPath {
		t.Fatalf("expected %s, got %s", wantPath, result.FilePath)
	}
	content, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("export not written: %v", err)
	}
	if string(content) != result.Content || result.FileSize != int64(len(content)) {
		t.Fatal("result should describe the written file")
	}

	for _, want := range []string{
		"# Morning Routine Hacks - Storyboard",
		"### Scene 1: Hook The Audience",
		"- **Aspect ratio**: 9:16",
		"- **Mood**: energetic",
		"| Shot suggestion: wide establishing",
	} {
		if !strings.Contains(result.Content, want) {
			t.Errorf("markdown export missing %q", want)
		}
	}
}

func TestExportProjectWithoutScript(t *testing.T) {
	service, store := newTestService(t)
	project, _ := service.CreateProject(morningParams)

	out := filepath.Join(t.TempDir(), "plain.txt")
	result, err := NewExportService(store).ExportProject(project, "text", out)
	if err != nil {
		t.Fatalf("ExportProject failed: %v", err)
	}
	if result.FilePath != out || !strings.Contains(result.Content, "No script yet.") {
		t.Fatalf("unexpected export %+v", result)
	}
}

func TestExportProjectHTMLEscapes(t *testing.T) {
	service, store := newTestService(t)
	params := morningParams
	params.Title = "Tips <b>& tricks</b>"
	project, _ := service.CreateProject(params)
	project, _ = service.GenerateScript(project)

	content, err := NewExportService(store).FormatProject(project, FormatHTML)
	if err != nil {
		t.Fatalf("FormatProject failed: %v", err)
	}
	if strings.Contains(content, "<b>&") || !strings.Contains(content, "Tips &lt;b&gt;&amp; tricks&lt;/b&gt;") {
		t.Fatal("title should be HTML escaped")
	}
	if strings.Count(content, "<div class=\"scene\">") != 3 {
		t.Fatal("every scene should be rendered")
	}
}

func TestExportProjectJSONMatchesStoredProject(t *testing.T) {
	service, store := newTestService(t)
	project, _ := service.CreateProject(morningParams)

	content, err := NewExportService(store).FormatProject(project, FormatJSON)
	if err != nil {
		t.Fatalf("FormatProject failed: %v", err)
	}
	stored, _ := os.ReadFile(store.PathFor(project.ProjectID))
	if content != string(stored) {
		t.Fatal("JSON export should match the canonical project file")
	}
}
