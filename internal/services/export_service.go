// internal/services/export_service.go
package services

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/Corphon/RevidClone/internal/errors"
	"github.com/Corphon/RevidClone/internal/models"
)

// 支持的导出格式
const (
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

var formatAliases = map[string]string{
	"markdown": FormatMarkdown,
	"md":       FormatMarkdown,
	"txt":      FormatText,
	"text":     FormatText,
	"html":     FormatHTML,
	"json":     FormatJSON,
}

var formatExtensions = map[string]string{
	FormatMarkdown: "md",
	FormatText:     "txt",
	FormatHTML:     "html",
	FormatJSON:     "json",
}

// ExportStore 导出文件的落盘接口
type ExportStore interface {
	ExportsDir() string
	WriteFile(path string, content []byte) error
}

// ExportService 将项目导出为可阅读的分镜脚本
type ExportService struct {
	Store ExportStore
	Now   func() time.Time
}

// NewExportService 创建导出服务
func NewExportService(store ExportStore) *ExportService {
	return &ExportService{Store: store, Now: time.Now}
}

// NormalizeFormat 解析格式名（不区分大小写，支持 md/text 别名）
func NormalizeFormat(format string) (string, error) {
	normalized, ok := formatAliases[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported export format %q, supported: markdown, txt, html, json", format), nil)
	}
	return normalized, nil
}

// ExportProject 生成导出内容并写入 destination；destination 为空时写入 exports 目录
func (s *ExportService) ExportProject(project models.Project, format, destination string) (*models.ExportResult, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	content, err := s.FormatProject(project, format)
	if err != nil {
		return nil, err
	}

	result := &models.ExportResult{
		ProjectID:   project.ProjectID,
		Title:       project.Title + " - Storyboard",
		Format:      format,
		Content:     content,
		GeneratedAt: s.Now(),
	}

	if destination == "" {
		fileName := fmt.Sprintf("%s_storyboard_%s.%s",
			project.ProjectID, result.GeneratedAt.Format("20060102_150405"), formatExtensions[format])
		destination = filepath.Join(s.Store.ExportsDir(), fileName)
	}
	if err := s.Store.WriteFile(destination, []byte(content)); err != nil {
		return nil, err
	}

	fileInfo, err := os.Stat(destination)
	if err != nil {
		return nil, apperrors.NewIOError(fmt.Sprintf("stat export %s", destination), err)
	}
	result.FilePath = destination
	result.FileSize = fileInfo.Size()
	return result, nil
}

// FormatProject 按格式渲染项目内容
func (s *ExportService) FormatProject(project models.Project, format string) (string, error) {
	switch format {
	case FormatMarkdown:
		return formatAsMarkdown(project), nil
	case FormatText:
		return formatAsText(project), nil
	case FormatHTML:
		return formatAsHTML(project), nil
	case FormatJSON:
		data, err := project.ToJSON()
		if err != nil {
			return "", apperrors.NewProcessingError("serialize project", err)
		}
		return string(data), nil
	default:
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported export format %q", format), nil)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatAsMarkdown(project models.Project) string {
	var content strings.Builder

	content.WriteString(fmt.Sprintf("# %s - Storyboard\n\n", project.Title))

	content.WriteString("## Overview\n\n")
	content.WriteString(fmt.Sprintf("- **Project ID**: %s\n", project.ProjectID))
	content.WriteString(fmt.Sprintf("- **Tone**: %s\n", project.Tone))
	content.WriteString(fmt.Sprintf("- **Target audience**: %s\n", project.TargetAudience))
	content.WriteString(fmt.Sprintf("- **Duration**: %d min\n", project.DurationMinutes))
	content.WriteString(fmt.Sprintf("- **Created at**: %s\n", project.CreatedAt))
	content.WriteString(fmt.Sprintf("- **Storyboard ready**: %s\n", yesNo(project.StoryboardReady)))
	content.WriteString(fmt.Sprintf("- **Preview ready**: %s\n\n", yesNo(project.PreviewReady)))

	content.WriteString("## Brief\n\n")
	content.WriteString(project.Brief + "\n\n")

	content.WriteString("## Script summary\n\n")
	if project.ScriptSummary == nil {
		content.WriteString("_No script yet._\n")
		return content.String()
	}
	content.WriteString(*project.ScriptSummary + "\n\n")

	content.WriteString("## Scenes\n")
	for _, scene := range project.Scenes {
		content.WriteString(fmt.Sprintf("\n### %s\n\n", scene.Title))
		content.WriteString(fmt.Sprintf("- **Aspect ratio**: %s\n", scene.AspectRatio))
		if scene.Mood != nil {
			content.WriteString(fmt.Sprintf("- **Mood**: %s\n", *scene.Mood))
		}
		if scene.ThumbnailDescription != nil {
			content.WriteString(fmt.Sprintf("- **Thumbnail**: %s\n", *scene.ThumbnailDescription))
		}
		content.WriteString("\n" + scene.Summary + "\n")
		if scene.Voiceover != nil {
			content.WriteString(fmt.Sprintf("\n> %s\n", *scene.Voiceover))
		}
	}
	return content.String()
}

func formatAsText(project models.Project) string {
	var content strings.Builder

	content.WriteString(fmt.Sprintf("%s - Storyboard\n", project.Title))
	content.WriteString(strings.Repeat("=", len(project.Title)+13) + "\n\n")
	content.WriteString(fmt.Sprintf("Project ID:      %s\n", project.ProjectID))
	content.WriteString(fmt.Sprintf("Tone:            %s\n", project.Tone))
	content.WriteString(fmt.Sprintf("Target audience: %s\n", project.TargetAudience))
	content.WriteString(fmt.Sprintf("Duration:        %d min\n", project.DurationMinutes))
	content.WriteString(fmt.Sprintf("Created at:      %s\n\n", project.CreatedAt))
	content.WriteString(fmt.Sprintf("Brief: %s\n\n", project.Brief))

	if project.ScriptSummary == nil {
		content.WriteString("No script yet.\n")
		return content.String()
	}
	content.WriteString(fmt.Sprintf("Summary: %s\n", *project.ScriptSummary))

	for _, scene := range project.Scenes {
		content.WriteString(fmt.Sprintf("\n%s [%s]\n", scene.Title, scene.AspectRatio))
		content.WriteString(scene.Summary + "\n")
		if scene.Voiceover != nil {
			content.WriteString(fmt.Sprintf("  Voiceover: %s\n", *scene.Voiceover))
		}
		if scene.Mood != nil {
			content.WriteString(fmt.Sprintf("  Mood: %s\n", *scene.Mood))
		}
		if scene.ThumbnailDescription != nil {
			content.WriteString(fmt.Sprintf("  Thumbnail: %s\n", *scene.ThumbnailDescription))
		}
	}
	return content.String()
}

func formatAsHTML(project models.Project) string {
	esc := html.EscapeString
	var content strings.Builder

	content.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>`)
	content.WriteString(esc(project.Title) + " - Storyboard")
	content.WriteString(`</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; margin: 0 auto; max-width: 820px; padding: 20px; line-height: 1.6; color: #333; }
.scene { border-left: 4px solid #4285f4; margin: 16px 0; padding: 8px 16px; background: #f8f9fa; }
.meta { color: #666; font-size: 0.9em; }
blockquote { margin: 8px 0; color: #555; }
</style>
</head>
<body>
`)
	content.WriteString(fmt.Sprintf("<h1>%s</h1>\n", esc(project.Title)))
	content.WriteString(fmt.Sprintf("<p class=\"meta\">%s &middot; %s &middot; %d min</p>\n",
		esc(project.Tone), esc(project.TargetAudience), project.DurationMinutes))
	content.WriteString(fmt.Sprintf("<p>%s</p>\n", esc(project.Brief)))

	if project.ScriptSummary == nil {
		content.WriteString("<p><em>No script yet.</em></p>\n")
	} else {
		content.WriteString(fmt.Sprintf("<h2>Summary</h2>\n<p>%s</p>\n", esc(*project.ScriptSummary)))
		for _, scene := range project.Scenes {
			content.WriteString("<div class=\"scene\">\n")
			content.WriteString(fmt.Sprintf("<h3>%s</h3>\n", esc(scene.Title)))
			content.WriteString(fmt.Sprintf("<p class=\"meta\">%s", esc(scene.AspectRatio)))
			if scene.Mood != nil {
				content.WriteString(" &middot; " + esc(*scene.Mood))
			}
			content.WriteString("</p>\n")
			content.WriteString(fmt.Sprintf("<p>%s</p>\n", esc(scene.Summary)))
			if scene.Voiceover != nil {
				content.WriteString(fmt.Sprintf("<blockquote>%s</blockquote>\n", esc(*scene.Voiceover)))
			}
			if scene.ThumbnailDescription != nil {
				content.WriteString(fmt.Sprintf("<p class=\"meta\">%s</p>\n", esc(*scene.ThumbnailDescription)))
			}
			content.WriteString("</div>\n")
		}
	}

	content.WriteString("</body>\n</html>\n")
	return content.String()
}
