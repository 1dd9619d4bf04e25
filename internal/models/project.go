// internal/models/project.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	apperrors "github.com/Corphon/RevidClone/internal/errors"
)

// CreatedAtLayout is the ISO-8601 UTC layout used for Project.CreatedAt.
const CreatedAtLayout = "2006-01-02T15:04:05.000000Z"

var projectIDPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

// IsValidProjectID 判断是否为 12 位小写十六进制项目 ID
func IsValidProjectID(id string) bool {
	return projectIDPattern.MatchString(id)
}

// Project 视频项目的状态容器
type Project struct {
	ProjectID       string  `json:"project_id"`
	Title           string  `json:"title"`
	Brief           string  `json:"brief"`
	Tone            string  `json:"tone"`
	TargetAudience  string  `json:"target_audience"`
	DurationMinutes int     `json:"duration_minutes"`
	CreatedAt       string  `json:"created_at"`
	ScriptSummary   *string `json:"script_summary"`
	Scenes          []Scene `json:"scenes"`
	StoryboardReady bool    `json:"storyboard_ready"`
	PreviewReady    bool    `json:"preview_ready"`
}

// ProjectParams 创建项目所需的参数
type ProjectParams struct {
	Title           string `json:"title"`
	Brief           string `json:"brief"`
	Tone            string `json:"tone"`
	TargetAudience  string `json:"target_audience"`
	DurationMinutes int    `json:"duration_minutes"`
}

// 创建项目时的默认取值
const (
	DefaultTone            = "friendly"
	DefaultTargetAudience  = "general audience"
	DefaultDurationMinutes = 2
)

// WithDefaults fills an empty tone, audience or zero duration with the defaults.
func (p ProjectParams) WithDefaults() ProjectParams {
	if strings.TrimSpace(p.Tone) == "" {
		p.Tone = DefaultTone
	}
	if strings.TrimSpace(p.TargetAudience) == "" {
		p.TargetAudience = DefaultTargetAudience
	}
	if p.DurationMinutes == 0 {
		p.DurationMinutes = DefaultDurationMinutes
	}
	return p
}

// NewProject 创建新项目，场景为空，两个就绪标记均为 false
func NewProject(projectID string, params ProjectParams, now time.Time) (Project, error) {
	project := Project{
		ProjectID:       projectID,
		Title:           params.Title,
		Brief:           params.Brief,
		Tone:            params.Tone,
		TargetAudience:  params.TargetAudience,
		DurationMinutes: params.DurationMinutes,
		CreatedAt:       now.UTC().Format(CreatedAtLayout),
		Scenes:          []Scene{},
	}
	if err := project.Validate(); err != nil {
		return Project{}, err
	}
	return project, nil
}

// Validate 校验项目字段及不变量
func (p Project) Validate() error {
	if !projectIDPattern.MatchString(p.ProjectID) {
		return apperrors.NewValidationError(fmt.Sprintf("project_id must be 12 hex characters, got %q", p.ProjectID), nil)
	}
	if strings.TrimSpace(p.Title) == "" {
		return apperrors.NewValidationError("title is required", nil)
	}
	if strings.TrimSpace(p.Brief) == "" {
		return apperrors.NewValidationError("brief is required", nil)
	}
	if p.DurationMinutes <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("duration_minutes must be > 0, got %d", p.DurationMinutes), nil)
	}
	if p.CreatedAt == "" {
		return apperrors.NewValidationError("created_at is required", nil)
	}
	for i, scene := range p.Scenes {
		if scene.Index != i {
			return apperrors.NewValidationError(fmt.Sprintf("scene at position %d has index %d", i, scene.Index), nil)
		}
		if err := scene.Validate(); err != nil {
			return err
		}
	}
	if p.StoryboardReady && len(p.Scenes) == 0 {
		return apperrors.NewValidationError("storyboard_ready requires scenes", nil)
	}
	if p.PreviewReady && !p.StoryboardReady {
		return apperrors.NewValidationError("preview_ready requires storyboard_ready", nil)
	}
	return nil
}

// WithScript 返回替换了场景与脚本摘要的新项目
func (p Project) WithScript(scenes []Scene, summary string) Project {
	p.Scenes = CopyScenes(scenes)
	p.ScriptSummary = StringPtr(summary)
	return p
}

// WithStoryboard 返回替换了分镜场景并标记 storyboard_ready 的新项目
func (p Project) WithStoryboard(scenes []Scene) Project {
	p.Scenes = CopyScenes(scenes)
	p.StoryboardReady = true
	return p
}

// WithPreviewReady 返回标记 preview_ready 的新项目
func (p Project) WithPreviewReady() Project {
	p.Scenes = CopyScenes(p.Scenes)
	p.PreviewReady = true
	return p
}

// ToJSON 序列化项目：两空格缩进，键按字母排序
func (p Project) ToJSON() ([]byte, error) {
	if p.Scenes == nil {
		p.Scenes = []Scene{}
	}
	return MarshalSorted(p)
}

// ProjectFromJSON 反序列化并校验项目
func ProjectFromJSON(data []byte) (Project, error) {
	var project Project
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&project); err != nil {
		return Project{}, apperrors.NewValidationError("decode project", err)
	}
	if project.Scenes == nil {
		project.Scenes = []Scene{}
	}
	if err := project.Validate(); err != nil {
		return Project{}, err
	}
	return project, nil
}

// MarshalSorted encodes v as 2-space indented JSON with object keys in
// alphabetical order at every level.
func MarshalSorted(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, err
	}
	// map keys are emitted in sorted order
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(generic); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
