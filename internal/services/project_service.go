// internal/services/project_service.go
package services

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/Corphon/RevidClone/internal/engines"
	apperrors "github.com/Corphon/RevidClone/internal/errors"
	"github.com/Corphon/RevidClone/internal/models"
	"github.com/Corphon/RevidClone/internal/utils"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// RenderedWith 写入预览载荷的固定生成器标记
const RenderedWith = "revid-clone"

// 生命周期阶段
const (
	StageCreated      = "created"
	StageScripted     = "scripted"
	StageStoryboarded = "storyboarded"
	StagePreviewed    = "previewed"
)

// ProjectStore 项目持久化接口
type ProjectStore interface {
	Home() string
	Save(project models.Project) error
	Load(projectID string) (models.Project, error)
	List() iter.Seq2[models.Project, error]
	WriteJSON(path string, data any) error
	DefaultPreviewPath(projectID string) string
	IsProjectPath(path string) bool
	AssetsRoot(projectID string) string
}

// ScriptWriter 脚本生成接口
type ScriptWriter interface {
	Generate(brief string, durationMinutes int) []models.Scene
}

// StoryboardArtist 分镜设计接口
type StoryboardArtist interface {
	Design(scenes []models.Scene) []models.Scene
}

// ProjectService 编排项目生命周期：创建 → 脚本 → 分镜 → 预览
type ProjectService struct {
	Store    ProjectStore
	Writer   ScriptWriter
	Designer StoryboardArtist
	Events   EventPublisher
	Metrics  *utils.PipelineMetrics
	Logger   *utils.Logger
	NewID    func() string
	Now      func() time.Time
}

// NewProjectService 创建项目服务，writer/designer 为 nil 时使用默认引擎
func NewProjectService(store ProjectStore, writer ScriptWriter, designer StoryboardArtist) *ProjectService {
	if writer == nil {
		writer = engines.NewScriptGenerator(engines.DefaultMaxSentences)
	}
	if designer == nil {
		designer = engines.NewStoryboardDesigner()
	}
	return &ProjectService{
		Store:    store,
		Writer:   writer,
		Designer: designer,
		Metrics:  utils.NewPipelineMetrics(nil, nil),
		Logger:   utils.GetLogger(),
		NewID:    NewProjectID,
		Now:      time.Now,
	}
}

// NewProjectID returns 12 random lowercase hex characters.
func NewProjectID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// CreateProject 创建并持久化新项目
func (s *ProjectService) CreateProject(params models.ProjectParams) (models.Project, error) {
	started := s.Now()

	project, err := models.NewProject(s.NewID(), params, started)
	if err != nil {
		return models.Project{}, err
	}
	if err := s.Store.Save(project); err != nil {
		return models.Project{}, err
	}

	s.completed(StageCreated, project, started, map[string]interface{}{"title": project.Title})
	return project, nil
}

// LoadProject 读取项目
func (s *ProjectService) LoadProject(projectID string) (models.Project, error) {
	return s.Store.Load(projectID)
}

// ListProjects 惰性列出全部项目
func (s *ProjectService) ListProjects() iter.Seq2[models.Project, error] {
	return s.Store.List()
}

// GenerateScript 生成脚本并替换场景与摘要，就绪标记保持不变
func (s *ProjectService) GenerateScript(project models.Project) (models.Project, error) {
	started := s.Now()

	scenes := s.Writer.Generate(project.Brief, project.DurationMinutes)
	project = project.WithScript(scenes, SummarizeScenes(scenes))
	if err := s.Store.Save(project); err != nil {
		return project, err
	}

	s.completed(StageScripted, project, started, map[string]interface{}{"scenes": len(scenes)})
	return project, nil
}

// DesignStoryboard 设计分镜；没有场景时先生成脚本
func (s *ProjectService) DesignStoryboard(project models.Project) (models.Project, error) {
	if len(project.Scenes) == 0 {
		var err error
		if project, err = s.GenerateScript(project); err != nil {
			return project, err
		}
	}
	started := s.Now()

	project = project.WithStoryboard(s.Designer.Design(project.Scenes))
	if err := s.Store.Save(project); err != nil {
		return project, err
	}

	s.completed(StageStoryboarded, project, started, map[string]interface{}{"scenes": len(project.Scenes)})
	return project, nil
}

// RenderPreview 写出预览 JSON 并返回其路径；分镜未就绪时先设计分镜。
// destination 为空时写入 <home>/<id>_preview.json，不允许覆盖存储根目录下的项目文件。
func (s *ProjectService) RenderPreview(project models.Project, destination string) (string, error) {
	if destination != "" && s.Store.IsProjectPath(destination) {
		return "", apperrors.NewValidationError(fmt.Sprintf("preview destination %s would overwrite a project file", destination), nil)
	}
	if !project.StoryboardReady {
		var err error
		if project, err = s.DesignStoryboard(project); err != nil {
			return "", err
		}
	}
	started := s.Now()

	if destination == "" {
		destination = s.Store.DefaultPreviewPath(project.ProjectID)
	}
	if err := s.Store.WriteJSON(destination, s.BuildPreview(project)); err != nil {
		return "", apperrors.WrapError(err, fmt.Sprintf("write preview for %s", project.ProjectID), apperrors.ErrorTypeIO)
	}

	project = project.WithPreviewReady()
	if err := s.Store.Save(project); err != nil {
		return "", err
	}

	s.completed(StagePreviewed, project, started, map[string]interface{}{"destination": destination})
	return destination, nil
}

// BuildPreview 构造预览载荷
func (s *ProjectService) BuildPreview(project models.Project) models.Preview {
	return models.Preview{
		ProjectID:      project.ProjectID,
		Title:          project.Title,
		Tone:           project.Tone,
		TargetAudience: project.TargetAudience,
		ScriptSummary:  project.ScriptSummary,
		Scenes:         models.CopyScenes(project.Scenes),
		RenderMetadata: models.RenderMetadata{
			DurationMinutes: project.DurationMinutes,
			RenderedWith:    RenderedWith,
			AssetsRoot:      s.Store.AssetsRoot(project.ProjectID),
		},
	}
}

// SummarizeScenes joins the text after each summary's first colon with " | ".
func SummarizeScenes(scenes []models.Scene) string {
	points := lo.Map(scenes, func(scene models.Scene, _ int) string {
		_, after, found := strings.Cut(scene.Summary, ":")
		if !found {
			after = scene.Summary
		}
		return strings.TrimSpace(after)
	})
	return strings.Join(points, " | ")
}

func (s *ProjectService) completed(stage string, project models.Project, started time.Time, detail map[string]interface{}) {
	elapsed := s.Now().Sub(started)

	if s.Metrics != nil {
		s.Metrics.RecordStage(stage, elapsed)
	}
	if s.Logger != nil {
		fields := map[string]interface{}{"project_id": project.ProjectID, "stage": stage}
		for k, v := range detail {
			fields[k] = v
		}
		s.Logger.Info("project stage completed", fields)
	}
	if s.Events != nil {
		s.Events.Publish(NewLifecycleEvent(stage, project, detail))
	}
}
