// internal/api/handlers.go
package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Corphon/RevidClone/internal/models"
	"github.com/Corphon/RevidClone/internal/services"
	"github.com/Corphon/RevidClone/internal/utils"
	"github.com/gin-gonic/gin"
)

// Handler 处理API请求
type Handler struct {
	Projects  *services.ProjectService // 项目服务
	Exports   *services.ExportService  // 导出服务
	Locks     *services.LockManager    // 项目锁
	Metrics   *utils.PipelineMetrics   // 指标
	WebSocket *WebSocketHandler        // 生命周期事件流
	Response  *ResponseHelper          // 响应助手
}

// NewHandler 创建API处理器
func NewHandler(projects *services.ProjectService, exports *services.ExportService, locks *services.LockManager, events *services.EventService, metrics *utils.PipelineMetrics) *Handler {
	return &Handler{
		Projects:  projects,
		Exports:   exports,
		Locks:     locks,
		Metrics:   metrics,
		WebSocket: NewWebSocketHandler(projects, events),
		Response:  NewResponseHelper(metrics),
	}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title           string `json:"title" binding:"required"`
	Brief           string `json:"brief" binding:"required"`
	Tone            string `json:"tone"`
	TargetAudience  string `json:"target_audience"`
	DurationMinutes int    `json:"duration_minutes"`
}

// RenderPreviewRequest 渲染预览请求，Destination 为相对 home 的路径
type RenderPreviewRequest struct {
	Destination string `json:"destination"`
}

// RenderPreviewResponse 渲染预览结果
type RenderPreviewResponse struct {
	ProjectID string `json:"project_id"`
	Path      string `json:"path"`
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// GetMetrics 返回指标快照
func (h *Handler) GetMetrics(c *gin.Context) {
	h.Response.Success(c, h.Metrics.Collector().GetMetrics())
}

// ListProjects 列出全部项目
func (h *Handler) ListProjects(c *gin.Context) {
	projects := []models.Project{}
	for project, err := range h.Projects.ListProjects() {
		if err != nil {
			h.Response.FromError(c, err)
			return
		}
		projects = append(projects, project)
	}
	h.Response.Success(c, projects)
}

// CreateProject 创建项目
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "invalid project request", err.Error())
		return
	}

	params := models.ProjectParams{
		Title:           req.Title,
		Brief:           req.Brief,
		Tone:            req.Tone,
		TargetAudience:  req.TargetAudience,
		DurationMinutes: req.DurationMinutes,
	}.WithDefaults()

	project, err := h.Projects.CreateProject(params)
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Created(c, project, "project created")
}

// GetProject 获取项目
func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.Projects.LoadProject(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, project)
}

// GenerateScript 为项目生成脚本
func (h *Handler) GenerateScript(c *gin.Context) {
	h.runStage(c, h.Projects.GenerateScript)
}

// DesignStoryboard 为项目设计分镜
func (h *Handler) DesignStoryboard(c *gin.Context) {
	h.runStage(c, h.Projects.DesignStoryboard)
}

// runStage 在项目锁内执行 读取 → 阶段 → 保存
func (h *Handler) runStage(c *gin.Context, stage func(models.Project) (models.Project, error)) {
	projectID := c.Param("id")

	var updated models.Project
	err := h.Locks.ExecuteWithProjectLock(projectID, func() error {
		project, err := h.Projects.LoadProject(projectID)
		if err != nil {
			return err
		}
		updated, err = stage(project)
		return err
	})
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, updated)
}

// RenderPreview 渲染预览文件
func (h *Handler) RenderPreview(c *gin.Context) {
	projectID := c.Param("id")

	var req RenderPreviewRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.Response.BadRequest(c, "invalid render request", err.Error())
			return
		}
	}

	destination := ""
	if req.Destination != "" {
		if !filepath.IsLocal(req.Destination) {
			h.Response.Error(c, http.StatusBadRequest, ErrorDestination, "destination must be a relative path inside the project home")
			return
		}
		destination = filepath.Join(h.Projects.Store.Home(), req.Destination)
		if h.Projects.Store.IsProjectPath(destination) {
			h.Response.Error(c, http.StatusBadRequest, ErrorDestination, "destination would overwrite a project file")
			return
		}
	}

	var path string
	err := h.Locks.ExecuteWithProjectLock(projectID, func() error {
		project, err := h.Projects.LoadProject(projectID)
		if err != nil {
			return err
		}
		path, err = h.Projects.RenderPreview(project, destination)
		return err
	})
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, RenderPreviewResponse{ProjectID: projectID, Path: path}, "preview rendered")
}

// GetPreview 返回当前项目状态对应的预览载荷，分镜未就绪时返回 409
func (h *Handler) GetPreview(c *gin.Context) {
	project, err := h.Projects.LoadProject(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	if !project.StoryboardReady {
		h.Response.Conflict(c, ErrorPreviewNotReady, "storyboard has not been designed yet")
		return
	}
	h.Response.Success(c, h.Projects.BuildPreview(project))
}

// ExportProject 导出项目分镜脚本，格式由 format 查询参数指定（默认 markdown）
func (h *Handler) ExportProject(c *gin.Context) {
	format, err := services.NormalizeFormat(c.DefaultQuery("format", services.FormatMarkdown))
	if err != nil {
		h.Response.BadRequest(c, err.Error())
		return
	}

	project, err := h.Projects.LoadProject(c.Param("id"))
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	result, err := h.Exports.ExportProject(project, format, "")
	if err != nil {
		h.Response.FromError(c, err)
		return
	}
	h.Response.Success(c, result, "project exported")
}

// ProjectWebSocket 处理项目事件 WebSocket 连接
func (h *Handler) ProjectWebSocket(c *gin.Context) {
	h.WebSocket.ProjectWebSocket(c)
}
