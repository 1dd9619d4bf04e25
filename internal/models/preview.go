// internal/models/preview.go
package models

// RenderMetadata 预览渲染元数据
type RenderMetadata struct {
	DurationMinutes int    `json:"duration_minutes"`
	RenderedWith    string `json:"rendered_with"`
	AssetsRoot      string `json:"assets_root"`
}

// Preview 代替真实渲染视频的 JSON 预览载荷
type Preview struct {
	ProjectID      string         `json:"project_id"`
	Title          string         `json:"title"`
	Tone           string         `json:"tone"`
	TargetAudience string         `json:"target_audience"`
	ScriptSummary  *string        `json:"script_summary"`
	Scenes         []Scene        `json:"scenes"`
	RenderMetadata RenderMetadata `json:"render_metadata"`
}
