// internal/models/scene.go
package models

import (
	"fmt"
	"strings"

	apperrors "github.com/Corphon/RevidClone/internal/errors"
)

// 画幅比例
const (
	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
)

// Scene 表示生成脚本中的一个场景
type Scene struct {
	Index                int     `json:"index"`
	Title                string  `json:"title"`
	Summary              string  `json:"summary"`
	Voiceover            *string `json:"voiceover"`
	Mood                 *string `json:"mood"`
	AspectRatio          string  `json:"aspect_ratio"`
	ThumbnailDescription *string `json:"thumbnail_description"`
}

// NewScene 创建场景并校验必填字段
func NewScene(index int, title, summary string) (Scene, error) {
	scene := Scene{
		Index:       index,
		Title:       title,
		Summary:     summary,
		AspectRatio: AspectLandscape,
	}
	if err := scene.Validate(); err != nil {
		return Scene{}, err
	}
	return scene, nil
}

// Validate 校验场景字段
func (s Scene) Validate() error {
	if s.Index < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("scene index must be >= 0, got %d", s.Index), nil)
	}
	if strings.TrimSpace(s.Title) == "" {
		return apperrors.NewValidationError(fmt.Sprintf("scene %d: title is required", s.Index), nil)
	}
	if !IsValidAspectRatio(s.AspectRatio) {
		return apperrors.NewValidationError(fmt.Sprintf("scene %d: unsupported aspect ratio %q", s.Index, s.AspectRatio), nil)
	}
	return nil
}

// IsValidAspectRatio 检查画幅比例是否受支持
func IsValidAspectRatio(ratio string) bool {
	return ratio == AspectLandscape || ratio == AspectPortrait
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// StringValue dereferences p, treating nil as "".
func StringValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// CopyScenes 复制场景列表（写时复制）
func CopyScenes(scenes []Scene) []Scene {
	out := make([]Scene, len(scenes))
	copy(out, scenes)
	return out
}
