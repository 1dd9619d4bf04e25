// internal/engines/storyboard_designer.go
package engines

import (
	"strings"

	"github.com/Corphon/RevidClone/internal/models"
)

const shotSuggestionMarker = " | Shot suggestion: "

var shotSuggestions = []string{
	"wide establishing",
	"medium action",
	"close-up reaction",
	"dynamic tracking",
	"graphic overlay",
}

// StoryboardDesigner 为每个场景分配画幅与镜头建议
type StoryboardDesigner struct{}

// NewStoryboardDesigner 创建分镜设计器
func NewStoryboardDesigner() *StoryboardDesigner {
	return &StoryboardDesigner{}
}

// Design 返回新的场景列表，输入不会被修改
func (d *StoryboardDesigner) Design(scenes []models.Scene) []models.Scene {
	designed := make([]models.Scene, 0, len(scenes))
	for _, scene := range scenes {
		base := models.StringValue(scene.ThumbnailDescription)
		// a previous pass left its suggestion behind; replace rather than stack
		if cut := strings.Index(base, shotSuggestionMarker); cut >= 0 {
			base = base[:cut]
		} else if strings.HasPrefix(base, strings.TrimSpace(shotSuggestionMarker)) {
			base = ""
		}
		thumbnail := strings.TrimSpace(base + shotSuggestionMarker + ShotSuggestion(scene.Index))

		scene.AspectRatio = AspectRatioFor(scene.Index)
		scene.ThumbnailDescription = models.StringPtr(thumbnail)
		designed = append(designed, scene)
	}
	return designed
}

// AspectRatioFor returns 16:9 for even scene indexes and 9:16 for odd ones.
func AspectRatioFor(index int) string {
	if index%2 == 0 {
		return models.AspectLandscape
	}
	return models.AspectPortrait
}

// ShotSuggestion picks the shot type for a scene index.
func ShotSuggestion(index int) string {
	return shotSuggestions[index%len(shotSuggestions)]
}
