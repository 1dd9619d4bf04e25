// internal/services/event_service.go
package services

import (
	"sync"
	"time"

	"github.com/Corphon/RevidClone/internal/models"
)

// AllProjects 订阅全部项目事件时使用的键
const AllProjects = "*"

// 事件类型
var eventTypes = map[string]string{
	StageCreated:      "project.created",
	StageScripted:     "script.generated",
	StageStoryboarded: "storyboard.designed",
	StagePreviewed:    "preview.rendered",
}

// LifecycleEvent 表示项目生命周期中的一次状态变化
type LifecycleEvent struct {
	Type            string                 `json:"type"`
	ProjectID       string                 `json:"project_id"`
	Stage           string                 `json:"stage"`
	StoryboardReady bool                   `json:"storyboard_ready"`
	PreviewReady    bool                   `json:"preview_ready"`
	Timestamp       time.Time              `json:"timestamp"`
	Detail          map[string]interface{} `json:"detail,omitempty"`
}

// NewLifecycleEvent 根据阶段与项目快照构造事件
func NewLifecycleEvent(stage string, project models.Project, detail map[string]interface{}) LifecycleEvent {
	eventType, ok := eventTypes[stage]
	if !ok {
		eventType = "project." + stage
	}
	return LifecycleEvent{
		Type:            eventType,
		ProjectID:       project.ProjectID,
		Stage:           stage,
		StoryboardReady: project.StoryboardReady,
		PreviewReady:    project.PreviewReady,
		Timestamp:       time.Now(),
		Detail:          detail,
	}
}

// EventPublisher 生命周期事件发布接口
type EventPublisher interface {
	Publish(event LifecycleEvent)
}

// EventService 按项目分发生命周期事件
type EventService struct {
	subscribers map[string]map[chan LifecycleEvent]bool
	mutex       sync.RWMutex
	bufferSize  int
}

// NewEventService 创建事件服务
func NewEventService() *EventService {
	return &EventService{
		subscribers: make(map[string]map[chan LifecycleEvent]bool),
		bufferSize:  16,
	}
}

// Subscribe 订阅某个项目（或 AllProjects）的事件
func (s *EventService) Subscribe(projectID string) chan LifecycleEvent {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	subscriber := make(chan LifecycleEvent, s.bufferSize)
	if s.subscribers[projectID] == nil {
		s.subscribers[projectID] = make(map[chan LifecycleEvent]bool)
	}
	s.subscribers[projectID][subscriber] = true
	return subscriber
}

// Unsubscribe 取消订阅并关闭通道
func (s *EventService) Unsubscribe(projectID string, subscriber chan LifecycleEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	subs, exists := s.subscribers[projectID]
	if !exists || !subs[subscriber] {
		return
	}
	delete(subs, subscriber)
	if len(subs) == 0 {
		delete(s.subscribers, projectID)
	}
	close(subscriber)
}

// Publish 非阻塞发送，订阅者通道已满时丢弃
func (s *EventService) Publish(event LifecycleEvent) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, key := range []string{event.ProjectID, AllProjects} {
		for subscriber := range s.subscribers[key] {
			select {
			case subscriber <- event:
			default:
			}
		}
	}
}

// SubscriberCount 返回某个键下的订阅者数量
func (s *EventService) SubscriberCount(projectID string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.subscribers[projectID])
}
