package services

import (
	"testing"

	"github.com/Corphon/RevidClone/internal/models"
)

func TestEventServiceRoutesByProject(t *testing.T) {
	events := NewEventService()
	mine := events.Subscribe("aaaaaaaaaaaa")
	all := events.Subscribe(AllProjects)

	events.Publish(NewLifecycleEvent(StageScripted, models.Project{ProjectID: "bbbbbbbbbbbb"}, nil))
	events.Publish(NewLifecycleEvent(StagePreviewed, models.Project{ProjectID: "aaaaaaaaaaaa", StoryboardReady: true, PreviewReady: true}, nil))

	got := <-mine
	if got.Type != "preview.rendered" || !got.PreviewReady {
		t.Fatalf("unexpected event %+v", got)
	}
	select {
	case extra := <-mine:
		t.Fatalf("subscriber received another project's event: %+v", extra)
	default:
	}

	if (<-all).ProjectID != "bbbbbbbbbbbb" || (<-all).ProjectID != "aaaaaaaaaaaa" {
		t.Fatal("wildcard subscriber should see every event in order")
	}
}

func TestEventServiceUnsubscribe(t *testing.T) {
	events := NewEventService()
	sub := events.Subscribe("aaaaaaaaaaaa")
	if events.SubscriberCount("aaaaaaaaaaaa") != 1 {
		t.Fatal("expected one subscriber")
	}

	events.Unsubscribe("aaaaaaaaaaaa", sub)
	if _, open := <-sub; open {
		t.Fatal("channel should be closed after Unsubscribe")
	}
	if events.SubscriberCount("aaaaaaaaaaaa") != 0 {
		t.Fatal("subscriber should be removed")
	}

	// a second unsubscribe is a no-op
	events.Unsubscribe("aaaaaaaaaaaa", sub)
	events.Publish(NewLifecycleEvent(StageCreated, models.Project{ProjectID: "aaaaaaaaaaaa"}, nil))
}

func TestEventServiceDropsWhenFull(t *testing.T) {
	events := NewEventService()
	sub := events.Subscribe("aaaaaaaaaaaa")
	for i := 0; i < events.bufferSize+5; i++ {
		events.Publish(NewLifecycleEvent(StageCreated, models.Project{ProjectID: "aaaaaaaaaaaa"}, nil))
	}
	if len(sub) != events.bufferSize {
		t.Fatalf("expected a full buffer of %d, got %d", events.bufferSize, len(sub))
	}
}

func TestNewLifecycleEventUnknownStage(t *testing.T) {
	event := NewLifecycleEvent("archived", models.Project{ProjectID: "aaaaaaaaaaaa"}, nil)
	if event.Type != "project.archived" {
		t.Fatalf("unexpected type %s", event.Type)
	}
}
