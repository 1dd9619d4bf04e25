package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/Corphon/RevidClone/internal/config"
	"github.com/Corphon/RevidClone/internal/di"
	"github.com/Corphon/RevidClone/internal/models"
	"github.com/Corphon/RevidClone/internal/services"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Home:         filepath.Join(t.TempDir(), "home"),
		Port:         "0",
		LogLevel:     "error",
		MaxSentences: 2,
	}
}

func TestNewWiresServices(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a.Projects.Events != a.Events {
		t.Fatal("project service should publish to the app's event service")
	}
	if a.Projects.Store != a.Storage {
		t.Fatal("project service should use the app's storage")
	}

	sub := a.Events.Subscribe(services.AllProjects)
	project, err := a.Projects.CreateProject(models.ProjectParams{
		Title:           "Wiring",
		Brief:           "Check the wiring.",
		DurationMinutes: 1,
	})
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if event := <-sub; event.ProjectID != project.ProjectID {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected an error without config")
	}
}

func TestRegister(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c := di.NewContainer()
	a.Register(c)

	for _, name := range []string{di.ServiceConfig, di.ServiceStorage, di.ServiceProjects, di.ServiceEvents, di.ServiceLocks, di.ServiceMetrics, di.ServiceExports} {
		if !c.Has(name) {
			t.Errorf("service %s not registered", name)
		}
	}
	if got, err := di.Resolve[*services.ProjectService](c, di.ServiceProjects); err != nil || got != a.Projects {
		t.Fatalf("Resolve returned %v, %v", got, err)
	}
}

func TestInitServicesReplacesRegistrations(t *testing.T) {
	container := di.GetContainer()
	container.Register("stale", struct{}{})

	a, err := InitServices(testConfig(t))
	if err != nil {
		t.Fatalf("InitServices failed: %v", err)
	}
	if container.Has("stale") {
		t.Fatal("services from a previous initialization should be cleared")
	}
	if got, err := di.Resolve[*services.ProjectService](container, di.ServiceProjects); err != nil || got != a.Projects {
		t.Fatalf("Resolve returned %v, %v", got, err)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, listener, handler) }()

	resp, err := http.Get("http://" + listener.Addr().String())
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
