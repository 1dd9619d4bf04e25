package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Corphon/RevidClone/internal/models"
	"github.com/Corphon/RevidClone/internal/services"
	"github.com/Corphon/RevidClone/internal/storage"
	"github.com/Corphon/RevidClone/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type testEnv struct {
	router  *gin.Engine
	handler *Handler
	store   *storage.ProjectStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewProjectStorage(filepath.Join(t.TempDir(), "home"))
	if err != nil {
		t.Fatalf("NewProjectStorage failed: %v", err)
	}
	logger := utils.NewLogger(discard{})
	metrics := utils.NewPipelineMetrics(utils.NewMetricsCollector(), logger)
	events := services.NewEventService()

	projects := services.NewProjectService(store, nil, nil)
	projects.Logger = logger
	projects.Metrics = metrics
	projects.Events = events

	handler := NewHandler(projects, services.NewExportService(store), services.NewLockManager(), events, metrics)
	handler.WebSocket.logger = logger
	return &testEnv{router: NewRouter(handler), handler: handler, store: store}
}

// envelope mirrors APIResponse with a raw data payload.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
		}
	}
	return w, env
}

func (e *testEnv) createProject(t *testing.T) models.Project {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/api/projects",
		`{"title":"Morning Routine Hacks","brief":"Share three actionable tips. Focus on energising the viewer.","tone":"upbeat","target_audience":"busy professionals","duration_minutes":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var project models.Project
	if err := json.Unmarshal(env.Data, &project); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	return project
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestCreateAndGetProject(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	if project.Tone != "upbeat" || len(project.Scenes) != 0 {
		t.Fatalf("unexpected project %+v", project)
	}

	w, resp := env.do(t, http.MethodGet, "/api/projects/"+project.ProjectID, "")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp.RequestID == "" || w.Header().Get(requestIDHeader) != resp.RequestID {
		t.Fatal("response should carry the request id")
	}
}

func TestCreateProjectDefaults(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodPost, "/api/projects", `{"title":"Snacks","brief":"Offer snack ideas."}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	var project models.Project
	_ = json.Unmarshal(resp.Data, &project)
	if project.Tone != models.DefaultTone || project.TargetAudience != models.DefaultTargetAudience || project.DurationMinutes != models.DefaultDurationMinutes {
		t.Fatalf("defaults not applied: %+v", project)
	}
}

func TestCreateProjectRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodPost, "/api/projects", `{"title":"No brief"}`)
	if w.Code != http.StatusBadRequest || resp.Error.Code != ErrorBadRequest {
		t.Fatalf("expected binding failure, got %d %+v", w.Code, resp.Error)
	}

	w, resp = env.do(t, http.MethodPost, "/api/projects", `{"title":"Negative","brief":"b","duration_minutes":-3}`)
	if w.Code != http.StatusBadRequest || resp.Error.Code != ErrorProjectInvalid {
		t.Fatalf("expected validation failure, got %d %+v", w.Code, resp.Error)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/api/projects/abcdefabcdef", "")
	if w.Code != http.StatusNotFound || resp.Error.Code != ErrorProjectNotFound {
		t.Fatalf("expected 404, got %d %+v", w.Code, resp.Error)
	}
}

func TestGetProjectMalformedID(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/api/projects/ABCDEF..json", "")
	if w.Code != http.StatusNotFound || resp.Error.Code != ErrorProjectNotFound {
		t.Fatalf("expected 404, got %d %s", w.Code, w.Body.String())
	}
}

func TestCorruptProjectIsServerError(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(env.store.PathFor("abcdefabcdef"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	w, resp := env.do(t, http.MethodGet, "/api/projects/abcdefabcdef", "")
	if w.Code != http.StatusInternalServerError || resp.Error.Code != ErrorProjectCorrupt {
		t.Fatalf("expected 500 PROJECT_CORRUPT, got %d %s", w.Code, w.Body.String())
	}
	w, resp = env.do(t, http.MethodGet, "/api/projects", "")
	if w.Code != http.StatusInternalServerError || resp.Error.Code != ErrorProjectCorrupt {
		t.Fatalf("listing a corrupt store should be a server error, got %d", w.Code)
	}
}

func TestPipelineEndpoints(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)
	base := "/api/projects/" + project.ProjectID

	w, resp := env.do(t, http.MethodGet, base+"/preview", "")
	if w.Code != http.StatusConflict || resp.Error.Code != ErrorPreviewNotReady {
		t.Fatalf("preview before storyboard should conflict, got %d", w.Code)
	}

	w, resp = env.do(t, http.MethodPost, base+"/script", "")
	if w.Code != http.StatusOK {
		t.Fatalf("script failed: %d %s", w.Code, w.Body.String())
	}
	var scripted models.Project
	_ = json.Unmarshal(resp.Data, &scripted)
	if len(scripted.Scenes) != 3 || scripted.StoryboardReady {
		t.Fatalf("unexpected scripted project %+v", scripted)
	}

	w, resp = env.do(t, http.MethodPost, base+"/storyboard", "")
	if w.Code != http.StatusOK {
		t.Fatalf("storyboard failed: %d", w.Code)
	}
	var designed models.Project
	_ = json.Unmarshal(resp.Data, &designed)
	if !designed.StoryboardReady || designed.Scenes[1].AspectRatio != models.AspectPortrait {
		t.Fatalf("unexpected storyboard %+v", designed)
	}

	w, resp = env.do(t, http.MethodGet, base+"/preview", "")
	if w.Code != http.StatusOK {
		t.Fatalf("preview failed: %d", w.Code)
	}
	var preview models.Preview
	_ = json.Unmarshal(resp.Data, &preview)
	if preview.RenderMetadata.RenderedWith != services.RenderedWith || len(preview.Scenes) != 3 {
		t.Fatalf("unexpected preview %+v", preview)
	}

	w, resp = env.do(t, http.MethodPost, base+"/render", "")
	if w.Code != http.StatusOK {
		t.Fatalf("render failed: %d %s", w.Code, w.Body.String())
	}
	var rendered RenderPreviewResponse
	_ = json.Unmarshal(resp.Data, &rendered)
	if rendered.Path != env.store.DefaultPreviewPath(project.ProjectID) {
		t.Fatalf("unexpected preview path %s", rendered.Path)
	}

	stored, err := env.store.Load(project.ProjectID)
	if err != nil || !stored.PreviewReady {
		t.Fatalf("project should be preview ready: %+v %v", stored, err)
	}
}

func TestRenderPreviewDestination(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)
	base := "/api/projects/" + project.ProjectID

	w, resp := env.do(t, http.MethodPost, base+"/render", `{"destination":"exports/preview.json"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("render failed: %d %s", w.Code, w.Body.String())
	}
	var rendered RenderPreviewResponse
	_ = json.Unmarshal(resp.Data, &rendered)
	want := filepath.Join(env.store.Home(), "exports", "preview.json")
	if rendered.Path != want {
		t.Fatalf("expected %s, got %s", want, rendered.Path)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("preview not written: %v", err)
	}

	w, resp = env.do(t, http.MethodPost, base+"/render", `{"destination":"../escape.json"}`)
	if w.Code != http.StatusBadRequest || resp.Error.Code != ErrorDestination {
		t.Fatalf("escaping destination should be rejected, got %d", w.Code)
	}
}

func TestRenderPreviewRejectsProjectFiles(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)
	sibling := env.createProject(t)
	base := "/api/projects/" + project.ProjectID

	for _, dest := range []string{sibling.ProjectID + ".json", "notes.json", "./" + project.ProjectID + ".json"} {
		w, resp := env.do(t, http.MethodPost, base+"/render", `{"destination":"`+dest+`"}`)
		if w.Code != http.StatusBadRequest || resp.Error.Code != ErrorDestination {
			t.Fatalf("destination %s should be rejected, got %d %s", dest, w.Code, w.Body.String())
		}
	}

	if _, err := env.store.Load(sibling.ProjectID); err != nil {
		t.Fatalf("sibling project should still load: %v", err)
	}
	w, _ := env.do(t, http.MethodGet, "/api/projects", "")
	if w.Code != http.StatusOK {
		t.Fatalf("listing should still work, got %d %s", w.Code, w.Body.String())
	}

	// a sibling's preview file is not project state
	w, _ = env.do(t, http.MethodPost, base+"/render", `{"destination":"`+sibling.ProjectID+`_preview.json"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("preview-named destination should be accepted, got %d %s", w.Code, w.Body.String())
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)
	w, resp := env.do(t, http.MethodGet, "/api/nothing-here", "")
	if w.Code != http.StatusNotFound || resp.Error.Code != ErrorNotFound {
		t.Fatalf("expected 404 NOT_FOUND, got %d %s", w.Code, w.Body.String())
	}
}

func TestPanicRecovery(t *testing.T) {
	env := newTestEnv(t)
	env.router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w, resp := env.do(t, http.MethodGet, "/panic", "")
	if w.Code != http.StatusInternalServerError || resp.Error.Code != ErrorInternalError {
		t.Fatalf("expected 500 INTERNAL_ERROR, got %d %s", w.Code, w.Body.String())
	}
}

func TestExportProject(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)
	base := "/api/projects/" + project.ProjectID

	w, resp := env.do(t, http.MethodGet, base+"/export?format=html", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export failed: %d %s", w.Code, w.Body.String())
	}
	var result models.ExportResult
	_ = json.Unmarshal(resp.Data, &result)
	if result.Format != services.FormatHTML || !strings.HasPrefix(result.FilePath, filepath.Join(env.store.Home(), "exports")) {
		t.Fatalf("unexpected export %+v", result)
	}

	w, resp = env.do(t, http.MethodGet, base+"/export?format=pdf", "")
	if w.Code != http.StatusBadRequest || resp.Error.Code != ErrorBadRequest {
		t.Fatalf("unsupported format should be rejected, got %d", w.Code)
	}
}

func TestListProjects(t *testing.T) {
	env := newTestEnv(t)

	w, resp := env.do(t, http.MethodGet, "/api/projects", "")
	if w.Code != http.StatusOK || string(resp.Data) != "[]" {
		t.Fatalf("expected empty list, got %d %s", w.Code, resp.Data)
	}

	first := env.createProject(t)
	second := env.createProject(t)

	_, resp = env.do(t, http.MethodGet, "/api/projects", "")
	var projects []models.Project
	_ = json.Unmarshal(resp.Data, &projects)
	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	ids := map[string]bool{projects[0].ProjectID: true, projects[1].ProjectID: true}
	if !ids[first.ProjectID] || !ids[second.ProjectID] {
		t.Fatalf("unexpected ids %v", ids)
	}
	if projects[0].ProjectID > projects[1].ProjectID {
		t.Fatal("projects should be ordered by id")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.createProject(t)

	w, resp := env.do(t, http.MethodGet, "/api/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics failed: %d", w.Code)
	}
	if !strings.Contains(string(resp.Data), "pipeline_stage_created") {
		t.Fatalf("metrics should include stage counters: %s", resp.Data)
	}
	if env.handler.Metrics.Collector().GetCounterValue("api_responses_2xx") < 1 {
		t.Fatal("API responses should be counted")
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/projects", nil))
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	for i := 0; i < 2; i++ {
		if ok, _, _ := limiter.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if ok, remaining, _ := limiter.Allow("1.2.3.4"); ok || remaining != 0 {
		t.Fatal("third request should be rejected")
	}
	if ok, _, _ := limiter.Allow("5.6.7.8"); !ok {
		t.Fatal("other clients have their own budget")
	}
}

func TestProjectWebSocketStreamsEvents(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t)

	server := httptest.NewServer(env.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/projects/" + project.ProjectID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var welcome map[string]interface{}
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome["type"] != "connected" || welcome["project_id"] != project.ProjectID {
		t.Fatalf("unexpected welcome %v", welcome)
	}

	resp, err := http.Post(server.URL+"/api/projects/"+project.ProjectID+"/script", "application/json", nil)
	if err != nil {
		t.Fatalf("script request failed: %v", err)
	}
	resp.Body.Close()

	var event services.LifecycleEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "script.generated" || event.ProjectID != project.ProjectID {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestProjectWebSocketUnknownProject(t *testing.T) {
	env := newTestEnv(t)
	w, _ := env.do(t, http.MethodGet, "/ws/projects/abcdefabcdef", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
