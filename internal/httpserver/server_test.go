package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tinytelemetry/hunters-journal/internal/catalog"
	"github.com/tinytelemetry/hunters-journal/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	enemies []model.Enemy
	listErr error
	opened  []string
	openErr error
	sent    int
}

func (f *fakeService) ListEnemies(context.Context) ([]model.Enemy, error) {
	return f.enemies, f.listErr
}

func (f *fakeService) GetEnemy(_ context.Context, slug string) (model.Enemy, error) {
	if f.listErr != nil {
		return model.Enemy{}, f.listErr
	}
	if e, ok := model.Find(f.enemies, slug); ok {
		return e, nil
	}
	return model.Enemy{}, fmt.Errorf("%w: %s", catalog.ErrNotFound, slug)
}

func (f *fakeService) SendNotification(context.Context) (model.Enemy, bool) {
	if len(f.enemies) == 0 {
		return model.Enemy{}, false
	}
	f.sent++
	return f.enemies[0], true
}

func (f *fakeService) StartPeriodicNotifications() bool { return true }

func (f *fakeService) Activate(context.Context, model.Permission) (model.TriggerMode, error) {
	return model.TriggerInterval, nil
}

func (f *fakeService) PeriodicSync(context.Context, string) bool { return true }

func (f *fakeService) Status() model.SchedulerStatus {
	return model.SchedulerStatus{Mode: model.TriggerInterval, FallbackRunning: true}
}

func (f *fakeService) AttachView(string) string                  { return "v" }
func (f *fakeService) PollView(string) (model.ViewCommand, bool) { return model.ViewCommand{}, false }
func (f *fakeService) DetachView(string)                         {}

func (f *fakeService) OpenLink(url string) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakeService) RecentDeliveries(limit int) ([]model.DeliveryRecord, error) {
	return nil, nil
}

func newTestServer(t *testing.T, svc *fakeService) *gin.Engine {
	t.Helper()
	srv := NewServer("", svc, zap.NewNop())
	srv.startTime = time.Now()
	return srv.routes()
}

func do(r *gin.Engine, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestServer(t, &fakeService{})

	w := do(r, http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
	sched, ok := body["scheduler"].(map[string]interface{})
	if !ok || sched["mode"] != "interval" {
		t.Errorf("scheduler = %v", body["scheduler"])
	}
}

func TestHealthEndpoint_WrongMethod(t *testing.T) {
	r := newTestServer(t, &fakeService{})

	w := do(r, http.MethodPost, "/api/health")
	// Gin returns 405 for method not allowed when a route exists but not for this method
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("health POST status = %d, want 405 or 404", w.Code)
	}
}

func TestEnemiesEndpoint(t *testing.T) {
	r := newTestServer(t, &fakeService{enemies: []model.Enemy{
		{Slug: "lace", Name: "Lace"},
		{Slug: "savage-beastfly", Name: "Savage Beastfly"},
	}})

	w := do(r, http.MethodGet, "/api/enemies")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var got []model.Enemy
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 2 || got[1].Slug != "savage-beastfly" {
		t.Errorf("enemies = %+v", got)
	}
}

func TestEnemiesEndpoint_EmptyIsArray(t *testing.T) {
	r := newTestServer(t, &fakeService{})

	w := do(r, http.MethodGet, "/api/enemies")
	if w.Body.String() != "[]" {
		t.Errorf("body = %q, want []", w.Body.String())
	}
}

func TestEnemiesEndpoint_UpstreamFailure(t *testing.T) {
	r := newTestServer(t, &fakeService{listErr: errors.New("boom")})

	w := do(r, http.MethodGet, "/api/enemies")
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

func TestEnemyEndpoint(t *testing.T) {
	r := newTestServer(t, &fakeService{enemies: []model.Enemy{{Slug: "lace", Name: "Lace"}}})

	w := do(r, http.MethodGet, "/api/enemies/lace")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	w = do(r, http.MethodGet, "/api/enemies/nobody")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing enemy status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestDeliveriesEndpoint_BadLimit(t *testing.T) {
	r := newTestServer(t, &fakeService{})

	for _, q := range []string{"abc", "0", "-3"} {
		w := do(r, http.MethodGet, "/api/notifications?limit="+q)
		if w.Code != http.StatusBadRequest {
			t.Errorf("limit=%s status = %d, want 400", q, w.Code)
		}
	}

	w := do(r, http.MethodGet, "/api/notifications")
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("default list = %d %q", w.Code, w.Body.String())
	}
}

func TestSendEndpoint(t *testing.T) {
	svc := &fakeService{enemies: []model.Enemy{{Slug: "lace"}}}
	r := newTestServer(t, svc)

	w := do(r, http.MethodPost, "/api/notifications/send")
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["delivered"] != true || body["slug"] != "lace" {
		t.Errorf("body = %v", body)
	}
	if svc.sent != 1 {
		t.Errorf("sent = %d, want 1", svc.sent)
	}
}

func TestOpenEndpoint(t *testing.T) {
	svc := &fakeService{}
	r := newTestServer(t, svc)

	w := do(r, http.MethodGet, "/open?enemy=lace")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	w = do(r, http.MethodGet, "/open")
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if len(svc.opened) != 2 || svc.opened[0] != model.DeepLink("lace") || svc.opened[1] != "/" {
		t.Errorf("opened = %v", svc.opened)
	}
}

func TestOpenEndpoint_NoView(t *testing.T) {
	r := newTestServer(t, &fakeService{openErr: errors.New("no view")})

	w := do(r, http.MethodGet, "/open?enemy=lace")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
