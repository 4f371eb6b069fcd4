package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestReadinessFollowsState(t *testing.T) {
	gin.SetMode(gin.TestMode)
	state := NewState()
	router := gin.New()
	router.GET("/healthz", Liveness)
	router.GET("/readyz", Readiness(state))

	get := func(path string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		router.ServeHTTP(w, req)
		return w.Code
	}

	if code := get("/healthz"); code != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", code)
	}
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before SetReady, got %d", code)
	}

	state.SetReady(true)
	if code := get("/readyz"); code != http.StatusOK {
		t.Fatalf("expected 200 when ready, got %d", code)
	}

	state.SetReady(false)
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after drain, got %d", code)
	}
}
