package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/binder"
	"github.com/pokebinder/backend/internal/cache"
	"github.com/pokebinder/backend/internal/catalog"
	"github.com/pokebinder/backend/internal/config"
	"github.com/pokebinder/backend/internal/database"
	"github.com/pokebinder/backend/internal/models"
	"github.com/pokebinder/backend/internal/search"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	resultCache, err := cache.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	t.Cleanup(func() { resultCache.Close() })

	cfg := config.Config{JWTSecret: string(testSecret)}
	client := catalog.NewClient(catalog.Config{BaseURL: "http://127.0.0.1:0"}, logger)
	searchService := search.NewService(client, resultCache, time.Minute, 24, logger)
	binderService := binder.NewService(db, logger)

	return SetupRouter(cfg, searchService, binderService, logger)
}

func doJSON(t *testing.T, router *gin.Engine, method, url, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestBinderRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/binders", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSearchRoutesArePublic(t *testing.T) {
	router := newTestRouter(t)

	// Short query resolves locally, so no catalog is needed.
	w := doJSON(t, router, http.MethodGet, "/api/cards/search?q=p&mode=query", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestBinderLifecycle(t *testing.T) {
	router := newTestRouter(t)
	token := mintToken(t, testSecret, "user-1")

	w := doJSON(t, router, http.MethodPost, "/api/binders", token, gin.H{"name": "My Binder"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body: %s", w.Code, w.Body.String())
	}
	var created struct {
		Binder models.Binder       `json:"binder"`
		Pages  []models.BinderPage `json:"pages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	if len(created.Pages) != models.StarterPageCount {
		t.Errorf("expected %d starter pages, got %d", models.StarterPageCount, len(created.Pages))
	}
	binderID := created.Binder.ID

	// Another user cannot see it.
	otherToken := mintToken(t, testSecret, "user-2")
	w = doJSON(t, router, http.MethodGet, "/api/binders/"+binderID, otherToken, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("foreign user status = %d, want 404", w.Code)
	}

	// Place two cards.
	w = doJSON(t, router, http.MethodPost, "/api/binders/"+binderID+"/cards", token, gin.H{
		"cards": []gin.H{{"id": "sv1-25", "name": "Pikachu"}, {"id": "sv1-4", "name": "Charmander"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("place status = %d, body: %s", w.Code, w.Body.String())
	}
	var placement models.PlacementResponse
	if err := json.Unmarshal(w.Body.Bytes(), &placement); err != nil {
		t.Fatalf("failed to decode placement: %v", err)
	}
	if placement.AddedCount != 2 {
		t.Errorf("addedCount = %d, want 2", placement.AddedCount)
	}

	// Shrinking to 2x2 stays legal here (cards sit in the first two slots).
	w = doJSON(t, router, http.MethodPut, "/api/binders/"+binderID+"/settings", token, gin.H{"layout": "2x2"})
	if w.Code != http.StatusOK {
		t.Fatalf("settings status = %d, body: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodDelete, "/api/binders/"+binderID, token, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", w.Code)
	}
}

func TestActiveGoalLimitEnforcedAtBoundary(t *testing.T) {
	router := newTestRouter(t)
	token := mintToken(t, testSecret, "user-1")

	w := doJSON(t, router, http.MethodPost, "/api/binders", token, gin.H{"name": "Goals"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	var created struct {
		Binder models.Binder `json:"binder"`
	}
	json.Unmarshal(w.Body.Bytes(), &created)
	goalsURL := "/api/binders/" + created.Binder.ID + "/goals"

	for i := 0; i < models.MaxActiveGoals; i++ {
		w = doJSON(t, router, http.MethodPost, goalsURL, token, gin.H{"text": fmt.Sprintf("goal %d", i)})
		if w.Code != http.StatusCreated {
			t.Fatalf("goal %d status = %d, body: %s", i, w.Code, w.Body.String())
		}
	}

	w = doJSON(t, router, http.MethodPost, goalsURL, token, gin.H{"text": "one too many"})
	if w.Code != http.StatusConflict {
		t.Errorf("over-limit status = %d, want 409", w.Code)
	}

	// Completing one goal frees a slot.
	var goal models.BinderGoal
	w = doJSON(t, router, http.MethodPost, goalsURL, token, gin.H{"text": "probe"})
	if w.Code == http.StatusCreated {
		t.Fatal("probe should still be blocked")
	}

	w = doJSON(t, router, http.MethodGet, "/api/binders/"+created.Binder.ID, token, nil)
	var loaded struct {
		Binder models.Binder `json:"binder"`
	}
	json.Unmarshal(w.Body.Bytes(), &loaded)
	goal = loaded.Binder.Goals[0]

	w = doJSON(t, router, http.MethodPost, goalsURL+"/"+goal.ID+"/complete", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body: %s", w.Code, w.Body.String())
	}
	w = doJSON(t, router, http.MethodPost, goalsURL, token, gin.H{"text": "after completion"})
	if w.Code != http.StatusCreated {
		t.Errorf("post-completion status = %d, want 201", w.Code)
	}
}
