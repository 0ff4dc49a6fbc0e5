package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/pokebinder/backend/internal/catalog"
	"github.com/pokebinder/backend/internal/database"
	"github.com/pokebinder/backend/internal/models"
)

// fakeCatalog serves two expansions, one of them online-only, each with two
// cards.
func fakeCatalog(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sets":
			fmt.Fprint(w, `{"data":[
				{"id":"base1","name":"Base Set","releaseDate":"1999-01-09"},
				{"id":"fut20","name":"Futsal Collection","releaseDate":"2020-09-11"}
			],"totalCount":2}`)
		case "/cards":
			q := r.URL.Query().Get("q")
			if q == "set.id:base1" {
				fmt.Fprint(w, `{"data":[
					{"id":"base1-4","name":"Charizard","number":"4","set":{"id":"base1","name":"Base Set"}},
					{"id":"base1-58","name":"Pikachu","number":"58","set":{"id":"base1","name":"Base Set"}}
				],"totalCount":2}`)
				return
			}
			fmt.Fprint(w, `{"data":[],"totalCount":0}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestRunner(t *testing.T, catalogURL string) *Runner {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	client := catalog.NewClient(catalog.Config{BaseURL: catalogURL}, logger)
	return NewRunner(client, db, logger)
}

func TestRunMirrorsCatalog(t *testing.T) {
	server := fakeCatalog(t)
	defer server.Close()
	r := newTestRunner(t, server.URL)

	summary, err := r.Run(context.Background(), Options{PageSize: 250})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.SetsSeen != 2 {
		t.Errorf("SetsSeen = %d, want 2", summary.SetsSeen)
	}
	if summary.SetsUpserted != 1 || summary.SetsSkipped != 1 {
		t.Errorf("expected 1 ingested and 1 skipped expansion, got %d/%d", summary.SetsUpserted, summary.SetsSkipped)
	}
	if summary.CardsUpserted != 2 {
		t.Errorf("CardsUpserted = %d, want 2", summary.CardsUpserted)
	}
	if !summary.Complete {
		t.Error("uncapped run should report Complete")
	}

	var cards []models.Card
	if err := r.db.Find(&cards).Error; err != nil {
		t.Fatalf("failed to read cards: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("expected 2 card rows, got %d", len(cards))
	}

	var expansions []models.Expansion
	if err := r.db.Find(&expansions).Error; err != nil {
		t.Fatalf("failed to read expansions: %v", err)
	}
	if len(expansions) != 1 || expansions[0].ID != "base1" {
		t.Errorf("expected only base1 mirrored, got %+v", expansions)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	server := fakeCatalog(t)
	defer server.Close()
	r := newTestRunner(t, server.URL)

	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := r.Run(context.Background(), Options{}); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	var count int64
	r.db.Model(&models.Card{}).Count(&count)
	if count != 2 {
		t.Errorf("re-run duplicated rows: %d", count)
	}
}

func TestRunDryRunWritesNothing(t *testing.T) {
	server := fakeCatalog(t)
	defer server.Close()
	r := newTestRunner(t, server.URL)

	summary, err := r.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.CardsUpserted != 2 {
		t.Errorf("dry run should still count cards, got %d", summary.CardsUpserted)
	}

	var count int64
	r.db.Model(&models.Card{}).Count(&count)
	if count != 0 {
		t.Errorf("dry run wrote %d rows", count)
	}
}

func TestRunMaxSetsCap(t *testing.T) {
	server := fakeCatalog(t)
	defer server.Close()
	r := newTestRunner(t, server.URL)

	summary, err := r.Run(context.Background(), Options{MaxSets: 1})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.SetsUpserted != 1 {
		t.Errorf("SetsUpserted = %d, want 1", summary.SetsUpserted)
	}
	if summary.Complete {
		t.Error("capped run should not report Complete")
	}
}

func TestRunUnknownStartSet(t *testing.T) {
	server := fakeCatalog(t)
	defer server.Close()
	r := newTestRunner(t, server.URL)

	_, err := r.Run(context.Background(), Options{StartSet: "does-not-exist"})
	if err == nil {
		t.Fatal("expected error for unknown start set")
	}
}
