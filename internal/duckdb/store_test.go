package duckdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tinytelemetry/hunters-journal/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore(\"\") failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func putResponse(t *testing.T, store *Store, cache, url string, at time.Time) {
	t.Helper()
	err := store.PutResponse(Response{
		Cache:       cache,
		URL:         url,
		Hash:        "h-" + url,
		Body:        []byte(`[]`),
		ContentType: "application/json",
		FetchedAt:   at,
	})
	if err != nil {
		t.Fatalf("PutResponse(%s, %s): %v", cache, url, err)
	}
}

func TestNewStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "journal.duckdb")
	store, err := NewStore(path, 5*time.Second)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if store.Path() != path {
		t.Errorf("Path() = %q, want %q", store.Path(), path)
	}
	if store.QueryTimeout != 5*time.Second {
		t.Errorf("QueryTimeout = %v", store.QueryTimeout)
	}
}

func TestResponses_PutGetReplace(t *testing.T) {
	store := newTestStore(t)

	if _, ok, err := store.GetResponse("blob-json-cache", "https://x"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	putResponse(t, store, "blob-json-cache", "https://x", time.Now().Add(-time.Minute))
	err := store.PutResponse(Response{Cache: "blob-json-cache", URL: "https://x", Hash: "second", Body: []byte(`[1]`)})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, ok, err := store.GetResponse("blob-json-cache", "https://x")
	if err != nil || !ok {
		t.Fatalf("GetResponse: ok=%v err=%v", ok, err)
	}
	if got.Hash != "second" || string(got.Body) != "[1]" {
		t.Errorf("got %+v", got)
	}
	if n, _ := store.CountResponses("blob-json-cache"); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}

	if err := store.DeleteResponse("blob-json-cache", "https://x"); err != nil {
		t.Fatalf("DeleteResponse: %v", err)
	}
	if _, ok, _ := store.GetResponse("blob-json-cache", "https://x"); ok {
		t.Error("expected miss after delete")
	}
}

func TestResponses_CachesAreIsolated(t *testing.T) {
	store := newTestStore(t)
	putResponse(t, store, "a", "https://same", time.Now())
	putResponse(t, store, "b", "https://same", time.Now())

	hashes, err := store.ExpireResponses("a", time.Now().Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("ExpireResponses: %v", err)
	}
	if len(hashes) != 1 {
		t.Errorf("expired %d, want 1", len(hashes))
	}
	if _, ok, _ := store.GetResponse("b", "https://same"); !ok {
		t.Error("cache b should be untouched")
	}
}

func TestDeliveries_RecentOrder(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, slug := range []string{"a", "b", "c"} {
		rec := model.DeliveryRecord{Slug: slug, Tag: model.NotificationTag, Trigger: "interval", DeliveredAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.RecordDelivery(rec); err != nil {
			t.Fatalf("RecordDelivery: %v", err)
		}
	}

	recs, err := store.RecentDeliveries(2)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(recs) != 2 || recs[0].Slug != "c" || recs[1].Slug != "b" {
		t.Fatalf("got %+v", recs)
	}
	if !recs[0].DeliveredAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("DeliveredAt = %v", recs[0].DeliveredAt)
	}

	counts, err := store.TableRowCounts()
	if err != nil {
		t.Fatalf("TableRowCounts: %v", err)
	}
	if counts["notifications"] != 3 || counts["responses"] != 0 {
		t.Errorf("counts = %v", counts)
	}
}
