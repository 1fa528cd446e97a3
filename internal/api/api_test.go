package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/tokodata/internal/cache"
	"github.com/starford/tokodata/internal/canon"
	"github.com/starford/tokodata/internal/datasvc"
	"github.com/starford/tokodata/internal/models"
	"github.com/starford/tokodata/internal/testutil"
)

type recordedMutation struct {
	table, action string
}

type stubMutator struct {
	calls []recordedMutation
	err   error
}

func (m *stubMutator) Mutate(_ context.Context, table, action string, _ models.Record) (models.Record, error) {
	m.calls = append(m.calls, recordedMutation{table: table, action: action})
	if m.err != nil {
		return nil, m.err
	}
	return models.Record{"status": "ok"}, nil
}

func sampleTables() map[string]models.Collection {
	return map[string]models.Collection{
		"pelanggan": {{"ID": "1"}},
		"barang":    {{"KODE": "BRG_1", "HARGA": 1000}},
		"penjualan": {{"ID_NOTA": "NOTA_1", "TGL": "2024-03-05"}},
		"item_penjualan": {
			{"NOTA": "NOTA_1", "KODE": "BRG_1", "QTY": 2},
		},
	}
}

// testEnv builds a service over an in-memory source and a router.
// authToken == "" means auth disabled.
func testEnv(t *testing.T, src *testutil.StaticSource, mut datasvc.Mutator, authToken string) http.Handler {
	t.Helper()
	store := cache.New(cache.Config{Source: src, TTL: time.Hour})
	svc := datasvc.NewService(datasvc.Config{
		Store:   store,
		Mutator: mut,
		Dates:   canon.DefaultDateOptions(),
	})
	return NewRouter(svc, authToken != "", authToken, nil)
}

func TestGetCollection(t *testing.T) {
	src := testutil.NewStaticSource(sampleTables())
	router := testEnv(t, src, nil, "")

	req := httptest.NewRequest(http.MethodGet, "/collections/barang", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get = %d, body = %s", w.Code, w.Body.String())
	}

	var resp CollectionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
	if resp.FromCache {
		t.Error("first read should not come from cache")
	}

	// Second read is a cache hit.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/barang", nil))
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.FromCache {
		t.Error("second read should come from cache")
	}
}

func TestGetCollection_RefreshBypassesCache(t *testing.T) {
	src := testutil.NewStaticSource(sampleTables())
	router := testEnv(t, src, nil, "")

	for _, url := range []string{"/collections/barang", "/collections/barang?refresh=1"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s = %d", url, w.Code)
		}
	}
	if src.Calls("barang") != 2 {
		t.Errorf("source calls = %d, want 2", src.Calls("barang"))
	}
}

func TestGetCollection_Unknown(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(nil), nil, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/users", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown collection = %d, want 404", w.Code)
	}
}

func TestGetCollection_SourceDownStillAnswers(t *testing.T) {
	src := testutil.NewStaticSource(nil)
	src.SetErr(context.DeadlineExceeded)
	router := testEnv(t, src, nil, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/penjualan", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("degraded read = %d, want 200", w.Code)
	}

	var resp CollectionResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Warning == "" {
		t.Error("degraded read must carry a warning")
	}
	if len(resp.Records) != 0 {
		t.Errorf("records = %d, want 0", len(resp.Records))
	}
}

func TestCreateRecord(t *testing.T) {
	mut := &stubMutator{}
	src := testutil.NewStaticSource(sampleTables())
	router := testEnv(t, src, mut, "")

	body, _ := json.Marshal(MutateRequest{Record: models.Record{"KODE": "BRG_2"}})
	req := httptest.NewRequest(http.MethodPost, "/collections/barang/records", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create = %d, body = %s", w.Code, w.Body.String())
	}
	if len(mut.calls) != 1 || mut.calls[0].action != "create" {
		t.Errorf("mutator calls = %v", mut.calls)
	}
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	mut := &stubMutator{}
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), mut, "")

	body, _ := json.Marshal(MutateRequest{Record: models.Record{"ID": "1"}})

	req := httptest.NewRequest(http.MethodPut, "/collections/pelanggan/records", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update = %d", w.Code)
	}

	body, _ = json.Marshal(MutateRequest{Record: models.Record{"ID": "1"}})
	req = httptest.NewRequest(http.MethodDelete, "/collections/pelanggan/records", bytes.NewReader(body))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d", w.Code)
	}

	if len(mut.calls) != 2 || mut.calls[0].action != "update" || mut.calls[1].action != "delete" {
		t.Errorf("mutator calls = %v", mut.calls)
	}
}

func TestCreateRecord_ReadOnlySource(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), nil, "")

	body, _ := json.Marshal(MutateRequest{Record: models.Record{"KODE": "BRG_2"}})
	req := httptest.NewRequest(http.MethodPost, "/collections/barang/records", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("read-only create = %d, want 403", w.Code)
	}
}

func TestCreateRecord_EmptyBody(t *testing.T) {
	mut := &stubMutator{}
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), mut, "")

	req := httptest.NewRequest(http.MethodPost, "/collections/barang/records", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty record = %d, want 400", w.Code)
	}
	if len(mut.calls) != 0 {
		t.Error("mutator must not be called for an empty record")
	}
}

func TestCacheEndpoints(t *testing.T) {
	src := testutil.NewStaticSource(sampleTables())
	router := testEnv(t, src, nil, "")

	// Prefetch warms everything.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/cache/prefetch", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("prefetch = %d", w.Code)
	}
	var pre PrefetchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &pre)
	if len(pre.Collections) != 4 {
		t.Errorf("prefetched collections = %d, want 4", len(pre.Collections))
	}

	// Cache info lists the warmed entries.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cache", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("cache info = %d", w.Code)
	}
	var info CacheResponse
	_ = json.Unmarshal(w.Body.Bytes(), &info)
	if len(info.Entries) != 4 {
		t.Errorf("cache entries = %d, want 4", len(info.Entries))
	}

	// Invalidate one entry; next read hits the source again.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cache/barang", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("invalidate = %d", w.Code)
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/collections/barang", nil))
	if src.Calls("barang") != 2 {
		t.Errorf("source calls = %d, want 2", src.Calls("barang"))
	}
}

func TestInvalidateUnknownCollection(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(nil), nil, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cache/users", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("invalidate unknown = %d, want 404", w.Code)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), nil, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", w.Code)
	}
	var resp DashboardResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Orders != 1 || resp.Products != 1 {
		t.Errorf("counts = %+v", resp)
	}
	if resp.TotalRevenue != 2000 {
		t.Errorf("total revenue = %v, want 2000", resp.TotalRevenue)
	}
}

func TestRevenueEndpoint(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), nil, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/revenue", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("revenue = %d", w.Code)
	}
	var resp struct {
		TotalRevenue float64                   `json:"total_revenue"`
		PerOrder     map[string]map[string]any `json:"per_order"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.TotalRevenue != 2000 {
		t.Errorf("total revenue = %v, want 2000", resp.TotalRevenue)
	}
	if _, ok := resp.PerOrder["NOTA1"]; !ok {
		t.Errorf("per_order missing NOTA1: %v", resp.PerOrder)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), nil, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/collections/barang", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed get = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), nil, "secret123")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/collections/barang", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	router := testEnv(t, testutil.NewStaticSource(sampleTables()), nil, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/collections/barang", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

// SSE endpoint auth tests.

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()

	store := cache.New(cache.Config{Source: testutil.NewStaticSource(sampleTables()), TTL: time.Hour})
	svc := datasvc.NewService(datasvc.Config{Store: store, Dates: canon.DefaultDateOptions()})

	// Minimal SSE handler stub — writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	return NewRouter(svc, authEnabled, token, sseHandler)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
