package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/app-catalog/internal/platform/auth"
	"github.com/example/app-catalog/internal/platform/httpserver"
	"github.com/example/app-catalog/services/catalog/internal/rating"
	"github.com/example/app-catalog/services/catalog/internal/store"
	"github.com/example/app-catalog/services/catalog/internal/votes"
)

// setupReq builds a request with chi URL params and the device id in context.
func setupReq(method, url string, body string, params map[string]string, deviceID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if deviceID != "" {
		ctx = WithDeviceID(ctx, deviceID)
	}
	return req.WithContext(ctx)
}

// failingStore fails every write but serves reads from the embedded store.
type failingStore struct {
	*store.InMemoryStore
}

var errDown = errors.New("db down")

func (failingStore) CommitReview(context.Context, string, store.Review, func(rating.Aggregate) (rating.Aggregate, error)) (rating.Aggregate, error) {
	return rating.Aggregate{}, errDown
}

func (failingStore) IncrementLikes(context.Context, string) error { return errDown }

func newTestDeps(t *testing.T) (Deps, *store.InMemoryStore, store.App) {
	t.Helper()
	st := store.NewInMemoryStore()
	app, err := st.Create(context.Background(), store.App{
		Slug:        "notes",
		Name:        "Notes",
		Category:    "tools",
		Description: "Offline notes",
		Likes:       10,
		Downloads:   42,
		Links:       store.DownloadLinks{APK: "https://cdn.example.com/notes.apk"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewDeps(st, votes.NewMemoryStorage(), nil, nil), st, app
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (%s)", err, rr.Body.String())
	}
	return v
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func TestListApps(t *testing.T) {
	d, st, _ := newTestDeps(t)
	if _, err := st.Create(context.Background(), store.App{Slug: "chess", Name: "Chess", Category: "games"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rr := httptest.NewRecorder()
	ListApps(d).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/apps?category=tools&q=OFFLINE", "", nil, "dev-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[listAppsResponse](t, rr)
	if len(resp.Items) != 1 || resp.Items[0].Slug != "notes" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}
	if resp.Items[0].Downloads != 42 || resp.Items[0].RatingLabel != "0.0" {
		t.Fatalf("unexpected card: %+v", resp.Items[0])
	}
}

func TestGetApp(t *testing.T) {
	d, _, app := newTestDeps(t)

	rr := httptest.NewRecorder()
	GetApp(d).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/apps/notes", "", map[string]string{"slug": "notes"}, "dev-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[appDetailResponse](t, rr)
	if resp.ID != app.ID || resp.Liked || resp.Downloads != 42 {
		t.Fatalf("unexpected detail: %+v", resp)
	}
	if resp.Rating.Stars.Empty != 5 {
		t.Fatalf("expected empty star row, got %+v", resp.Rating.Stars)
	}
}

func TestGetApp_NotFound(t *testing.T) {
	d, _, _ := newTestDeps(t)
	rr := httptest.NewRecorder()
	GetApp(d).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/apps/nope", "", map[string]string{"slug": "nope"}, "dev-1"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPostReview(t *testing.T) {
	d, st, app := newTestDeps(t)

	rr := httptest.NewRecorder()
	req := setupReq(http.MethodPost, "/v1/apps/notes/reviews", `{"stars":4,"comment":"solid and fast"}`,
		map[string]string{"slug": "notes"}, "dev-1")
	PostReview(d).ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[postReviewResponse](t, rr)
	if resp.Rating.Count != 1 || resp.Rating.Label != "4.0" || resp.Review.Comment != "solid and fast" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	stored, _ := st.GetByID(context.Background(), app.ID)
	if stored.Aggregate.Count != 1 || stored.Aggregate.Histogram.Get(4) != 1 {
		t.Fatalf("unexpected stored aggregate: %+v", stored.Aggregate)
	}

	rr = httptest.NewRecorder()
	ListReviews(d).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/apps/notes/reviews", "", map[string]string{"slug": "notes"}, "dev-1"))
	feed := decode[listReviewsResponse](t, rr)
	if len(feed.Items) != 1 || feed.Items[0].AuthorTag != store.AnonymousAuthor {
		t.Fatalf("unexpected feed: %+v", feed.Items)
	}
}

func TestPostReview_Validation(t *testing.T) {
	d, st, app := newTestDeps(t)

	rr := httptest.NewRecorder()
	req := setupReq(http.MethodPost, "/v1/apps/notes/reviews", `{"stars":5,"comment":"ok"}`,
		map[string]string{"slug": "notes"}, "dev-1")
	PostReview(d).ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	body := decode[errorBody](t, rr)
	if body.Error.Code != "VALIDATION_FAILED" || body.Error.Message != "comment too short" {
		t.Fatalf("unexpected error: %+v", body.Error)
	}
	if body.Error.Details["field"] != "comment" {
		t.Fatalf("expected field detail, got %v", body.Error.Details)
	}
	stored, _ := st.GetByID(context.Background(), app.ID)
	if stored.Aggregate.Count != 0 {
		t.Fatalf("aggregate changed: %+v", stored.Aggregate)
	}
}

func TestPostReview_InvalidJSON(t *testing.T) {
	d, _, _ := newTestDeps(t)
	rr := httptest.NewRecorder()
	PostReview(d).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/apps/notes/reviews", `{"stars":`,
		map[string]string{"slug": "notes"}, "dev-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestPostReview_PersistenceFailureEchoesDraft(t *testing.T) {
	_, st, _ := newTestDeps(t)
	d := NewDeps(failingStore{st}, votes.NewMemoryStorage(), nil, nil)

	rr := httptest.NewRecorder()
	PostReview(d).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/apps/notes/reviews", `{"stars":2,"comment":"keeps crashing"}`,
		map[string]string{"slug": "notes"}, "dev-1"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	body := decode[errorBody](t, rr)
	if body.Error.Code != "PERSISTENCE_FAILED" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if body.Error.Details["comment"] != "keeps crashing" || body.Error.Details["stars"] != float64(2) {
		t.Fatalf("expected draft echoed, got %v", body.Error.Details)
	}
}

func TestPostLike(t *testing.T) {
	d, _, _ := newTestDeps(t)
	req := func() *http.Request {
		return setupReq(http.MethodPost, "/v1/apps/notes/like", "", map[string]string{"slug": "notes"}, "dev-1")
	}

	rr := httptest.NewRecorder()
	PostLike(d).ServeHTTP(rr, req())
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp := decode[likeResponse](t, rr); resp.Likes != 11 {
		t.Fatalf("expected 11 likes, got %d", resp.Likes)
	}

	rr = httptest.NewRecorder()
	PostLike(d).ServeHTTP(rr, req())
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}

	// another device may still like
	rr = httptest.NewRecorder()
	PostLike(d).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/apps/notes/like", "", map[string]string{"slug": "notes"}, "dev-2"))
	if resp := decode[likeResponse](t, rr); resp.Likes != 12 {
		t.Fatalf("expected 12 likes, got %d", resp.Likes)
	}

	rr = httptest.NewRecorder()
	GetApp(d).ServeHTTP(rr, setupReq(http.MethodGet, "/v1/apps/notes", "", map[string]string{"slug": "notes"}, "dev-1"))
	if resp := decode[appDetailResponse](t, rr); !resp.Liked || resp.Likes != 12 {
		t.Fatalf("expected liked detail with 12 likes, got liked=%v likes=%d", resp.Liked, resp.Likes)
	}
}

func TestPostLike_Failure(t *testing.T) {
	_, st, _ := newTestDeps(t)
	d := NewDeps(failingStore{st}, votes.NewMemoryStorage(), nil, nil)
	rr := httptest.NewRecorder()
	PostLike(d).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/apps/notes/like", "", map[string]string{"slug": "notes"}, "dev-1"))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestPostDownload(t *testing.T) {
	d, st, _ := newTestDeps(t)

	rr := httptest.NewRecorder()
	PostDownload(d).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/apps/notes/download", "", map[string]string{"slug": "notes"}, "dev-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[downloadResponse](t, rr)
	if resp.URL != "https://cdn.example.com/notes.apk" || resp.Downloads != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if _, err := st.Create(context.Background(), store.App{Slug: "store-only", Name: "Store only"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rr = httptest.NewRecorder()
	PostDownload(d).ServeHTTP(rr, setupReq(http.MethodPost, "/v1/apps/store-only/download", "", map[string]string{"slug": "store-only"}, "dev-1"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if body := decode[errorBody](t, rr); body.Error.Code != "NO_DOWNLOAD" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
}

func TestDeviceID_Header(t *testing.T) {
	var got string
	h := DeviceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = DeviceIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceHeader, "  phone-1 ")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got != "phone-1" || rr.Header().Get(DeviceHeader) != "phone-1" {
		t.Fatalf("expected phone-1, got ctx=%q header=%q", got, rr.Header().Get(DeviceHeader))
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatal("expected no cookie for known device")
	}
}

func TestDeviceID_Cookie(t *testing.T) {
	var got string
	h := DeviceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = DeviceIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "browser-7"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "browser-7" {
		t.Fatalf("expected browser-7, got %q", got)
	}
}

func TestDeviceID_Assigned(t *testing.T) {
	var got string
	h := DeviceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = DeviceIDFromContext(r.Context())
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got == "" {
		t.Fatal("expected generated device id")
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DeviceCookie || cookies[0].Value != got {
		t.Fatalf("expected device cookie %q, got %+v", got, cookies)
	}
}

func TestMount_AdminRepair(t *testing.T) {
	d, st, _ := newTestDeps(t)
	legacy, err := st.Create(context.Background(), store.App{
		Slug:      "legacy",
		Name:      "Legacy",
		Aggregate: rating.Aggregate{Average: 4.5, Count: 8},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	verifier := auth.JWTVerifier{Secret: []byte("test-secret-key-32-bytes-long!!!")}
	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{DisableMetrics: true})
	Mount(r, d, verifier)

	// no token
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/admin/apps/legacy/repair-histogram", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	// non-admin token
	userTok, _ := verifier.Sign("someone", "user", time.Minute)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/apps/legacy/repair-histogram", nil)
	req.Header.Set("Authorization", "Bearer "+userTok)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	adminTok, _ := verifier.Sign("ops", auth.RoleAdmin, time.Minute)
	req = httptest.NewRequest(http.MethodPost, "/v1/admin/apps/legacy/repair-histogram", nil)
	req.Header.Set("Authorization", "Bearer "+adminTok)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	resp := decode[repairResponse](t, rr)
	if !resp.Repaired || resp.Aggregate.Histogram.Get(5) != 8 {
		t.Fatalf("unexpected repair: %+v", resp)
	}
	stored, _ := st.GetByID(context.Background(), legacy.ID)
	if stored.Aggregate.Histogram.Get(5) != 8 {
		t.Fatalf("repair not persisted: %+v", stored.Aggregate)
	}
}

func TestMount_PublicRoutesAssignDevice(t *testing.T) {
	d, _, _ := newTestDeps(t)
	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{DisableMetrics: true})
	Mount(r, d, auth.JWTVerifier{Secret: []byte("x")})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/apps/notes/like", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	device := rr.Header().Get(DeviceHeader)
	if device == "" {
		t.Fatal("expected device header")
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/apps/notes/like", nil)
	req.Header.Set(DeviceHeader, device)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for same device, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "ALREADY_LIKED") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
