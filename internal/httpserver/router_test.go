package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campusmarket/internal/contentfilter"
	"campusmarket/internal/domain"
	"campusmarket/internal/httpserver"
	"campusmarket/internal/security"
	"campusmarket/internal/service"
	"campusmarket/internal/storage"
	"campusmarket/internal/store"
	"campusmarket/internal/validation"
)

// captureMailer records the last sign-in link instead of sending it.
type captureMailer struct {
	mu   sync.Mutex
	link string
}

func (m *captureMailer) SendSignInLink(_ context.Context, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.link = link
	return nil
}

type testServer struct {
	handler http.Handler
	repos   *store.Repositories
	tokens  *security.TokenService
	mail    *captureMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	db, err := store.Open(store.DriverSQLite, "file:"+filepath.Join(dir, "http.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repos, err := store.New(store.DriverSQLite, db)
	require.NoError(t, err)

	var key fernet.Key
	require.NoError(t, key.Generate())
	links, err := security.NewLinkSigner(key.Encode(), time.Hour)
	require.NoError(t, err)
	tokens := security.NewTokenService("test-secret", time.Hour)
	enc, err := security.NewEncryptor([]byte("test-encryption-key"))
	require.NoError(t, err)
	local, err := storage.NewLocalStore(filepath.Join(dir, "uploads"), "http://localhost/api/uploads")
	require.NoError(t, err)

	log := zap.NewNop()
	v := validation.New()
	mail := &captureMailer{}

	h := httpserver.NewRouter(httpserver.Deps{
		Log:         log,
		Auth:        service.NewAuthService(repos.Users, tokens, links, mail, v, log, "http://localhost/api/auth/callback"),
		Listings:    service.NewListingService(repos.Listings, v, contentfilter.New(), log),
		Threads:     service.NewThreadService(repos.Threads, repos.Messages, repos.Listings, repos.Users, enc, v, log),
		Favorites:   service.NewFavoriteService(repos.Favorites, repos.Listings, v),
		Reports:     service.NewReportService(repos.Reports, repos.Listings, repos.Users, v, log),
		Users:       service.NewUserService(repos.Users, v, log),
		Images:      local,
		LocalImages: local,
		Metrics:     httpserver.NewMetrics(),
		CORSOrigins: []string{"http://localhost:3000"},
		Version:     "test",
	})
	return &testServer{handler: h, repos: repos, tokens: tokens, mail: mail}
}

// user stores a user and returns a bearer token for it.
func (s *testServer) user(t *testing.T, id string, role domain.Role) string {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.repos.Users.Create(context.Background(), &domain.User{
		ID: id, Email: id + "@campus.edu", Role: role, CreatedAt: now, UpdatedAt: now,
	}))
	tok, err := s.tokens.CreateForUser(id)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type errorResponse struct {
	Error struct {
		Kind    string            `json:"kind"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func deskInput() map[string]any {
	return map[string]any{
		"title":       "IKEA Desk",
		"description": "Sturdy desk, minor scratches.",
		"price":       75,
		"category":    "Furniture",
		"condition":   "GOOD",
		"location":    "ON_CAMPUS",
		"images":      []string{"https://img.example.com/desk.jpg"},
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `campusmarket_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/listings", "", deskInput())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication", decode[errorResponse](t, rec).Error.Kind)

	rec = s.do(t, http.MethodGet, "/api/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Optional auth still rejects a bad token that was presented.
	rec = s.do(t, http.MethodGet, "/api/listings", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/listings", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignInFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/email", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error.Fields, "email")

	rec = s.do(t, http.MethodPost, "/api/auth/email", "", map[string]string{"email": " Jane@Campus.edu "})
	require.Equal(t, http.StatusAccepted, rec.Code)

	link, err := url.Parse(s.mail.link)
	require.NoError(t, err)
	rec = s.do(t, http.MethodGet, "/api/auth/callback?token="+url.QueryEscape(link.Query().Get("token")), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decode[service.TokenResponse](t, rec)
	assert.Equal(t, "jane@campus.edu", tok.User.Email)

	rec = s.do(t, http.MethodGet, "/api/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tok.User.ID, decode[domain.User](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/auth/callback?token=forged", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListingEndpoints(t *testing.T) {
	s := newTestServer(t)
	seller := s.user(t, "seller", domain.RoleMember)
	other := s.user(t, "other", domain.RoleMember)

	rec := s.do(t, http.MethodPost, "/api/listings", seller, deskInput())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	desk := decode[domain.Listing](t, rec)
	assert.Equal(t, domain.StatusActive, desk.Status)

	t.Run("Search", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/listings?minPrice=50&maxPrice=100&category=Furniture", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := decode[domain.ListingPage](t, rec)
		require.Equal(t, 1, page.Total)
		assert.Equal(t, desk.ID, page.Listings[0].ID)

		rec = s.do(t, http.MethodGet, "/api/listings?maxPrice=50", "", nil)
		assert.Zero(t, decode[domain.ListingPage](t, rec).Total)

		rec = s.do(t, http.MethodGet, "/api/listings?maxPrice=cheap&page=zero", "", nil)
		page = decode[domain.ListingPage](t, rec)
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, 1, page.Page)
	})

	t.Run("Validation", func(t *testing.T) {
		in := deskInput()
		in["title"] = "ab"
		in["price"] = -1
		rec := s.do(t, http.MethodPost, "/api/listings", seller, in)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		fields := decode[errorResponse](t, rec).Error.Fields
		assert.Contains(t, fields, "title")
		assert.Contains(t, fields, "price")

		req := httptest.NewRequest(http.MethodPost, "/api/listings", strings.NewReader("{"))
		req.Header.Set("Authorization", "Bearer "+seller)
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("BannedWords", func(t *testing.T) {
		in := deskInput()
		in["title"] = "Totally not a scam desk"
		rec := s.do(t, http.MethodPost, "/api/listings", seller, in)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "content_rejected", decode[errorResponse](t, rec).Error.Kind)
	})

	t.Run("UpdateForbidden", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/listings/"+desk.ID, other, map[string]any{"price": 10})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("MarkSold", func(t *testing.T) {
		rec := s.do(t, http.MethodPatch, "/api/listings/"+desk.ID, seller, map[string]any{"status": "SOLD"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.StatusSold, decode[domain.Listing](t, rec).Status)

		rec = s.do(t, http.MethodGet, "/api/listings", "", nil)
		assert.Zero(t, decode[domain.ListingPage](t, rec).Total)

		rec = s.do(t, http.MethodGet, "/api/me/listings", seller, nil)
		assert.Equal(t, 1, decode[domain.ListingPage](t, rec).Total)
	})

	t.Run("Delete", func(t *testing.T) {
		rec := s.do(t, http.MethodDelete, "/api/listings/"+desk.ID, seller, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = s.do(t, http.MethodGet, "/api/listings/"+desk.ID, other, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestThreadEndpoints(t *testing.T) {
	s := newTestServer(t)
	seller := s.user(t, "seller", domain.RoleMember)
	buyer := s.user(t, "buyer", domain.RoleMember)

	rec := s.do(t, http.MethodPost, "/api/listings", seller, deskInput())
	require.Equal(t, http.StatusCreated, rec.Code)
	desk := decode[domain.Listing](t, rec)

	rec = s.do(t, http.MethodPost, "/api/threads", seller, map[string]string{"listingId": desk.ID, "sellerId": "seller"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "self_message", decode[errorResponse](t, rec).Error.Kind)

	rec = s.do(t, http.MethodPost, "/api/threads", buyer, map[string]string{"listingId": desk.ID, "sellerId": "seller"})
	require.Equal(t, http.StatusOK, rec.Code)
	th := decode[domain.Thread](t, rec)

	rec = s.do(t, http.MethodPost, "/api/threads/"+th.ID+"/messages", buyer, map[string]string{"text": "Is this still available?"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/threads", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]domain.ThreadOverview](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Is this still available?", list[0].LastMessage.Text)
	assert.Equal(t, 1, list[0].UnreadCount)

	rec = s.do(t, http.MethodGet, "/api/threads/"+th.ID+"/messages", seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[service.ThreadDetail](t, rec)
	require.Len(t, detail.Messages, 1)

	rec = s.do(t, http.MethodGet, "/api/threads", seller, nil)
	assert.Zero(t, decode[[]domain.ThreadOverview](t, rec)[0].UnreadCount)
}

func TestFavoriteAndReportEndpoints(t *testing.T) {
	s := newTestServer(t)
	seller := s.user(t, "seller", domain.RoleMember)
	member := s.user(t, "member", domain.RoleMember)
	admin := s.user(t, "admin", domain.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/listings", seller, deskInput())
	require.Equal(t, http.StatusCreated, rec.Code)
	desk := decode[domain.Listing](t, rec)

	rec = s.do(t, http.MethodPost, "/api/favorites", member, map[string]string{"listingId": desk.ID})
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/favorites", member, map[string]string{"listingId": desk.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/favorites/"+desk.ID, member, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/favorites/"+desk.ID, member, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	report := map[string]string{"targetType": "LISTING", "targetId": desk.ID, "reason": "Photos are taken from a store site"}
	rec = s.do(t, http.MethodPost, "/api/reports", member, report)
	require.Equal(t, http.StatusCreated, rec.Code)
	rep := decode[domain.Report](t, rec)

	rec = s.do(t, http.MethodGet, "/api/admin/reports", member, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/admin/reports", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Report](t, rec), 1)

	rec = s.do(t, http.MethodPatch, "/api/admin/reports/"+rep.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPatch, "/api/admin/reports/"+rep.ID, admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/admin/users/member", admin, map[string]string{"role": "ADMIN"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.RoleAdmin, decode[domain.User](t, rec).Role)
}

func TestModerationUnavailable(t *testing.T) {
	s := newTestServer(t)
	tok := s.user(t, "member", domain.RoleMember)

	rec := s.do(t, http.MethodPost, "/api/moderation", tok, map[string]string{"action": "moderate", "text": "hello"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", decode[errorResponse](t, rec).Error.Kind)
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploads(t *testing.T) {
	s := newTestServer(t)
	tok := s.user(t, "member", domain.RoleMember)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)

	upload := func(files map[string][]byte, token string) *httptest.ResponseRecorder {
		body, ctype := multipartBody(t, files)
		req := httptest.NewRequest(http.MethodPost, "/api/uploads", body)
		req.Header.Set("Content-Type", ctype)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := upload(map[string][]byte{"desk.png": png}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = upload(map[string][]byte{"notes.txt": []byte("just some text")}, tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = upload(map[string][]byte{"desk.png": png}, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		URLs []string `json:"urls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.URLs, 1)
	assert.True(t, strings.HasSuffix(resp.URLs[0], ".png"))

	name := resp.URLs[0][strings.LastIndex(resp.URLs[0], "/")+1:]
	rec = s.do(t, http.MethodGet, "/api/uploads/"+name, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, png, rec.Body.Bytes())
}

func TestUploadNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/uploads/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
