package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/accounts/internal/api/handler"
	"github.com/99minutos/accounts/internal/api/middleware"
	"github.com/99minutos/accounts/internal/core/domain"
	"github.com/99minutos/accounts/internal/core/service"
	"github.com/99minutos/accounts/internal/infrastructure/hasher"
)

type memoryRepo struct {
	mu     sync.Mutex
	byName map[string]*domain.Account
}

func (r *memoryRepo) FindByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byName[username]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return domain.RestoreAccount(a.Record()), nil
}

func (r *memoryRepo) FindByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byName {
		if a.ID() == id {
			return domain.RestoreAccount(a.Record()), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (r *memoryRepo) Create(_ context.Context, a *domain.Account) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[a.Username()]; ok {
		return nil, domain.ErrDuplicateUsername
	}
	r.byName[a.Username()] = domain.RestoreAccount(a.Record())
	return a, nil
}

func (r *memoryRepo) UpdatePasswordHash(context.Context, string, string) error { return nil }

type memorySessions struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func (s *memorySessions) Create(_ context.Context, sess *domain.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.ID] = sess
	return nil
}

func (s *memorySessions) Get(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess, nil
}

func (s *memorySessions) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

type memoryAttempts struct {
	mu sync.Mutex
	m  map[string]domain.LoginAttempt
}

func (s *memoryAttempts) Remember(_ context.Context, key string, a domain.LoginAttempt, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = a
	return nil
}

func (s *memoryAttempts) Consume(_ context.Context, key string) (domain.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.m[key]
	delete(s.m, key)
	return a, nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	return newTestServerWithLog(t, zerolog.Nop())
}

func newTestServerWithLog(t *testing.T, log zerolog.Logger) *echo.Echo {
	t.Helper()
	repo := &memoryRepo{byName: map[string]*domain.Account{}}
	h := hasher.NewBcrypt(bcrypt.MinCost)

	auth := service.NewAuthService(repo, h,
		&memorySessions{m: map[string]*domain.Session{}},
		&memoryAttempts{m: map[string]domain.LoginAttempt{}},
		service.AuthConfig{Secret: "test-secret"}, log)

	return NewRouter(Dependencies{
		Registration: service.NewRegistrationService(repo, h, log),
		Auth:         auth,
		Health: map[string]handler.Pinger{
			"store": handler.PingFunc(func(context.Context) error { return nil }),
		},
		Cookies: handler.CookieConfig{SessionTTL: time.Hour, StateTTL: time.Minute},
		Log:     log,
	})
}

func do(e *echo.Echo, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func cookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestRouter_RegisterLoginMeLogout(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/register",
		`{"username":"alice","email":"a@x.com","plainPassword":"secret1","agreeTerms":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/inscription",
		`{"username":"Alice","email":"b@x.com","plainPassword":"secret1","agreeTerms":true}`)
	if rec.Code != http.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), "already an account") {
		t.Fatalf("duplicate: expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/login", `{"username":"alice","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}
	state := cookie(rec, handler.LoginStateCookie)
	if state == nil {
		t.Fatalf("expected login state cookie")
	}

	rec = do(e, http.MethodGet, "/login", "", state)
	var form map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &form)
	if form["last_username"] != "alice" || form["error"] == "" {
		t.Fatalf("unexpected login form state: %v", form)
	}

	rec = do(e, http.MethodPost, "/login", `{"username":"alice","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	session := cookie(rec, middleware.SessionCookie)
	if session == nil {
		t.Fatalf("expected session cookie")
	}

	rec = do(e, http.MethodGet, "/me", "", session)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), domain.BaseRole) {
		t.Fatalf("me: expected 200 with base role, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/logout", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(e, http.MethodGet, "/logout", "", session)
	if rec.Code != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/me", "", session)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
}

func TestRouter_OperationalRoutes(t *testing.T) {
	e := newTestServer(t)

	for _, path := range []string{"/health", "/health/ready", "/metrics"} {
		if rec := do(e, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
	if rec := do(e, http.MethodGet, "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: expected 404, got %d", rec.Code)
	}
}

func requestLines(t *testing.T, buf *bytes.Buffer) map[string]map[string]any {
	t.Helper()
	out := map[string]map[string]any{}
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var line map[string]any
		if err := json.Unmarshal(raw, &line); err != nil {
			t.Fatalf("invalid log line %q: %v", raw, err)
		}
		if line["message"] == "request" {
			out[line["route"].(string)] = line
		}
	}
	return out
}

func observedCount(t *testing.T, route, code string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "accounts_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == route && labels["code"] == code {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func TestRouter_FailuresAreLoggedAndMeasured(t *testing.T) {
	var buf bytes.Buffer
	e := newTestServerWithLog(t, zerolog.New(&buf))
	e.GET("/fail", func(echo.Context) error { return errors.New("store unreachable") })
	e.GET("/panic", func(echo.Context) error { panic("kaboom") })

	before := observedCount(t, "/panic", "500")
	for _, path := range []string{"/fail", "/panic"} {
		if rec := do(e, http.MethodGet, path, ""); rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	lines := requestLines(t, &buf)
	for path, cause := range map[string]string{"/fail": "store unreachable", "/panic": "kaboom"} {
		line, ok := lines[path]
		if !ok {
			t.Fatalf("%s: no request line in %q", path, buf.String())
		}
		if msg, _ := line["error"].(string); !strings.Contains(msg, cause) {
			t.Errorf("%s: expected error containing %q, got %v", path, cause, line["error"])
		}
		if id, _ := line["request_id"].(string); id == "" {
			t.Errorf("%s: expected request_id, got %v", path, line)
		}
	}

	if got := observedCount(t, "/panic", "500"); got != before+1 {
		t.Fatalf("expected recovered panic observed as 500, count %d -> %d", before, got)
	}
}
