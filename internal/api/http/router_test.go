package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/api/http/handlers"
	"github.com/spec-kit/tixit/internal/auth"
	"github.com/spec-kit/tixit/internal/config"
	"github.com/spec-kit/tixit/internal/domain"
	"github.com/spec-kit/tixit/internal/events"
	"github.com/spec-kit/tixit/internal/observability"
	"github.com/spec-kit/tixit/internal/ratelimit"
	"github.com/spec-kit/tixit/internal/repository"
	"github.com/spec-kit/tixit/internal/service"
	"github.com/spec-kit/tixit/internal/validation"
)

const clientRoot = "http://client.test"

type fakeProvider struct {
	identity domain.ExternalIdentity
	err      error
	codes    []string
}

func (f *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + url.QueryEscape(state)
}

func (f *fakeProvider) Resolve(_ context.Context, code string) (domain.ExternalIdentity, error) {
	f.codes = append(f.codes, code)
	return f.identity, f.err
}

type testEnv struct {
	app     *fiber.App
	auth    *service.AuthService
	store   *repository.MemoryStore
	metrics *observability.Metrics
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:                  "tixit-test",
			Env:                   "test",
			ClientRootURL:         clientRoot,
			RequestTimeoutSeconds: 5,
		},
		Auth: config.AuthConfig{JWTSecret: "jwt-secret", SessionSecret: "session-secret", TokenTTLHours: 168, BcryptCost: 4},
		CORS: config.CORSConfig{AllowedOrigins: []string{clientRoot}},
		RateLimit: config.RateLimitConfig{
			AuthMax: 20, AuthWindowMinutes: 15,
			TicketCreateMax: 5, TicketCreateWindowMin: 10,
			TicketListMax: 60, TicketListWindowMinutes: 1,
		},
	}
}

func newTestEnv(t *testing.T, provider auth.IdentityProvider) *testEnv {
	t.Helper()
	cfg := testConfig()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	pipeline := validation.NewPipeline()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   store.Users(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: store.Tickets(),
		Pipeline:   pipeline,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := NewApp(cfg, logger, metrics)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, "test", map[string]handlers.Pinger{"store": store}, metrics),
		Auth:    handlers.NewAuthHandler(authService, pipeline),
		Tickets: handlers.NewTicketsHandler(ticketService),
		Google: handlers.NewGoogleHandler(handlers.GoogleHandlerConfig{
			Auth:          authService,
			Provider:      provider,
			State:         auth.NewStateSigner(cfg.Auth.SessionSecret, 0),
			ClientRootURL: clientRoot,
			Logger:        logger,
		}),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		RateLimiter:    NewRateLimiter(ratelimit.NewMemoryCounter(), logger, metrics),
		Policies:       PoliciesFromConfig(cfg.RateLimit),
	})
	return &testEnv{app: app, auth: authService, store: store, metrics: metrics}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string, cookies ...*nethttp.Cookie) (*nethttp.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return out
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type authBody struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	User      struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
}

func expectError(t *testing.T, resp *nethttp.Response, raw []byte, status int, code string) errorBody {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, status, raw)
	}
	body := decode[errorBody](t, raw)
	if body.Error.Code != code {
		t.Fatalf("code = %q, want %q (%s)", body.Error.Code, code, raw)
	}
	return body
}

func (e *testEnv) signup(t *testing.T, name, email, password string) authBody {
	t.Helper()
	resp, raw := e.do(t, fiber.MethodPost, "/api/auth/signup",
		map[string]any{"name": name, "email": email, "password": password}, "")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("signup status = %d (%s)", resp.StatusCode, raw)
	}
	return decode[authBody](t, raw)
}

func validTicketBody() map[string]any {
	return map[string]any{
		"title":    "Coldplay",
		"category": "Concert",
		"city":     "Lisbon",
		"date":     "2026-11-20",
		"time":     "19:30",
		"place":    "Estadio da Luz",
		"price":    "120",
	}
}

func TestRootHealthAndHeaders(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, raw := env.do(t, fiber.MethodGet, "/", nil, "")
	if resp.StatusCode != fiber.StatusOK || string(raw) != "TixIt backend is running!" {
		t.Fatalf("root = %d %q", resp.StatusCode, raw)
	}
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
	if resp.Header.Get(fiber.HeaderXContentTypeOptions) != "nosniff" {
		t.Error("missing security headers")
	}

	resp, raw = env.do(t, fiber.MethodGet, "/health/ready", nil, "")
	if resp.StatusCode != fiber.StatusOK || !strings.Contains(string(raw), `"store":"ok"`) {
		t.Fatalf("ready = %d %s", resp.StatusCode, raw)
	}

	resp, raw = env.do(t, fiber.MethodGet, "/nope", nil, "")
	expectError(t, resp, raw, fiber.StatusNotFound, "NOT_FOUND")
}

func TestSignupAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	created := env.signup(t, "Ann", "Ann@Example.com", "secret1")
	if created.Token == "" || created.ExpiresAt == "" || created.User.Email != "ann@example.com" || created.User.ID == "" {
		t.Fatalf("signup body = %+v", created)
	}

	resp, raw := env.do(t, fiber.MethodPost, "/api/auth/signup",
		map[string]any{"name": "Ann", "email": "ANN@example.com", "password": "secret1"}, "")
	body := expectError(t, resp, raw, fiber.StatusBadRequest, "DUPLICATE_ACCOUNT")
	if body.Error.Message != "User already exists" {
		t.Errorf("message = %q", body.Error.Message)
	}

	resp, raw = env.do(t, fiber.MethodPost, "/api/auth/login",
		map[string]any{"email": "ANN@EXAMPLE.COM", "password": "secret1"}, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login = %d %s", resp.StatusCode, raw)
	}
	if got := decode[authBody](t, raw); got.User.ID != created.User.ID {
		t.Fatalf("login user = %s", got.User.ID)
	}

	resp, raw = env.do(t, fiber.MethodPost, "/api/auth/login",
		map[string]any{"email": "  ann@example.com ", "password": "secret1"}, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login with padded email = %d %s", resp.StatusCode, raw)
	}

	cases := []struct {
		name   string
		path   string
		body   map[string]any
		status int
		code   string
	}{
		{"wrong password", "/api/auth/login", map[string]any{"email": "ann@example.com", "password": "nope"}, 400, "INVALID_CREDENTIALS"},
		{"unknown email", "/api/auth/login", map[string]any{"email": "who@example.com", "password": "secret1"}, 400, "INVALID_CREDENTIALS"},
		{"operator object email", "/api/auth/login", map[string]any{"email": map[string]any{"$gt": ""}, "password": "x"}, 400, "VALIDATION_FAILED"},
		{"operator string password", "/api/auth/login", map[string]any{"email": "ann@example.com", "password": "$ne: 1"}, 400, "INJECTION_DETECTED"},
		{"short password", "/api/auth/signup", map[string]any{"name": "B", "email": "b@example.com", "password": "123"}, 400, "VALIDATION_FAILED"},
		{"missing name", "/api/auth/signup", map[string]any{"email": "b@example.com", "password": "secret1"}, 400, "VALIDATION_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, raw := env.do(t, fiber.MethodPost, tc.path, tc.body, "")
			expectError(t, resp, raw, tc.status, tc.code)
		})
	}
}

func TestTicketCreateAndList(t *testing.T) {
	env := newTestEnv(t, nil)
	seller := env.signup(t, "Sam", "sam@example.com", "secret1")

	resp, raw := env.do(t, fiber.MethodPost, "/api/tickets", validTicketBody(), seller.Token)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, raw)
	}
	created := decode[map[string]any](t, raw)
	if created["seller"] != seller.User.ID || created["price"] != 120.0 || created["isSold"] != false || created["date"] != "2026-11-20" {
		t.Fatalf("created = %v", created)
	}

	anon := validTicketBody()
	anon["title"] = "Anonymous"
	resp, raw = env.do(t, fiber.MethodPost, "/api/tickets", anon, "not-a-token")
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("anonymous create = %d %s", resp.StatusCode, raw)
	}
	if _, ok := decode[map[string]any](t, raw)["seller"]; ok {
		t.Fatal("invalid token must not attribute a seller")
	}

	resp, raw = env.do(t, fiber.MethodGet, "/api/tickets", nil, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list = %d %s", resp.StatusCode, raw)
	}
	if strings.Contains(string(raw), "$2a$") || strings.Contains(string(raw), "password") {
		t.Fatalf("listing leaks credentials: %s", raw)
	}
	listings := decode[[]map[string]any](t, raw)
	if len(listings) != 2 || listings[0]["title"] != "Anonymous" {
		t.Fatalf("listings = %v", listings)
	}
	sellerView, _ := listings[1]["seller"].(map[string]any)
	if len(sellerView) != 2 || sellerView["name"] != "Sam" || sellerView["email"] != "sam@example.com" {
		t.Fatalf("seller projection = %v", listings[1]["seller"])
	}

	resp, raw = env.do(t, fiber.MethodGet, "/api/tickets?category=Opera", nil, "")
	expectError(t, resp, raw, fiber.StatusBadRequest, "VALIDATION_FAILED")

	resp, raw = env.do(t, fiber.MethodGet, "/api/tickets?city=LISBON&limit=1", nil, "")
	if got := decode[[]map[string]any](t, raw); resp.StatusCode != fiber.StatusOK || len(got) != 1 {
		t.Fatalf("filtered list = %d %s", resp.StatusCode, raw)
	}
}

func TestTicketListCityWithEscapedCharacters(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, city := range []string{"Coeur d'Alene", "Lisbon"} {
		body := validTicketBody()
		body["city"] = city
		if resp, raw := env.do(t, fiber.MethodPost, "/api/tickets", body, ""); resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("create %s = %d %s", city, resp.StatusCode, raw)
		}
	}

	resp, raw := env.do(t, fiber.MethodGet, "/api/tickets?city="+url.QueryEscape("coeur d'alene"), nil, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("list = %d %s", resp.StatusCode, raw)
	}
	got := decode[[]map[string]any](t, raw)
	if len(got) != 1 || got[0]["city"] != "Coeur d&#39;Alene" {
		t.Fatalf("listings = %v", got)
	}
}

func TestTicketCreateRejections(t *testing.T) {
	env := newTestEnv(t, nil)

	injected := validTicketBody()
	injected["description"] = "{$where: sleep(100)}"
	resp, raw := env.do(t, fiber.MethodPost, "/api/tickets", injected, "")
	body := expectError(t, resp, raw, fiber.StatusBadRequest, "INJECTION_DETECTED")
	if body.Error.Details["field"] != "description" {
		t.Fatalf("details = %v", body.Error.Details)
	}

	invalid := validTicketBody()
	invalid["date"] = "2026-02-30"
	resp, raw = env.do(t, fiber.MethodPost, "/api/tickets", invalid, "")
	body = expectError(t, resp, raw, fiber.StatusBadRequest, "VALIDATION_FAILED")
	if _, ok := body.Error.Details["date"]; !ok {
		t.Fatalf("details = %v", body.Error.Details)
	}

	_, raw = env.do(t, fiber.MethodGet, "/api/tickets", nil, "")
	if got := decode[[]map[string]any](t, raw); len(got) != 0 {
		t.Fatalf("rejected tickets stored: %v", got)
	}
}

func TestTicketCreateRateLimited(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 1; i <= 5; i++ {
		resp, raw := env.do(t, fiber.MethodPost, "/api/tickets", validTicketBody(), "")
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("request %d = %d %s", i, resp.StatusCode, raw)
		}
		if want := string(rune('0' + 5 - i)); resp.Header.Get("X-RateLimit-Remaining") != want {
			t.Fatalf("remaining = %q, want %s", resp.Header.Get("X-RateLimit-Remaining"), want)
		}
	}

	resp, raw := env.do(t, fiber.MethodPost, "/api/tickets", validTicketBody(), "")
	body := expectError(t, resp, raw, fiber.StatusTooManyRequests, "RATE_LIMITED")
	if body.Error.Message != "Too many requests, please try again later." {
		t.Errorf("message = %q", body.Error.Message)
	}
	if resp.Header.Get(fiber.HeaderRetryAfter) == "" {
		t.Error("missing Retry-After")
	}

	resp, _ = env.do(t, fiber.MethodGet, "/api/tickets", nil, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("listing shares the create budget: %d", resp.StatusCode)
	}
	if env.metrics.Snapshot().RateLimited["ticket-create"] != 1 {
		t.Errorf("rate-limit metric = %v", env.metrics.Snapshot().RateLimited)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	user := env.signup(t, "Ann", "ann@example.com", "secret1")

	resp, raw := env.do(t, fiber.MethodPost, "/api/auth/change-password",
		map[string]any{"currentPassword": "secret1", "newPassword": "secret2"}, "")
	body := expectError(t, resp, raw, fiber.StatusUnauthorized, "UNAUTHORIZED")
	if body.Error.Message != "Unauthorized" {
		t.Errorf("message = %q", body.Error.Message)
	}

	resp, raw = env.do(t, fiber.MethodPost, "/api/auth/change-password",
		map[string]any{"currentPassword": "secret1", "newPassword": "secret2"}, "garbage")
	body = expectError(t, resp, raw, fiber.StatusUnauthorized, "UNAUTHORIZED")
	if body.Error.Message != "Invalid token" {
		t.Errorf("message = %q", body.Error.Message)
	}

	resp, raw = env.do(t, fiber.MethodPost, "/api/auth/change-password",
		map[string]any{"currentPassword": "wrong", "newPassword": "secret2"}, user.Token)
	body = expectError(t, resp, raw, fiber.StatusBadRequest, "INVALID_CREDENTIALS")
	if body.Error.Message != "Current password is incorrect" {
		t.Errorf("message = %q", body.Error.Message)
	}

	resp, raw = env.do(t, fiber.MethodPost, "/api/auth/change-password",
		map[string]any{"currentPassword": "secret1"}, user.Token)
	expectError(t, resp, raw, fiber.StatusBadRequest, "VALIDATION_FAILED")

	resp, raw = env.do(t, fiber.MethodPost, "/api/auth/change-password",
		map[string]any{"currentPassword": "secret1", "newPassword": "secret2"}, user.Token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("change = %d %s", resp.StatusCode, raw)
	}
	changed := decode[map[string]any](t, raw)
	if changed["message"] != "Password updated successfully" || changed["token"] == "" {
		t.Fatalf("body = %v", changed)
	}

	resp, raw = env.do(t, fiber.MethodPost, "/api/auth/login",
		map[string]any{"email": "ann@example.com", "password": "secret2"}, "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("login with new password = %d %s", resp.StatusCode, raw)
	}
}

func TestChangePasswordForExternalOnlyAccount(t *testing.T) {
	env := newTestEnv(t, nil)
	res, err := env.auth.LinkExternalIdentity(context.Background(),
		domain.ExternalIdentity{ID: "g-1", Email: "g@example.com", EmailVerified: true})
	if err != nil {
		t.Fatal(err)
	}
	resp, raw := env.do(t, fiber.MethodPost, "/api/auth/change-password",
		map[string]any{"currentPassword": "x", "newPassword": "secret2"}, res.Token)
	expectError(t, resp, raw, fiber.StatusBadRequest, "PASSWORD_NOT_SET")
}

func TestGoogleLogin(t *testing.T) {
	provider := &fakeProvider{identity: domain.ExternalIdentity{
		ID: "g-42", Email: "Gina@Example.com", Name: "Gina", EmailVerified: true,
	}}
	env := newTestEnv(t, provider)

	resp, _ := env.do(t, fiber.MethodGet, "/api/auth/google", nil, "")
	if resp.StatusCode != fiber.StatusFound {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if err != nil || location.Host != "accounts.example" {
		t.Fatalf("location = %v", resp.Header.Get(fiber.HeaderLocation))
	}
	state := location.Query().Get("state")
	var cookie *nethttp.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "tixit_oauth_state" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != state || !cookie.HttpOnly {
		t.Fatalf("state cookie = %+v", cookie)
	}

	resp, _ = env.do(t, fiber.MethodGet, "/api/auth/google/callback?code=abc&state=forged", nil, "", cookie)
	if got := resp.Header.Get(fiber.HeaderLocation); got != clientRoot+"/login" {
		t.Fatalf("forged state redirect = %q", got)
	}
	if len(provider.codes) != 0 {
		t.Fatal("provider called despite state mismatch")
	}

	resp, _ = env.do(t, fiber.MethodGet, "/api/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil, "", cookie)
	target, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if err != nil || resp.StatusCode != fiber.StatusFound {
		t.Fatalf("callback = %d %v", resp.StatusCode, resp.Header.Get(fiber.HeaderLocation))
	}
	if target.Scheme+"://"+target.Host+target.Path != clientRoot+"/login" {
		t.Fatalf("redirect target = %s", target)
	}
	identity, err := env.auth.TokenManager().Verify(target.Query().Get("token"))
	if err != nil || identity.Email != "gina@example.com" || identity.Name != "Gina" {
		t.Fatalf("token identity = %+v err=%v", identity, err)
	}

	provider.err = errors.New("exchange failed")
	resp, _ = env.do(t, fiber.MethodGet, "/api/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil, "", cookie)
	if got := resp.Header.Get(fiber.HeaderLocation); got != clientRoot+"/login" {
		t.Fatalf("provider failure redirect = %q", got)
	}
}

func TestGoogleLoginDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/api/auth/google", "/api/auth/google/callback?code=x&state=y"} {
		resp, _ := env.do(t, fiber.MethodGet, path, nil, "")
		if resp.StatusCode != fiber.StatusFound || resp.Header.Get(fiber.HeaderLocation) != clientRoot+"/login" {
			t.Fatalf("%s = %d %q", path, resp.StatusCode, resp.Header.Get(fiber.HeaderLocation))
		}
	}
}

type brokenCounter struct{}

func (brokenCounter) Increment(context.Context, string, time.Duration) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("redis down")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	app := fiber.New()
	rl := NewRateLimiter(brokenCounter{}, zap.NewNop(), nil)
	app.Get("/", rl.Limit(ratelimit.Policy{Name: "p", Max: 1, Window: time.Minute}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != fiber.StatusNoContent {
			t.Fatalf("request %d = %d", i, resp.StatusCode)
		}
	}
}
