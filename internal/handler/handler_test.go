package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"furniture-service/internal/middleware"
	"furniture-service/internal/model"
	"furniture-service/internal/testutil"
	"furniture-service/pkg/config"
	"furniture-service/pkg/jwtutil"
	"furniture-service/pkg/logger"
	"furniture-service/pkg/realtime"
	"furniture-service/pkg/storage"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testMaxFileSize keeps oversized-upload tests small
const testMaxFileSize = 1 << 10

// events records notifications instead of broadcasting them
type events struct {
	mu       sync.Mutex
	products []realtime.ProductEvent
	designs  []realtime.DesignEvent
}

func (r *events) NotifyProductChange(ev realtime.ProductEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = append(r.products, ev)
}

func (r *events) NotifyDesignChange(ev realtime.DesignEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.designs = append(r.designs, ev)
}

func (r *events) productActions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.products {
		out = append(out, ev.Action)
	}
	return out
}

func (r *events) designActions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.designs {
		out = append(out, ev.Action)
	}
	return out
}

type testEnv struct {
	e      *echo.Echo
	db     *gorm.DB
	jwt    *jwtutil.JWTUtil
	store  *storage.LocalStore
	events *events
}

func newTestEnv(t *testing.T, server config.ServerConfig) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	jwt := testutil.NewJWT()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}
	env := &testEnv{db: db, jwt: jwt, store: store, events: &events{}}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			logger.SetContextLogger(c, zap.NewNop())
			return next(c)
		}
	})
	auth := middleware.JWTAuthMiddleware(jwt, db)

	authH := NewAuthHandler(db, jwt, server)
	e.POST("/api/auth/register", authH.Register)
	e.POST("/api/auth/login", authH.Login)
	e.POST("/api/auth/create-admin", authH.CreateAdmin)
	e.GET("/api/auth/profile", authH.GetProfile, auth)
	e.PUT("/api/auth/profile", authH.UpdateProfile, auth)

	productH := NewProductHandler(db, store, env.events, testMaxFileSize)
	e.GET("/api/products", productH.ListProducts)
	e.GET("/api/products/:id", productH.GetProduct)
	e.POST("/api/products", productH.CreateProduct, auth, middleware.AdminOnly())
	e.PUT("/api/products/:id", productH.UpdateProduct, auth, middleware.AdminOnly())
	e.DELETE("/api/products/:id", productH.DeleteProduct, auth, middleware.AdminOnly())

	designH := NewRoomDesignHandler(db, env.events)
	g := e.Group("/api/room-designs", auth)
	g.GET("", designH.ListDesigns)
	g.POST("", designH.CreateDesign)
	g.GET("/:id", designH.GetDesign)
	g.PUT("/:id", designH.UpdateDesign)
	g.DELETE("/:id", designH.DeleteDesign)
	g.POST("/:id/items", designH.AddItem)
	g.PATCH("/:id/items/:itemId", designH.PatchItem)
	g.DELETE("/:id/items/:itemId", designH.DeleteItem)
	g.PUT("/:id/walls", designH.SetWallColor)
	g.GET("/:id/walls", designH.WallOpacities)
	g.PUT("/:id/floor", designH.SetFloorColor)

	health := NewHealthHandler(db)
	e.GET("/api/health", health.HealthCheck)

	env.e = e
	return env
}

func (env *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	return httptestRecorder(env.e, req)
}

func httptestRecorder(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// as returns auth headers for a new user with role
func (env *testEnv) as(t *testing.T, role string) (*model.User, map[string]string) {
	t.Helper()
	user := testutil.CreateTestUser(t, env.db, role)
	return user, testutil.BearerHeader(testutil.TokenFor(t, env.jwt, user))
}

// envelope is the part of every response the tests look at
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func assertFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	testutil.AssertStatus(t, rec, status)
	var body envelope
	testutil.AssertJSON(t, rec, &body)
	if body.Success {
		t.Errorf("success = true, want false")
	}
	if message != "" && body.Message != message {
		t.Errorf("message = %q, want %q", body.Message, message)
	}
}

type upload struct {
	field       string
	filename    string
	contentType string
	content     []byte
}

// multipartRequest builds a multipart/form-data request from text fields and files
func multipartRequest(t *testing.T, method, path string, fields map[string]string, files []upload, headers map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(f.content)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// flakyStore fails every save of one kind
type flakyStore struct {
	*storage.LocalStore
	failKind storage.Kind
}

func (f *flakyStore) Save(ctx context.Context, kind storage.Kind, name string, r io.Reader) (string, error) {
	if kind == f.failKind {
		return "", errors.New("disk full")
	}
	return f.LocalStore.Save(ctx, kind, name, r)
}
