package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"furniture-service/internal/designer"
	"furniture-service/internal/model"
	"furniture-service/pkg/config"
	"furniture-service/pkg/database"
	"furniture-service/pkg/jwtutil"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestSecret signs tokens in tests
const TestSecret = "test-secret-key"

// TestPassword is the password of every user made by CreateTestUser
const TestPassword = "password123"

var userSeq atomic.Int64

// SetupTestDB opens a private in-memory SQLite database with every model migrated
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.InitDB(&config.DBConfig{
		Driver:       config.DriverSQLite,
		Path:         "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	if err := database.MigrateModels(db, model.All()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

// GetTestConfig returns a configuration suitable for tests
func GetTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ServiceName: "furniture-service-test",
		DB:          config.DBConfig{Driver: config.DriverSQLite},
		Server:      config.ServerConfig{Port: "0", Env: "test", FrontendURL: "http://localhost:5173"},
		JWT:         config.JWTConfig{SigningKey: TestSecret, ExpirationHours: 1},
		Log:         config.LogConfig{Level: "error"},
		Metrics:     config.MetricsConfig{Prefix: "furniture_test"},
		Upload:      config.UploadConfig{Dir: t.TempDir(), MaxFileSize: 1 << 20},
	}
}

// NewJWT returns a token utility using TestSecret
func NewJWT() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: TestSecret, ExpirationHours: 1})
}

// CreateTestUser stores a user with the given role and TestPassword
func CreateTestUser(t *testing.T, db *gorm.DB, role string) *model.User {
	t.Helper()
	n := userSeq.Add(1)
	user := &model.User{
		Name:  fmt.Sprintf("Test %s %d", role, n),
		Email: fmt.Sprintf("%s%d@example.com", role, n),
		Role:  role,
	}
	if err := user.SetPassword(TestPassword); err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// TokenFor signs a token for user
func TokenFor(t *testing.T, jwt *jwtutil.JWTUtil, user *model.User) string {
	t.Helper()
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

// BearerHeader returns the Authorization header for token
func BearerHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// CreateTestProduct stores a valid product
func CreateTestProduct(t *testing.T, db *gorm.DB, title string) *model.Product {
	t.Helper()
	p := &model.Product{
		Title:       title,
		Description: title + " description",
		Price:       199.5,
		Category:    model.CategoryLivingRoom,
		Thumbnail:   "/uploads/images/" + uuid.NewString() + ".png",
		ModelURL:    "/uploads/models/" + uuid.NewString() + ".glb",
		Images:      []string{},
		Materials:   []string{"Oak"},
		Colors:      []string{"Brown"},
		InStock:     true,
	}
	p.Dimensions = datatypes.NewJSONType(designer.Dimensions{Width: 120, Height: 80, Length: 60})
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to create test product: %v", err)
	}
	return p
}

// MakeRequest builds a request with an optional JSON body and headers
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus fails the test when the recorded status differs
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the recorded body into v
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
