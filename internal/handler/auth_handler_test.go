package handler

import (
	"net/http"
	"strings"
	"testing"

	"furniture-service/internal/model"
	"furniture-service/internal/testutil"
	"furniture-service/pkg/config"

	"go.uber.org/zap"
)

type authResponse struct {
	Success bool       `json:"success"`
	Token   string     `json:"token"`
	User    model.User `json:"user"`
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})

	rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"name":         "Jane Doe",
		"email":        "  Jane@Example.com ",
		"mobileNumber": "0771234567",
		"password":     "secret123",
	}, nil))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response leaks password: %s", rec.Body.String())
	}

	var body authResponse
	testutil.AssertJSON(t, rec, &body)
	if !body.Success || body.Token == "" {
		t.Fatalf("body = %+v", body)
	}
	if body.User.Email != "jane@example.com" || body.User.Role != model.RoleUser {
		t.Errorf("user = %+v", body.User)
	}

	claims, err := env.jwt.ValidateToken(body.Token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.UserID != body.User.ID || claims.Role != model.RoleUser {
		t.Errorf("claims = %+v", claims)
	}
}

func TestRegisterRejections(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	existing := testutil.CreateTestUser(t, env.db, model.RoleUser)

	tests := []struct {
		name    string
		body    map[string]string
		message string
	}{
		{"missing name", map[string]string{"email": "a@example.com", "password": "secret123"}, "Name, email and password are required"},
		{"missing password", map[string]string{"name": "A", "email": "a@example.com"}, "Name, email and password are required"},
		{"short password", map[string]string{"name": "A", "email": "a@example.com", "password": "123"}, "Password must be at least 6 characters"},
		{"admin role", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123", "role": "admin"}, "Invalid role"},
		{"unknown role", map[string]string{"name": "A", "email": "a@example.com", "password": "secret123", "role": "root"}, "Invalid role"},
		{"taken email", map[string]string{"name": "A", "email": strings.ToUpper(existing.Email), "password": "secret123"}, "Email already in use"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/auth/register", tt.body, nil))
			assertFailure(t, rec, http.StatusBadRequest, tt.message)
		})
	}
}

func TestRegisterDesigner(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})

	rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Dee", "email": "dee@example.com", "password": "secret123", "role": "designer",
	}, nil))
	testutil.AssertStatus(t, rec, http.StatusCreated)
	var body authResponse
	testutil.AssertJSON(t, rec, &body)
	if body.User.Role != model.RoleDesigner {
		t.Errorf("role = %q, want designer", body.User.Role)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	user := testutil.CreateTestUser(t, env.db, model.RoleAdmin)

	tests := []struct {
		name     string
		email    string
		password string
		status   int
		message  string
	}{
		{"valid", user.Email, testutil.TestPassword, http.StatusOK, ""},
		{"email case ignored", strings.ToUpper(user.Email), testutil.TestPassword, http.StatusOK, ""},
		{"wrong password", user.Email, "wrong-password", http.StatusUnauthorized, "Invalid credentials"},
		{"unknown email", "nobody@example.com", testutil.TestPassword, http.StatusUnauthorized, "Invalid credentials"},
		{"missing password", user.Email, "", http.StatusBadRequest, "Email and password are required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/auth/login", map[string]string{
				"email": tt.email, "password": tt.password,
			}, nil))
			if tt.status != http.StatusOK {
				assertFailure(t, rec, tt.status, tt.message)
				return
			}
			testutil.AssertStatus(t, rec, http.StatusOK)
			var body authResponse
			testutil.AssertJSON(t, rec, &body)
			if body.Token == "" || body.User.ID != user.ID || body.User.Role != model.RoleAdmin {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t, config.ServerConfig{Env: "test"})
	user, headers := env.as(t, model.RoleUser)

	rec := env.serve(testutil.MakeRequest(http.MethodGet, "/api/auth/profile", nil, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	var got authResponse
	testutil.AssertJSON(t, rec, &got)
	if got.User.ID != user.ID || got.User.Email != user.Email {
		t.Errorf("profile = %+v", got.User)
	}

	rec = env.serve(testutil.MakeRequest(http.MethodPut, "/api/auth/profile", map[string]string{
		"name": "Renamed", "mobileNumber": "0711111111",
	}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)

	var stored model.User
	if err := env.db.First(&stored, user.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Name != "Renamed" || stored.MobileNumber != "0711111111" {
		t.Errorf("stored = %+v", stored)
	}

	// blank fields keep the stored values
	rec = env.serve(testutil.MakeRequest(http.MethodPut, "/api/auth/profile", map[string]string{"name": " "}, headers))
	testutil.AssertStatus(t, rec, http.StatusOK)
	env.db.First(&stored, user.ID)
	if stored.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", stored.Name)
	}

	rec = env.serve(testutil.MakeRequest(http.MethodGet, "/api/auth/profile", nil, nil))
	assertFailure(t, rec, http.StatusUnauthorized, "Not authorized to access this route")
}

func TestCreateAdmin(t *testing.T) {
	body := map[string]string{"name": "Root", "email": "root@example.com", "password": "secret123"}

	t.Run("development", func(t *testing.T) {
		env := newTestEnv(t, config.ServerConfig{Env: "development"})
		rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/auth/create-admin", body, nil))
		testutil.AssertStatus(t, rec, http.StatusCreated)

		var user model.User
		if err := env.db.Where("email = ?", "root@example.com").First(&user).Error; err != nil {
			t.Fatal(err)
		}
		if !user.IsAdmin() {
			t.Errorf("role = %q, want admin", user.Role)
		}

		rec = env.serve(testutil.MakeRequest(http.MethodPost, "/api/auth/create-admin", body, nil))
		assertFailure(t, rec, http.StatusBadRequest, "Email already in use")
	})

	t.Run("production", func(t *testing.T) {
		env := newTestEnv(t, config.ServerConfig{Env: "production"})
		rec := env.serve(testutil.MakeRequest(http.MethodPost, "/api/auth/create-admin", body, nil))
		assertFailure(t, rec, http.StatusForbidden, "This endpoint is disabled in production mode")
	})
}

func TestSeedAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	admin := config.AdminConfig{Email: "Owner@Example.com", Password: "secret123", Name: "Owner"}

	for i := 0; i < 2; i++ {
		if err := SeedAdmin(db, admin, zap.NewNop()); err != nil {
			t.Fatalf("SeedAdmin() call %d: %v", i+1, err)
		}
	}

	var users []model.User
	db.Find(&users)
	if len(users) != 1 {
		t.Fatalf("users = %d, want 1", len(users))
	}
	if users[0].Email != "owner@example.com" || !users[0].IsAdmin() || !users[0].CheckPassword("secret123") {
		t.Errorf("seeded = %+v", users[0])
	}

	if err := SeedAdmin(db, config.AdminConfig{Name: "Nobody"}, zap.NewNop()); err != nil {
		t.Errorf("disabled seed: %v", err)
	}

	shopper := testutil.CreateTestUser(t, db, model.RoleUser)
	if err := SeedAdmin(db, config.AdminConfig{Email: shopper.Email, Password: "secret123", Name: "Taken"}, zap.NewNop()); err != nil {
		t.Fatalf("seed over shopper: %v", err)
	}
	var after model.User
	db.First(&after, shopper.ID)
	if after.IsAdmin() || after.Name != shopper.Name {
		t.Errorf("shopper account changed: %+v", after)
	}
}
