package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"flood-report-api/config"
	"flood-report-api/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAuthRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	auth := services.NewAuthService(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})
	h := NewAuthHandler(db, auth)
	router := gin.New()
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/logout", h.Logout)
	return router
}

func jsonRequest(t *testing.T, target string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func registerBody() map[string]string {
	return map[string]string{
		"first_name": "Dana",
		"last_name":  "Rivers",
		"email":      "dana@example.com",
		"password":   "correct-horse",
	}
}

func TestRegister_CreatesUserAndToken(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)

	rec := serve(router, jsonRequest(t, "/register", registerBody()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "dana@example.com", resp.User.Email)
	assert.NotContains(t, rec.Body.String(), "password_hash", "hash must never leave the server")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)

	rec := serve(router, jsonRequest(t, "/register", registerBody()))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(router, jsonRequest(t, "/register", registerBody()))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)

	body := registerBody()
	body["password"] = "short"
	rec := serve(router, jsonRequest(t, "/register", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_Success(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)
	serve(router, jsonRequest(t, "/register", registerBody()))

	rec := serve(router, jsonRequest(t, "/login", map[string]string{
		"email":    "dana@example.com",
		"password": "correct-horse",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)
	serve(router, jsonRequest(t, "/register", registerBody()))

	rec := serve(router, jsonRequest(t, "/login", map[string]string{
		"email":    "dana@example.com",
		"password": "wrong-password",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestLogin_UnknownEmail(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)

	rec := serve(router, jsonRequest(t, "/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever-pass",
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)

	rec := serve(router, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
