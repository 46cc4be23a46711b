package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/blocklog/internal/auth"
	"github.com/hitoshi/blocklog/internal/model"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn      func(ctx context.Context, input auth.RegisterInput) (*model.User, string, error)
	loginFn         func(ctx context.Context, email, password string) (*model.User, string, error)
	profileFn       func(ctx context.Context, userID string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID string, input auth.UpdateProfileInput) (*model.User, error)
	logoutFn        func(token string)
}

func (m *mockAuthService) Register(ctx context.Context, input auth.RegisterInput) (*model.User, string, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, "", nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, "", nil
}

func (m *mockAuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	if m.profileFn != nil {
		return m.profileFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockAuthService) UpdateProfile(ctx context.Context, userID string, input auth.UpdateProfileInput) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(token string) {
	if m.logoutFn != nil {
		m.logoutFn(token)
	}
}

func testUser() *model.User {
	return &model.User{
		ID:        "user-123",
		Email:     "taro@example.com",
		FirstName: "太郎",
		LastName:  "山田",
		IsActive:  true,
	}
}

// --- POST /auth/register テスト ---

func TestAuthHandler_Register_Success(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, string, error) {
			if input.Email != "taro@example.com" {
				t.Errorf("email = %q, want %q", input.Email, "taro@example.com")
			}
			if input.FirstName != "太郎" {
				t.Errorf("firstName = %q, want %q", input.FirstName, "太郎")
			}
			return testUser(), "token-abc", nil
		},
	}

	h := NewAuthHandler(svc)

	body := `{"email": "taro@example.com", "password": "secret-password", "firstName": "太郎", "lastName": "山田"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var result struct {
		User        userResponse `json:"user"`
		AccessToken string       `json:"accessToken"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if result.AccessToken != "token-abc" {
		t.Errorf("accessToken = %q, want %q", result.AccessToken, "token-abc")
	}
	if result.User.ID != "user-123" {
		t.Errorf("user.id = %q, want %q", result.User.ID, "user-123")
	}
}

func TestAuthHandler_Register_InvalidEmail_ReturnsValidationError(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email": "not-an-email", "password": "secret-password", "firstName": "太郎", "lastName": "山田"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseValidationErrorResponse(t, w)
	if len(errResp.Errors) != 1 || errResp.Errors[0].Field != "email" {
		t.Errorf("errors = %+v, want single email error", errResp.Errors)
	}
}

func TestAuthHandler_Register_ShortPassword_ReturnsValidationError(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email": "taro@example.com", "password": "short", "firstName": "太郎", "lastName": "山田"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseValidationErrorResponse(t, w)
	if len(errResp.Errors) != 1 || errResp.Errors[0].Field != "password" {
		t.Errorf("errors = %+v, want single password error", errResp.Errors)
	}
}

func TestAuthHandler_Register_MissingNames_ReturnsValidationError(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email": "taro@example.com", "password": "secret-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	errResp := parseValidationErrorResponse(t, w)
	if len(errResp.Errors) != 2 {
		t.Errorf("errors = %+v, want firstName and lastName errors", errResp.Errors)
	}
}

func TestAuthHandler_Register_DuplicateEmail_ReturnsConflict(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, input auth.RegisterInput) (*model.User, string, error) {
			return nil, "", model.NewDuplicateEmailError()
		},
	}

	h := NewAuthHandler(svc)

	body := `{"email": "taro@example.com", "password": "secret-password", "firstName": "太郎", "lastName": "山田"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Register(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeDuplicateEmail {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeDuplicateEmail)
	}
}

// --- POST /auth/login テスト ---

func TestAuthHandler_Login_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			if email != "taro@example.com" {
				t.Errorf("email = %q, want %q", email, "taro@example.com")
			}
			return testUser(), "token-xyz", nil
		},
	}

	h := NewAuthHandler(svc)

	body := `{"email": "taro@example.com", "password": "secret-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.AccessToken != "token-xyz" {
		t.Errorf("accessToken = %q, want %q", result.AccessToken, "token-xyz")
	}
}

func TestAuthHandler_Login_InvalidCredentials_ReturnsUnauthorized(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password string) (*model.User, string, error) {
			return nil, "", model.NewInvalidCredentialsError()
		},
	}

	h := NewAuthHandler(svc)

	body := `{"email": "taro@example.com", "password": "wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeInvalidCredentials {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeInvalidCredentials)
	}
}

func TestAuthHandler_Login_EmptyFields_ReturnsValidationError(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	body := `{"email": "", "password": ""}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Login(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

// --- GET /auth/profile テスト ---

func TestAuthHandler_Profile_Success(t *testing.T) {
	svc := &mockAuthService{
		profileFn: func(ctx context.Context, userID string) (*model.User, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			return testUser(), nil
		},
	}

	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Profile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result userResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Email != "taro@example.com" {
		t.Errorf("email = %q, want %q", result.Email, "taro@example.com")
	}
}

func TestAuthHandler_Profile_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	// ユーザーIDを注入しない
	w := httptest.NewRecorder()

	h.Profile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

// --- PATCH /auth/profile テスト ---

func TestAuthHandler_UpdateProfile_Success(t *testing.T) {
	svc := &mockAuthService{
		updateProfileFn: func(ctx context.Context, userID string, input auth.UpdateProfileInput) (*model.User, error) {
			if input.FirstName == nil || *input.FirstName != "次郎" {
				t.Errorf("firstName = %v, want 次郎", input.FirstName)
			}
			if input.LastName != nil {
				t.Errorf("lastName = %v, want nil", input.LastName)
			}
			u := testUser()
			u.FirstName = "次郎"
			return u, nil
		},
	}

	h := NewAuthHandler(svc)

	body := `{"firstName": "次郎"}`
	req := httptest.NewRequest(http.MethodPut, "/auth/profile", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.UpdateProfile(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result userResponse
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.FirstName != "次郎" {
		t.Errorf("firstName = %q, want %q", result.FirstName, "次郎")
	}
}

// --- POST /auth/logout テスト ---

func TestAuthHandler_Logout_RevokesBearerToken(t *testing.T) {
	var revokedToken string
	svc := &mockAuthService{
		logoutFn: func(token string) {
			revokedToken = token
		},
	}

	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer token-abc")
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if revokedToken != "token-abc" {
		t.Errorf("revoked token = %q, want %q", revokedToken, "token-abc")
	}
}
