package handler

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/hitoshi/blocklog/internal/auth"
	"github.com/hitoshi/blocklog/internal/middleware"
	"github.com/hitoshi/blocklog/internal/model"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, input auth.RegisterInput) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	Profile(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, input auth.UpdateProfileInput) (*model.User, error)
	Logout(token string)
}

// AuthHandler は認証・ユーザー管理のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// authResponse は登録・ログイン成功時のAPIレスポンス。
type authResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
}

// Register はユーザー登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var fieldErrors []fieldError
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fieldErrors = append(fieldErrors, fieldError{Field: "email", Message: "有効なメールアドレスを指定してください。"})
	}
	if len(req.Password) < minPasswordLength {
		fieldErrors = append(fieldErrors, fieldError{Field: "password", Message: "パスワードは8文字以上で指定してください。"})
	}
	if req.FirstName == "" {
		fieldErrors = append(fieldErrors, fieldError{Field: "firstName", Message: "名は必須です。"})
	}
	if req.LastName == "" {
		fieldErrors = append(fieldErrors, fieldError{Field: "lastName", Message: "姓は必須です。"})
	}
	if len(fieldErrors) > 0 {
		writeValidationError(w, fieldErrors)
		return
	}

	user, token, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		User:        toUserResponse(user),
		AccessToken: token,
	})
}

// Login はログインを処理する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		writeValidationError(w, []fieldError{
			{Field: "email", Message: "メールアドレスとパスワードは必須です。"},
		})
		return
	}

	user, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		User:        toUserResponse(user),
		AccessToken: token,
	})
}

// Profile はプロフィール取得を処理する。
// GET /auth/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile はプロフィール更新を処理する。
// PUT /auth/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, auth.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Logout はログアウトを処理する。
// POST /auth/logout
// Authorizationヘッダーのトークンを失効リストに登録する。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(middleware.BearerToken(r))

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "ログアウトしました。",
	})
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
}
