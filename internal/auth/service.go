package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/blocklog/internal/model"
	"github.com/hitoshi/blocklog/internal/repository"
)

// Service はユーザー登録・ログイン・プロフィール管理を提供する。
type Service struct {
	users      repository.UserRepository
	tokens     *TokenManager
	revoked    *RevocationList
	bcryptCost int

	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, tokens *TokenManager, revoked *RevocationList, bcryptCost int) *Service {
	return &Service{
		users:      users,
		tokens:     tokens,
		revoked:    revoked,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register はユーザーを新規登録してアクセストークンを発行する。
// メールアドレスが登録済みの場合はDUPLICATE_EMAILエラーを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if existing != nil {
		return nil, "", model.NewDuplicateEmailError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, now)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login は認証情報を検証してアクセストークンを発行する。
// メール未登録とパスワード不一致は区別せずINVALID_CREDENTIALSを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, "", err
	}
	if user == nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.ID, s.now().UTC())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Profile は認証済みユーザーのプロフィールを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfileInput はプロフィール更新の入力。nilのフィールドは変更しない。
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

// UpdateProfile はプロフィールを部分更新する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.User, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	user.UpdatedAt = s.now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Logout はアクセストークンを失効リストに登録する。
// 検証に通らないトークンでも登録自体は成功扱いにする。
func (s *Service) Logout(token string) {
	if token == "" {
		return
	}
	s.revoked.Revoke(token)
}

// VerifyToken はトークンを検証し、失効済みでなければユーザーIDを返す。
func (s *Service) VerifyToken(token string) (string, error) {
	if s.revoked.IsRevoked(token) {
		return "", fmt.Errorf("トークンは失効済みです")
	}
	return s.tokens.Verify(token)
}
