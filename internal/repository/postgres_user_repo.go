package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/blocklog/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのアクティブなユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE id = $1 AND is_active = TRUE`,
		id,
	).Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	return user, nil
}

// FindByEmail はメールアドレスでアクティブなユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, first_name, last_name, is_active, created_at, updated_at
		 FROM users WHERE email = $1 AND is_active = TRUE`,
		email,
	).Scan(
		&user.ID, &user.Email, &user.PasswordHash,
		&user.FirstName, &user.LastName, &user.IsActive,
		&user.CreatedAt, &user.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによるユーザーの検索に失敗しました: %w", err)
	}

	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, first_name, last_name, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.IsActive,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はユーザーのプロフィールを更新する。
func (r *PostgresUserRepo) Update(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		    email = $2, password_hash = $3, first_name = $4,
		    last_name = $5, is_active = $6, updated_at = $7
		 WHERE id = $1`,
		user.ID, user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.IsActive,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
