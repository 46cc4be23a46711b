// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, block, tag, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBlockNotFound        = "BLOCK_NOT_FOUND"
	ErrCodeBlockAlreadyResolved = "BLOCK_ALREADY_RESOLVED"
	ErrCodeTagNotFound          = "TAG_NOT_FOUND"
	ErrCodeDuplicateTagName     = "DUPLICATE_TAG_NAME"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeAIUnavailable        = "AI_UNAVAILABLE"
	ErrCodeAIRequestFailed      = "AI_REQUEST_FAILED"
	ErrCodeInvalidResolvedAt    = "INVALID_RESOLVED_AT"
	ErrCodeInvalidStartedAt     = "INVALID_STARTED_AT"
	ErrCodeInvalidTagColor      = "INVALID_TAG_COLOR"
)

// NewBlockNotFoundError はブロッカー未検出エラーを生成する。
// 存在しない場合と他ユーザー所有の場合で同一のエラーを返し、
// リソースの存在を推測させない。
func NewBlockNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBlockNotFound,
		Message:  "指定されたブロッカーが見つかりません。",
		Category: "block",
		Action:   "ブロッカーIDを確認してください。",
	}
}

// NewBlockAlreadyResolvedError は解決済みブロッカーへの再解決エラーを生成する。
func NewBlockAlreadyResolvedError() *APIError {
	return &APIError{
		Code:     ErrCodeBlockAlreadyResolved,
		Message:  "このブロッカーは既に解決済みです。",
		Category: "block",
		Action:   "解決済みのブロッカーを再度解決することはできません。",
	}
}

// NewTagNotFoundError はタグ未検出エラーを生成する。
// 他ユーザー所有のタグに対しても同一のエラーを返す。
func NewTagNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTagNotFound,
		Message:  "指定されたタグが見つかりません。",
		Category: "tag",
		Action:   "タグIDを確認してください。",
	}
}

// NewDuplicateTagNameError はタグ名重複エラーを生成する。
func NewDuplicateTagNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateTagName,
		Message:  fmt.Sprintf("同じ名前のタグが既に存在します: %s", name),
		Category: "tag",
		Action:   "別のタグ名を指定してください。",
	}
}

// NewDuplicateEmailError はメールアドレス重複エラーを生成する。
func NewDuplicateEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "別のメールアドレスで登録するか、ログインしてください。",
	}
}

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// メールアドレス未登録とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "認証情報を確認して再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewAIUnavailableError はAI機能が未設定の場合のエラーを生成する。
func NewAIUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeAIUnavailable,
		Message:  "AI機能が設定されていません。",
		Category: "system",
		Action:   "GEMINI_API_KEY環境変数を設定してください。",
	}
}

// NewInvalidResolvedAtError は解決時刻が開始時刻より前に指定された場合のエラーを生成する。
func NewInvalidResolvedAtError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidResolvedAt,
		Message:  "解決時刻は開始時刻以降を指定してください。",
		Category: "validation",
		Action:   "resolvedAtの値を確認してください。",
	}
}

// NewInvalidStartedAtError は開始時刻に未来の時刻が指定された場合のエラーを生成する。
func NewInvalidStartedAtError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStartedAt,
		Message:  "開始時刻に未来の時刻は指定できません。",
		Category: "validation",
		Action:   "startedAtの値を確認してください。",
	}
}

// NewInvalidTagColorError はタグの色が#RRGGBB形式でない場合のエラーを生成する。
func NewInvalidTagColorError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTagColor,
		Message:  "タグの色は#RRGGBB形式で指定してください。",
		Category: "validation",
		Action:   "colorの値を確認してください。",
	}
}

// NewAIRequestFailedError はAI呼び出し失敗エラーを生成する。
func NewAIRequestFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeAIRequestFailed,
		Message:  fmt.Sprintf("AI分析に失敗しました: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
