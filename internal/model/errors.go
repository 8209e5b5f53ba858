// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// プロバイダーの生エラーメッセージの部分一致ではなく、
// 型付きのエラーコードで分類する。未知のエラーはINTERNAL_ERRORに落ちる。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeWeakPassword    = "AUTH_WEAK_PASSWORD"
	ErrCodeEmailTaken      = "AUTH_EMAIL_TAKEN"
	ErrCodeUserNotFound    = "AUTH_USER_NOT_FOUND"
	ErrCodeWrongPassword   = "AUTH_WRONG_PASSWORD"
	ErrCodeOAuthFailed     = "AUTH_OAUTH_FAILED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodePostNotFound    = "POST_NOT_FOUND"
	ErrCodePostForbidden   = "POST_FORBIDDEN"
	ErrCodeInvalidImageURL = "INVALID_IMAGE_URL"
	ErrCodeEmptyFields     = "EMPTY_FIELDS"
	ErrCodeInvalidQuery    = "INVALID_QUERY"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// NewWeakPasswordError はパスワードポリシー違反エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは6文字以上で入力してください。",
		Category: "auth",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "メールアドレスを確認するか、新規登録してください。",
	}
}

// NewWrongPasswordError はパスワード不一致エラーを生成する。
func NewWrongPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWrongPassword,
		Message:  "パスワードが正しくありません。",
		Category: "auth",
		Action:   "パスワードを確認して再度お試しください。",
	}
}

// NewOAuthFailedError はOAuth認証失敗エラーを生成する。
func NewOAuthFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeOAuthFailed,
		Message:  "Googleログインに失敗しました。",
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewPostNotFoundError は投稿未検出エラーを生成する。
func NewPostNotFoundError(postID string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された投稿が見つかりません: %s", postID),
		Category: "post",
		Action:   "投稿IDを確認してください。",
	}
}

// NewPostForbiddenError は投稿の所有者以外による操作エラーを生成する。
func NewPostForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodePostForbidden,
		Message:  "この投稿を操作する権限がありません。",
		Category: "post",
		Action:   "自分が作成した投稿のみ削除できます。",
	}
}

// NewInvalidImageURLError は画像URLの形式エラーを生成する。
func NewInvalidImageURLError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  "画像は有効なURLである必要があります。",
		Category: "validation",
		Action:   "http:// または https:// で始まる画像URLを入力してください。",
	}
}

// NewEmptyFieldsError は必須フィールド未入力エラーを生成する。
func NewEmptyFieldsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyFields,
		Message:  "すべての項目を入力してください。",
		Category: "validation",
		Action:   "未入力の項目を確認してください。",
	}
}

// NewInvalidQueryError はクエリ条件の排他制約違反エラーを生成する。
func NewInvalidQueryError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  "タグと所有者のフィルタは同時に指定できません。",
		Category: "validation",
		Action:   "フィルタ条件をどちらか一方にしてください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
// 詳細はログにのみ記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "エラーが発生しました。しばらく待ってから再度お試しください。",
		Category: "system",
		Action:   "時間をおいて再度お試しください。",
	}
}
