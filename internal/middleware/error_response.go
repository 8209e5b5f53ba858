package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/miniblog/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// WriteServiceError はサービス層のエラーを適切なHTTPステータスで書き込む。
// *model.APIErrorはコードに応じたステータスで返し、
// それ以外のエラーは詳細をログに記録して500 INTERNAL_ERRORに落とす。
func WriteServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, statusForCode(apiErr.Code), apiErr)
		return
	}

	slog.Error("unhandled service error", slog.String("error", err.Error()))
	WriteInternalServerError(w)
}

// statusForCode はエラーコードをHTTPステータスに対応付ける。
func statusForCode(code string) int {
	switch code {
	case model.ErrCodeWeakPassword,
		model.ErrCodeInvalidImageURL,
		model.ErrCodeEmptyFields,
		model.ErrCodeInvalidQuery:
		return http.StatusBadRequest
	case model.ErrCodeUserNotFound,
		model.ErrCodeWrongPassword,
		model.ErrCodeOAuthFailed,
		model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodePostForbidden:
		return http.StatusForbidden
	case model.ErrCodePostNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailTaken:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
