// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// Nameは投稿時のスナップショット元となる表示名。登録後に変更しても
// 既存投稿のCreatedByには反映されない。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string // OAuthのみのユーザーは空
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// メール/パスワード登録のユーザーはidentityを持たない。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
