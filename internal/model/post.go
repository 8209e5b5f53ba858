// Package model はドメインモデルを定義する。
package model

import "time"

// Post はユーザーが投稿した記事を表す。
type Post struct {
	ID       string
	Title    string
	ImageURL string
	Body     string // サニタイズ済みHTML
	Tags     []string

	// OwnerID は作成時のユーザーID。作成後は不変であり、
	// 削除の認可判定はこのフィールドのみで行う。
	OwnerID string

	// CreatedBy は作成時点のユーザー表示名のスナップショット。
	// ユーザーが後から表示名を変更しても再同期されない。
	CreatedBy string

	// CreatedAt はサーバー側で書き込み時に採番される。
	// 一覧の唯一のソートキー（降順）。
	CreatedAt time.Time
}

// PostQuery は投稿一覧のクエリ条件を表す。
// TagとOwnerIDは同時に指定できない（高々1つのフィルタ次元）。
// どちらも空の場合は全件を意味する。
type PostQuery struct {
	Tag     string
	OwnerID string
}

// Validate はフィルタ次元の排他制約を検証する。
func (q PostQuery) Validate() error {
	if q.Tag != "" && q.OwnerID != "" {
		return NewInvalidQueryError()
	}
	return nil
}
