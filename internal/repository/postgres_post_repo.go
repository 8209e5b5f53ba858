package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/miniblog/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
// タグはtext[]カラムに格納し、包含検索は `$1 = ANY(tags)` で行う。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// Create は投稿を作成する。
// created_atはDB側のnow()ではなく呼び出し側が採番した値を使用する。
// サービス層のタイムスタンプがイベント通知・レスポンスと一致するようにするため。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, image_url, body, tags, owner_id, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.Title, post.ImageURL, post.Body, pq.Array(post.Tags),
		post.OwnerID, post.CreatedBy, post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, image_url, body, tags, owner_id, created_by, created_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(
		&post.ID, &post.Title, &post.ImageURL, &post.Body, pq.Array(&post.Tags),
		&post.OwnerID, &post.CreatedBy, &post.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}

	return post, nil
}

// List はクエリ条件に一致する投稿をcreated_at降順で返す。
// フィルタ次元は高々1つ（所有者一致 または タグ包含）。
func (r *PostgresPostRepo) List(ctx context.Context, q model.PostQuery) ([]*model.Post, error) {
	query := `SELECT id, title, image_url, body, tags, owner_id, created_by, created_at
	          FROM posts`
	var args []interface{}

	switch {
	case q.OwnerID != "":
		query += ` WHERE owner_id = $1`
		args = append(args, q.OwnerID)
	case q.Tag != "":
		query += ` WHERE $1 = ANY(tags)`
		args = append(args, q.Tag)
	}

	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		post := &model.Post{}
		if err := rows.Scan(
			&post.ID, &post.Title, &post.ImageURL, &post.Body, pq.Array(&post.Tags),
			&post.OwnerID, &post.CreatedBy, &post.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return posts, nil
}

// DeleteByID は指定IDの投稿を削除する。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
