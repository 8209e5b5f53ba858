// Package post は投稿の作成・取得・一覧・削除のビジネスロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/repository"
)

// Sanitizer は投稿本文のHTMLサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// EventPublisher は投稿イベントの配信インターフェース。
// SSEブローカーが実装する。
type EventPublisher interface {
	PublishPostCreated(post *model.Post)
	PublishPostDeleted(postID string)
}

// CreateInput は投稿作成の入力を表す。
// Tagsはカンマ区切りの生文字列で受け取り、サービス層でパースする。
type CreateInput struct {
	Title    string
	ImageURL string
	Body     string
	Tags     string
}

// Service は投稿に関するビジネスロジックを提供する。
type Service struct {
	postRepo  repository.PostRepository
	sanitizer Sanitizer
	publisher EventPublisher
}

// NewService はServiceを生成する。
// publisherはnilの場合イベント配信をスキップする。
func NewService(postRepo repository.PostRepository, sanitizer Sanitizer, publisher EventPublisher) *Service {
	return &Service{
		postRepo:  postRepo,
		sanitizer: sanitizer,
		publisher: publisher,
	}
}

// Create は投稿を作成する。
// 検証は画像URLの形式チェックを先に行い、その後に必須フィールドの
// 空チェックを行う。画像URLが不正かつ他フィールドが空の場合は
// INVALID_IMAGE_URLが返る。
// タグはカンマで分割し、各要素をトリムして小文字化する。
// 重複排除や空要素の除去は行わない。
// 本文は保存前にサニタイズされ、CreatedAtはサーバー側で採番される。
func (s *Service) Create(ctx context.Context, owner *model.User, input CreateInput) (*model.Post, error) {
	if !isValidImageURL(input.ImageURL) {
		return nil, model.NewInvalidImageURLError()
	}

	if err := validation.ValidateStruct(&input,
		validation.Field(&input.Title, validation.Required),
		validation.Field(&input.ImageURL, validation.Required),
		validation.Field(&input.Body, validation.Required),
		validation.Field(&input.Tags, validation.Required),
	); err != nil {
		return nil, model.NewEmptyFieldsError()
	}

	post := &model.Post{
		ID:        uuid.New().String(),
		Title:     input.Title,
		ImageURL:  input.ImageURL,
		Body:      s.sanitizer.Sanitize(input.Body),
		Tags:      parseTags(input.Tags),
		OwnerID:   owner.ID,
		CreatedBy: owner.Name,
		CreatedAt: time.Now(),
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishPostCreated(post)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("owner_id", post.OwnerID),
		slog.Int("tag_count", len(post.Tags)),
	)
	return post, nil
}

// List はクエリ条件に一致する投稿をcreated_at降順で返す。
// タグと所有者の両方が指定された場合はINVALID_QUERYを返す。
func (s *Service) List(ctx context.Context, q model.PostQuery) ([]*model.Post, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	posts, err := s.postRepo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	// 並び順はDB側で保証されるが、唯一のソートキーとして
	// サービス層でも降順を保証する。
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	return posts, nil
}

// Get は指定IDの投稿を取得する。
// 存在しない場合はPOST_NOT_FOUNDを返す。
func (s *Service) Get(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(id)
	}
	return post, nil
}

// Delete は指定IDの投稿を削除する。
// 投稿の所有者（OwnerID）以外が削除しようとした場合はPOST_FORBIDDENを返す。
// 認可判定はOwnerIDのみで行い、表示名は参照しない。
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return model.NewPostNotFoundError(id)
	}

	if post.OwnerID != requesterID {
		slog.Warn("post delete forbidden",
			slog.String("post_id", id),
			slog.String("owner_id", post.OwnerID),
			slog.String("requester_id", requesterID),
		)
		return model.NewPostForbiddenError()
	}

	if err := s.postRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if s.publisher != nil {
		s.publisher.PublishPostDeleted(id)
	}

	slog.Info("post deleted",
		slog.String("post_id", id),
		slog.String("owner_id", requesterID),
	)
	return nil
}

// isValidImageURL は画像URLがhttp/httpsの絶対URLかを検証する。
func isValidImageURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	return parsed.Host != ""
}

// parseTags はカンマ区切りのタグ文字列をパースする。
// 各要素をトリムして小文字化するのみで、重複排除や空要素の除去は行わない。
// "Go, Web, go" は ["go", "web", "go"] になる。
func parseTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, len(parts))
	for i, part := range parts {
		tags[i] = strings.ToLower(strings.TrimSpace(part))
	}
	return tags
}
