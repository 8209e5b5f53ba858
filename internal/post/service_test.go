package post

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/miniblog/internal/model"
)

// --- モック定義 ---

type mockPostRepo struct {
	createFn     func(ctx context.Context, post *model.Post) error
	findByIDFn   func(ctx context.Context, id string) (*model.Post, error)
	listFn       func(ctx context.Context, q model.PostQuery) ([]*model.Post, error)
	deleteByIDFn func(ctx context.Context, id string) error
}

func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	return m.createFn(ctx, post)
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	return m.findByIDFn(ctx, id)
}

func (m *mockPostRepo) List(ctx context.Context, q model.PostQuery) ([]*model.Post, error) {
	return m.listFn(ctx, q)
}

func (m *mockPostRepo) DeleteByID(ctx context.Context, id string) error {
	return m.deleteByIDFn(ctx, id)
}

// passthroughSanitizer はテスト用のサニタイザー。マーカーを付けて通過を検証する。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(rawHTML string) string {
	return "sanitized:" + rawHTML
}

type mockPublisher struct {
	created []*model.Post
	deleted []string
}

func (m *mockPublisher) PublishPostCreated(post *model.Post) {
	m.created = append(m.created, post)
}

func (m *mockPublisher) PublishPostDeleted(postID string) {
	m.deleted = append(m.deleted, postID)
}

func apiErrCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error is not *model.APIError: %v", err)
	}
	return apiErr.Code
}

var testOwner = &model.User{ID: "user-1", Email: "taro@example.com", Name: "Taro"}

func validInput() CreateInput {
	return CreateInput{
		Title:    "My Post",
		ImageURL: "https://example.com/image.png",
		Body:     "<p>hello</p>",
		Tags:     "Go, Web",
	}
}

// --- テスト ---

func TestCreate_Success(t *testing.T) {
	var saved *model.Post
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			saved = post
			return nil
		},
	}
	publisher := &mockPublisher{}
	service := NewService(repo, passthroughSanitizer{}, publisher)

	before := time.Now()
	post, err := service.Create(context.Background(), testOwner, validInput())
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	after := time.Now()

	if saved == nil {
		t.Fatal("post was not persisted")
	}
	if post.ID == "" {
		t.Error("post.ID is empty")
	}
	if post.Title != "My Post" {
		t.Errorf("post.Title = %q, want %q", post.Title, "My Post")
	}
	if post.Body != "sanitized:<p>hello</p>" {
		t.Errorf("post.Body = %q, body was not sanitized", post.Body)
	}
	if post.OwnerID != "user-1" {
		t.Errorf("post.OwnerID = %q, want %q", post.OwnerID, "user-1")
	}
	if post.CreatedBy != "Taro" {
		t.Errorf("post.CreatedBy = %q, want %q", post.CreatedBy, "Taro")
	}
	if post.CreatedAt.Before(before) || post.CreatedAt.After(after) {
		t.Errorf("post.CreatedAt = %v, not server-stamped", post.CreatedAt)
	}
	if len(publisher.created) != 1 {
		t.Errorf("len(publisher.created) = %d, want 1", len(publisher.created))
	}
}

func TestCreate_InvalidImageURL(t *testing.T) {
	service := NewService(nil, passthroughSanitizer{}, nil)

	for _, badURL := range []string{
		"",
		"not a url",
		"example.com/image.png",
		"ftp://example.com/image.png",
		"/relative/path.png",
	} {
		input := validInput()
		input.ImageURL = badURL
		_, err := service.Create(context.Background(), testOwner, input)
		if err == nil {
			t.Errorf("expected error for image URL %q", badURL)
			continue
		}
		if code := apiErrCode(t, err); code != model.ErrCodeInvalidImageURL {
			t.Errorf("error code for %q = %q, want %q", badURL, code, model.ErrCodeInvalidImageURL)
		}
	}
}

func TestCreate_EmptyFields(t *testing.T) {
	service := NewService(nil, passthroughSanitizer{}, nil)

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"empty title", func(in *CreateInput) { in.Title = "" }},
		{"empty body", func(in *CreateInput) { in.Body = "" }},
		{"empty tags", func(in *CreateInput) { in.Tags = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := service.Create(context.Background(), testOwner, input)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := apiErrCode(t, err); code != model.ErrCodeEmptyFields {
				t.Errorf("error code = %q, want %q", code, model.ErrCodeEmptyFields)
			}
		})
	}
}

func TestCreate_URLCheckPrecedesEmptyCheck(t *testing.T) {
	// 画像URLが不正かつ他フィールドも空の場合、先に行われる
	// URL形式チェックのエラーが返る。
	service := NewService(nil, passthroughSanitizer{}, nil)

	_, err := service.Create(context.Background(), testOwner, CreateInput{})
	if err == nil {
		t.Fatal("expected error")
	}
	if code := apiErrCode(t, err); code != model.ErrCodeInvalidImageURL {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidImageURL)
	}
}

func TestCreate_TagParsing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"trims and lowercases", " Go ,  WebDev ", []string{"go", "webdev"}},
		{"preserves duplicates", "react,webdev,react", []string{"react", "webdev", "react"}},
		{"preserves empty tokens", "go,,web", []string{"go", "", "web"}},
		{"whitespace only token becomes empty", "go, ,web", []string{"go", "", "web"}},
		{"single tag", "go", []string{"go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var saved *model.Post
			repo := &mockPostRepo{
				createFn: func(ctx context.Context, post *model.Post) error {
					saved = post
					return nil
				},
			}
			service := NewService(repo, passthroughSanitizer{}, nil)

			input := validInput()
			input.Tags = tt.raw
			if _, err := service.Create(context.Background(), testOwner, input); err != nil {
				t.Fatalf("Create() error: %v", err)
			}
			if !reflect.DeepEqual(saved.Tags, tt.want) {
				t.Errorf("Tags = %v, want %v", saved.Tags, tt.want)
			}
		})
	}
}

func TestCreate_RepoFailureDoesNotPublish(t *testing.T) {
	repo := &mockPostRepo{
		createFn: func(ctx context.Context, post *model.Post) error {
			return errors.New("db down")
		},
	}
	publisher := &mockPublisher{}
	service := NewService(repo, passthroughSanitizer{}, publisher)

	if _, err := service.Create(context.Background(), testOwner, validInput()); err == nil {
		t.Fatal("expected error")
	}
	if len(publisher.created) != 0 {
		t.Errorf("event published despite repo failure")
	}
}

func TestList_InvalidQuery(t *testing.T) {
	service := NewService(nil, passthroughSanitizer{}, nil)

	_, err := service.List(context.Background(), model.PostQuery{Tag: "go", OwnerID: "user-1"})
	if err == nil {
		t.Fatal("expected error for tag+owner query")
	}
	if code := apiErrCode(t, err); code != model.ErrCodeInvalidQuery {
		t.Errorf("error code = %q, want %q", code, model.ErrCodeInvalidQuery)
	}
}

func TestList_SortsByCreatedAtDesc(t *testing.T) {
	base := time.Now()
	repo := &mockPostRepo{
		listFn: func(ctx context.Context, q model.PostQuery) ([]*model.Post, error) {
			// 順不同で返しても降順に並べ直される
			return []*model.Post{
				{ID: "old", CreatedAt: base.Add(-2 * time.Hour)},
				{ID: "new", CreatedAt: base},
				{ID: "mid", CreatedAt: base.Add(-time.Hour)},
			}, nil
		},
	}
	service := NewService(repo, passthroughSanitizer{}, nil)

	posts, err := service.List(context.Background(), model.PostQuery{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}

	gotIDs := []string{posts[0].ID, posts[1].ID, posts[2].ID}
	wantIDs := []string{"new", "mid", "old"}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("post order = %v, want %v", gotIDs, wantIDs)
	}
}

func TestList_PassesQueryToRepo(t *testing.T) {
	var gotQuery model.PostQuery
	repo := &mockPostRepo{
		listFn: func(ctx context.Context, q model.PostQuery) ([]*model.Post, error) {
			gotQuery = q
			return nil, nil
		},
	}
	service := NewService(repo, passthroughSanitizer{}, nil)

	if _, err := service.List(context.Background(), model.PostQuery{Tag: "go"}); err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if gotQuery.Tag != "go" {
		t.Errorf("repo query Tag = %q, want %q", gotQuery.Tag, "go")
	}
}

func TestGet_NotFound(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return nil, nil
		},
	}
	service := NewService(repo, passthroughSanitizer{}, nil)

	_, err := service.Get(context.Background(), "missing-id")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := apiErrCode(t, err); code != model.ErrCodePostNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodePostNotFound)
	}
}

func TestGet_Success(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, Title: "found"}, nil
		},
	}
	service := NewService(repo, passthroughSanitizer{}, nil)

	post, err := service.Get(context.Background(), "post-1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if post.Title != "found" {
		t.Errorf("post.Title = %q, want %q", post.Title, "found")
	}
}

func TestDelete_Success(t *testing.T) {
	var deletedID string
	repo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, OwnerID: "user-1"}, nil
		},
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	publisher := &mockPublisher{}
	service := NewService(repo, passthroughSanitizer{}, publisher)

	if err := service.Delete(context.Background(), "post-1", "user-1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if deletedID != "post-1" {
		t.Errorf("deleted post ID = %q, want %q", deletedID, "post-1")
	}
	if len(publisher.deleted) != 1 || publisher.deleted[0] != "post-1" {
		t.Errorf("publisher.deleted = %v, want [post-1]", publisher.deleted)
	}
}

func TestDelete_ForbiddenForNonOwner(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return &model.Post{ID: id, OwnerID: "user-1", CreatedBy: "Taro"}, nil
		},
	}
	publisher := &mockPublisher{}
	service := NewService(repo, passthroughSanitizer{}, publisher)

	err := service.Delete(context.Background(), "post-1", "user-2")
	if err == nil {
		t.Fatal("expected error for non-owner delete")
	}
	if code := apiErrCode(t, err); code != model.ErrCodePostForbidden {
		t.Errorf("error code = %q, want %q", code, model.ErrCodePostForbidden)
	}
	if len(publisher.deleted) != 0 {
		t.Error("event published despite forbidden delete")
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo := &mockPostRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Post, error) {
			return nil, nil
		},
	}
	service := NewService(repo, passthroughSanitizer{}, nil)

	err := service.Delete(context.Background(), "missing-id", "user-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if code := apiErrCode(t, err); code != model.ErrCodePostNotFound {
		t.Errorf("error code = %q, want %q", code, model.ErrCodePostNotFound)
	}
}
