// Package auth はメール/パスワード認証、Google OAuth認証フロー、
// セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/miniblog/internal/model"
	"github.com/hitoshi/miniblog/internal/repository"
)

// minPasswordLength はパスワードの最低文字数。
const minPasswordLength = 6

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Email          string
	Name           string
	Provider       string // "google", "github" 等
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// エラーは*model.APIErrorの型付きコードで返す。
type Service struct {
	oauth       OAuthProvider // Google OAuth無効時はnil
	userRepo    repository.UserRepository
	identRepo   repository.IdentityRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:       oauth,
		userRepo:    userRepo,
		identRepo:   identRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Register はメール/パスワードでユーザーを登録し、セッションを発行する。
// パスワードが6文字未満の場合はAUTH_WEAK_PASSWORD、
// メールアドレスが既に登録済みの場合はAUTH_EMAIL_TAKENを返す。
// 重複チェックはDBの一意制約に委ねるため、登録が競合しても
// 片方は必ずAUTH_EMAIL_TAKENになる。
func (s *Service) Register(ctx context.Context, email, name, password string) (*model.User, *model.Session, error) {
	if len(password) < minPasswordLength {
		return nil, nil, model.NewWeakPasswordError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, nil, model.NewEmailTakenError()
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("email", email),
	)
	return user, session, nil
}

// Login はメール/パスワードで認証し、セッションを発行する。
// ユーザーが存在しない場合はAUTH_USER_NOT_FOUND、
// パスワードが一致しない場合はAUTH_WRONG_PASSWORDを返す。
// OAuthのみで登録されたユーザー（パスワードハッシュが空）も
// AUTH_WRONG_PASSWORDとして扱う。
func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *model.Session, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewUserNotFoundError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, model.NewWrongPasswordError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))
	return user, session, nil
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// OAuthEnabled はOAuthプロバイダーが設定されているかを返す。
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定しログインする。
// プロバイダーとの通信に失敗した場合はAUTH_OAUTH_FAILEDを返す。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, error) {
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		return nil, model.NewOAuthFailedError()
	}

	identity, err := s.identRepo.FindByProviderAndProviderUserID(ctx, userInfo.Provider, userInfo.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string

	if identity != nil {
		userID = identity.UserID
		slog.Info("existing user logged in via oauth",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		now := time.Now()
		newUser := &model.User{
			ID:        uuid.New().String(),
			Email:     userInfo.Email,
			Name:      userInfo.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		newIdentity := &model.Identity{
			ID:             uuid.New().String(),
			UserID:         newUser.ID,
			Provider:       userInfo.Provider,
			ProviderUserID: userInfo.ProviderUserID,
			CreatedAt:      now,
		}

		if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
			// 同一メールアドレスでパスワード登録済みの場合。
			// アカウントの自動リンクは行わない。
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return nil, model.NewEmailTakenError()
			}
			return nil, fmt.Errorf("failed to create user and identity: %w", err)
		}

		userID = newUser.ID
		slog.Info("new user provisioned via oauth",
			slog.String("user_id", userID),
			slog.String("email", userInfo.Email),
			slog.String("provider", userInfo.Provider),
		)
	}

	session, err := s.createSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
// セッションIDが空の場合は何もしない（ログアウトは常に成功する）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが存在しない・期限切れ・ユーザーが消えている場合は
// いずれもUNAUTHORIZEDを返す。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		slog.Error("failed to find session", slog.String("error", err.Error()))
		return nil, model.NewUnauthorizedError()
	}
	if session == nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		slog.Error("failed to find user for session", slog.String("error", err.Error()))
		return nil, model.NewUnauthorizedError()
	}
	if user == nil {
		return nil, model.NewUnauthorizedError()
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// NewStateToken はOAuthのCSRF対策用stateトークンを生成する。
func NewStateToken() (string, error) {
	return generateToken()
}

// generateToken は暗号的に安全なランダムトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
