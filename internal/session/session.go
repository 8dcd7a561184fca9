// Package session holds the shopper's credential and cached profile.
// Both live in two places: the Store's own fields and the durable token and
// userInfo slots. Every mutation path writes both copies; at construction the
// durable copies are the source of truth.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"storefront/internal/models"
	"storefront/internal/pkg/i18n"
	"storefront/internal/pkg/logger"
	"storefront/internal/storage"
	"storefront/internal/transport"

	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_user_api.go -package=mocks storefront/internal/session UserAPI

// UserAPI is the part of the users API the session needs. *api.Users implements it.
type UserAPI interface {
	Login(ctx context.Context, phone, password string) (*models.AuthPayload, error)
	Register(ctx context.Context, phone, password, smsCode string) (*models.AuthPayload, error)
	LoginBySMS(ctx context.Context, phone, smsCode string) (*models.AuthPayload, error)
	SendSMSCode(ctx context.Context, phone string) error
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)
	UpdateUser(ctx context.Context, id string, patch models.UpdateUserRequest) (*models.UserProfile, error)
	Logout(ctx context.Context) error
}

// Result is the outcome of an interactive session operation. Failures carry a
// message to show inline instead of an error.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Store is the session state. It is safe for concurrent use.
type Store struct {
	api  UserAPI
	db   storage.Storage
	msgs *i18n.Messages
	log  *logger.Logger

	mu    sync.RWMutex
	token string
	user  *models.UserProfile
}

// New creates a Store hydrated from the durable slots. A blank token slot and a
// userInfo slot that cannot be decoded are dropped.
func New(ctx context.Context, api UserAPI, db storage.Storage, msgs *i18n.Messages, l *logger.Logger) *Store {
	s := &Store{api: api, db: db, msgs: msgs, log: l.Named("session")}

	token, ok, err := db.Get(ctx, storage.KeyToken)
	switch {
	case err != nil:
		s.log.Warn("hydrate credential", zap.Error(err))
	case ok && strings.TrimSpace(token) == "":
		s.log.Warn("dropping blank credential slot")
		if err := db.Remove(ctx, storage.KeyToken); err != nil {
			s.log.Error("remove credential slot", zap.Error(err))
		}
	case ok:
		s.token = strings.TrimSpace(token)
	}

	raw, ok, err := db.Get(ctx, storage.KeyUserInfo)
	switch {
	case err != nil:
		s.log.Warn("hydrate profile", zap.Error(err))
	case ok:
		var user models.UserProfile
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.log.Warn("dropping corrupt profile slot", zap.Error(err))
			if err := db.Remove(ctx, storage.KeyUserInfo); err != nil {
				s.log.Error("remove profile slot", zap.Error(err))
			}
			break
		}
		s.user = &user
	}
	return s
}

// Token returns the current credential.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// UserInfo returns a copy of the cached profile, or nil.
func (s *Store) UserInfo() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsLoggedIn reports whether a non-blank credential is held.
func (s *Store) IsLoggedIn() bool {
	return strings.TrimSpace(s.Token()) != ""
}

// SetToken replaces the credential in both copies. A blank token clears it.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTokenLocked(ctx, token)
}

// SetUserInfo replaces the profile in both copies. nil clears it.
func (s *Store) SetUserInfo(ctx context.Context, user *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setUserLocked(ctx, user)
}

func (s *Store) setTokenLocked(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	s.token = token
	if token == "" {
		if err := s.db.Remove(ctx, storage.KeyToken); err != nil {
			return fmt.Errorf("session: clear credential: %w", err)
		}
		return nil
	}
	if err := s.db.Set(ctx, storage.KeyToken, token); err != nil {
		return fmt.Errorf("session: store credential: %w", err)
	}
	return nil
}

func (s *Store) setUserLocked(ctx context.Context, user *models.UserProfile) error {
	if user == nil {
		s.user = nil
		if err := s.db.Remove(ctx, storage.KeyUserInfo); err != nil {
			return fmt.Errorf("session: clear profile: %w", err)
		}
		return nil
	}
	u := *user
	s.user = &u
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("session: encode profile: %w", err)
	}
	if err := s.db.Set(ctx, storage.KeyUserInfo, string(b)); err != nil {
		return fmt.Errorf("session: store profile: %w", err)
	}
	return nil
}

// establish stores the credential and, when present, the profile of a
// successful authentication.
func (s *Store) establish(ctx context.Context, payload *models.AuthPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setTokenLocked(ctx, payload.Token); err != nil {
		return err
	}
	if payload.User != nil {
		return s.setUserLocked(ctx, payload.User)
	}
	return nil
}

func (s *Store) authenticate(ctx context.Context, op string, fallback i18n.Key,
	call func() (*models.AuthPayload, error)) Result {
	payload, err := call()
	if err != nil {
		s.log.Info(op+" failed", zap.Error(err))
		return Result{Message: transport.MessageOf(err, s.msgs.Get(fallback))}
	}
	if payload == nil || strings.TrimSpace(payload.Token) == "" {
		s.log.Warn(op + " response carried no credential")
		return Result{Message: s.msgs.Get(fallback)}
	}
	if err := s.establish(ctx, payload); err != nil {
		s.log.Error(op+" persist", zap.Error(err))
	}
	s.log.Info(op+" succeeded", logger.Credential("token", payload.Token))
	return Result{Success: true}
}

// Login authenticates with phone and password.
func (s *Store) Login(ctx context.Context, phone, password string) Result {
	return s.authenticate(ctx, "login", i18n.LoginFailed, func() (*models.AuthPayload, error) {
		return s.api.Login(ctx, phone, password)
	})
}

// Register creates an account and logs in with it.
func (s *Store) Register(ctx context.Context, phone, password, smsCode string) Result {
	return s.authenticate(ctx, "register", i18n.RegisterFailed, func() (*models.AuthPayload, error) {
		return s.api.Register(ctx, phone, password, smsCode)
	})
}

// LoginBySMS authenticates with a texted verification code.
func (s *Store) LoginBySMS(ctx context.Context, phone, smsCode string) Result {
	return s.authenticate(ctx, "sms login", i18n.SMSLoginFailed, func() (*models.AuthPayload, error) {
		return s.api.LoginBySMS(ctx, phone, smsCode)
	})
}

// SendSMSCode requests a verification code for phone.
func (s *Store) SendSMSCode(ctx context.Context, phone string) Result {
	if err := s.api.SendSMSCode(ctx, phone); err != nil {
		s.log.Info("sms code failed", zap.Error(err))
		return Result{Message: transport.MessageOf(err, s.msgs.Get(i18n.SMSCodeFailed))}
	}
	return Result{Success: true}
}

// FetchUserInfo refetches the profile. It does nothing until both a
// credential and a cached profile id are known. Failures are logged only.
func (s *Store) FetchUserInfo(ctx context.Context) {
	s.mu.RLock()
	token, user := s.token, s.user
	s.mu.RUnlock()
	if token == "" || user == nil || user.ID == "" {
		return
	}

	profile, err := s.api.GetUser(ctx, user.ID)
	if err != nil {
		s.log.Warn("refresh profile", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if err := s.SetUserInfo(ctx, profile); err != nil {
		s.log.Error("refresh profile persist", zap.Error(err))
	}
}

// UpdateUserInfo patches the profile on the server and caches the result.
func (s *Store) UpdateUserInfo(ctx context.Context, patch models.UpdateUserRequest) Result {
	s.mu.RLock()
	token, user := s.token, s.user
	s.mu.RUnlock()
	if token == "" || user == nil || user.ID == "" {
		return Result{Message: s.msgs.Get(i18n.UpdateProfileFailed)}
	}

	profile, err := s.api.UpdateUser(ctx, user.ID, patch)
	if err != nil {
		s.log.Info("update profile failed", zap.Error(err))
		return Result{Message: transport.MessageOf(err, s.msgs.Get(i18n.UpdateProfileFailed))}
	}
	if profile == nil {
		s.FetchUserInfo(ctx)
		return Result{Success: true}
	}
	if err := s.SetUserInfo(ctx, profile); err != nil {
		s.log.Error("update profile persist", zap.Error(err))
	}
	return Result{Success: true}
}

// Logout tells the server, then clears the credential and profile in both
// copies whatever the server answered.
func (s *Store) Logout(ctx context.Context) {
	if s.IsLoggedIn() {
		if err := s.api.Logout(ctx); err != nil {
			s.log.Info("server logout failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.setTokenLocked(ctx, ""); err != nil {
		s.log.Error("logout", zap.Error(err))
	}
	if err := s.setUserLocked(ctx, nil); err != nil {
		s.log.Error("logout", zap.Error(err))
	}
}

// ExpireCredential drops the in-memory credential after the transport has
// already cleared the durable one.
func (s *Store) ExpireCredential(context.Context) {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	s.log.Info("credential expired")
}
