package api

import (
	"context"

	"storefront/internal/models"
)

// Users wraps the /users endpoints.
type Users struct {
	c Caller
}

// Register creates an account. The confirmation password is the password itself.
func (u *Users) Register(ctx context.Context, phone, password, smsCode string) (*models.AuthPayload, error) {
	env, err := u.c.Post(ctx, "/users/register", models.RegisterRequest{
		Phone:           phone,
		Password:        password,
		ConfirmPassword: password,
		SMSCode:         smsCode,
	})
	if err != nil {
		return nil, err
	}
	return models.DecodeAuthPayload(env)
}

// Login authenticates with phone and password.
func (u *Users) Login(ctx context.Context, phone, password string) (*models.AuthPayload, error) {
	env, err := u.c.Post(ctx, "/users/login", models.LoginRequest{Phone: phone, Password: password})
	if err != nil {
		return nil, err
	}
	return models.DecodeAuthPayload(env)
}

// LoginBySMS authenticates with phone and a verification code.
func (u *Users) LoginBySMS(ctx context.Context, phone, smsCode string) (*models.AuthPayload, error) {
	env, err := u.c.Post(ctx, "/users/login-by-sms", models.SMSLoginRequest{Phone: phone, SMSCode: smsCode})
	if err != nil {
		return nil, err
	}
	return models.DecodeAuthPayload(env)
}

// SendSMSCode asks the server to text a verification code to phone.
func (u *Users) SendSMSCode(ctx context.Context, phone string) error {
	_, err := u.c.Post(ctx, "/users/sms-code", models.SMSCodeRequest{Phone: phone})
	return err
}

// GetUser fetches a profile.
func (u *Users) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	env, err := u.c.Get(ctx, "/users/"+segment(id), nil)
	if err != nil {
		return nil, err
	}
	raw, ok := env.Raw("data")
	if !ok {
		return nil, models.ErrMissingField
	}
	return models.DecodeUserProfile(raw)
}

// UpdateUser patches a profile. The updated profile is nil when the server
// does not echo it.
func (u *Users) UpdateUser(ctx context.Context, id string, patch models.UpdateUserRequest) (*models.UserProfile, error) {
	env, err := u.c.Put(ctx, "/users/"+segment(id), patch)
	if err != nil {
		return nil, err
	}
	raw, ok := env.Raw("data")
	if !ok {
		return nil, nil
	}
	return models.DecodeUserProfile(raw)
}

// Logout ends the server-side session.
func (u *Users) Logout(ctx context.Context) error {
	_, err := u.c.Post(ctx, "/users/logout", nil)
	return err
}
