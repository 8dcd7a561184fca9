package models

import "encoding/json"

// UserProfile is the cached snapshot of the authenticated identity.
type UserProfile struct {
	ID       string `json:"id"`
	Phone    string `json:"phone"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Email    string `json:"email"`
	Gender   int    `json:"gender"`
	Status   int    `json:"status"`
}

// DecodeUserProfile reads a profile object, accepting numeric ids.
func DecodeUserProfile(raw json.RawMessage) (*UserProfile, error) {
	o, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	p := &UserProfile{
		ID:       o.str("id", "user_id", "userId"),
		Phone:    o.str("phone"),
		Nickname: o.str("nickname"),
		Avatar:   o.str("avatar"),
		Email:    o.str("email"),
	}
	p.Gender, _ = o.integer("gender")
	p.Status, _ = o.integer("status")
	return p, nil
}

// AuthPayload is the data of a successful login, SMS login or registration.
type AuthPayload struct {
	Token string
	User  *UserProfile
}

// DecodeAuthPayload reads {token, user} from a login-like envelope.
func DecodeAuthPayload(env *Envelope) (*AuthPayload, error) {
	raw, ok := env.Raw("data")
	if !ok {
		return &AuthPayload{}, nil
	}
	o, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}
	payload := &AuthPayload{Token: o.str("token")}
	if user, ok := present(o, "user"); ok {
		if payload.User, err = DecodeUserProfile(user); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// LoginRequest is the body of POST /users/login.
type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /users/register.
type RegisterRequest struct {
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	SMSCode         string `json:"sms_code"`
}

// SMSLoginRequest is the body of POST /users/login-by-sms.
type SMSLoginRequest struct {
	Phone   string `json:"phone"`
	SMSCode string `json:"sms_code"`
}

// SMSCodeRequest is the body of POST /users/sms-code.
type SMSCodeRequest struct {
	Phone string `json:"phone"`
}

// UpdateUserRequest is the body of PUT /users/{id}. Empty fields are left unchanged.
type UpdateUserRequest struct {
	Nickname string `json:"nickname,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Email    string `json:"email,omitempty"`
	Gender   *int   `json:"gender,omitempty"`
}

// IssuedToken is a one-shot idempotency token for order or payment creation.
type IssuedToken struct {
	Token         string `json:"token"`
	ExpireSeconds int    `json:"expire_seconds,omitempty"`
}

// DecodeIssuedToken reads the token from data.token or from the top level.
func DecodeIssuedToken(env *Envelope) (*IssuedToken, error) {
	t := &IssuedToken{}
	if raw, ok := env.Raw("data"); ok {
		if o, err := decodeObject(raw); err == nil {
			t.Token = o.str("token")
			t.ExpireSeconds, _ = o.integer("expire_seconds", "expireSeconds")
		} else {
			t.Token = asString(raw)
		}
	}
	if t.Token == "" {
		if raw, ok := env.Raw("token"); ok {
			t.Token = asString(raw)
		}
		if raw, ok := env.Raw("expire_seconds", "expireSeconds"); ok {
			t.ExpireSeconds, _ = asInt(raw)
		}
	}
	if t.Token == "" {
		return nil, ErrMissingField
	}
	return t, nil
}
