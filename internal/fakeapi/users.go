package fakeapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"time"

	"storefront/internal/models"
	"storefront/internal/pkg/auth"
	"storefront/internal/pkg/security"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var phonePattern = regexp.MustCompile(`^1\d{10}$`)

const minPasswordLen = 6

// LastSMSCode returns the verification code most recently sent to phone.
func (s *Server) LastSMSCode(phone string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.smsCodes[phone]
	return c.code, ok
}

func (s *Server) issue(u *user) (body, error) {
	token, err := s.issuer.GenerateToken(u.profile.ID)
	if err != nil {
		return nil, err
	}
	return body{"data": body{"token": token, "user": u.profile}}, nil
}

// checkSMSCode consumes the code sent to phone. Callers hold s.mu.
func (s *Server) checkSMSCode(phone, code string) bool {
	c, ok := s.st.smsCodes[phone]
	if !ok || c.code != code || time.Now().After(c.expires) {
		return false
	}
	delete(s.st.smsCodes, phone)
	return true
}

func (s *Server) sendSMSCode(w http.ResponseWriter, r *http.Request) {
	var req models.SMSCodeRequest
	if !decode(w, r, &req) {
		return
	}
	if !phonePattern.MatchString(req.Phone) {
		fail(w, codeBadRequest, "手机号格式错误")
		return
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		s.logError("sms code", err)
		fail(w, http.StatusInternalServerError, "发送验证码失败")
		return
	}
	code := fmt.Sprintf("%06d", n.Int64())

	s.mu.Lock()
	s.st.smsCodes[req.Phone] = smsCode{code: code, expires: time.Now().Add(smsCodeTTL)}
	s.mu.Unlock()

	s.log.Info("sms code sent", zap.String("phone", req.Phone), zap.String("code", code))
	ok(w, "验证码已发送", body{"data": body{"expire_seconds": int(smsCodeTTL.Seconds())}})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	switch {
	case !phonePattern.MatchString(req.Phone):
		fail(w, codeBadRequest, "手机号格式错误")
		return
	case len(req.Password) < minPasswordLen:
		fail(w, codeBadRequest, "密码长度不能少于6位")
		return
	case req.Password != req.ConfirmPassword:
		fail(w, codeBadRequest, "两次输入的密码不一致")
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		s.logError("register", err)
		fail(w, http.StatusInternalServerError, "注册失败")
		return
	}

	s.mu.Lock()
	if _, exists := s.st.byPhone[req.Phone]; exists {
		s.mu.Unlock()
		fail(w, codeUserExists, "该手机号已注册")
		return
	}
	if !s.checkSMSCode(req.Phone, req.SMSCode) {
		s.mu.Unlock()
		fail(w, codeBadSMSCode, "验证码错误或已过期")
		return
	}
	u := &user{
		profile: models.UserProfile{
			ID:       uuid.NewString(),
			Phone:    req.Phone,
			Nickname: "用户" + req.Phone[len(req.Phone)-4:],
			Status:   1,
		},
		passwordHash: hash,
	}
	s.st.users[u.profile.ID] = u
	s.st.byPhone[req.Phone] = u.profile.ID
	s.mu.Unlock()

	out, err := s.issue(u)
	if err != nil {
		s.logError("register token", err)
		fail(w, http.StatusInternalServerError, "注册失败")
		return
	}
	ok(w, "注册成功", out)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	u := s.st.users[s.st.byPhone[req.Phone]]
	s.mu.Unlock()
	if u == nil {
		fail(w, codeBadLogin, "手机号或密码错误")
		return
	}
	if err := security.CheckPassword(u.passwordHash, req.Password); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logError("login", err)
		}
		fail(w, codeBadLogin, "手机号或密码错误")
		return
	}

	out, err := s.issue(u)
	if err != nil {
		s.logError("login token", err)
		fail(w, http.StatusInternalServerError, "登录失败")
		return
	}
	ok(w, "登录成功", out)
}

func (s *Server) loginBySMS(w http.ResponseWriter, r *http.Request) {
	var req models.SMSLoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	u := s.st.users[s.st.byPhone[req.Phone]]
	if u == nil {
		s.mu.Unlock()
		fail(w, codeNoSuchUser, "用户不存在")
		return
	}
	if !s.checkSMSCode(req.Phone, req.SMSCode) {
		s.mu.Unlock()
		fail(w, codeBadSMSCode, "验证码错误或已过期")
		return
	}
	s.mu.Unlock()

	out, err := s.issue(u)
	if err != nil {
		s.logError("sms login token", err)
		fail(w, http.StatusInternalServerError, "登录失败")
		return
	}
	ok(w, "登录成功", out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != currentUser(r) {
		fail(w, codeForbidden, "无权访问该用户")
		return
	}

	s.mu.Lock()
	u := s.st.users[id]
	s.mu.Unlock()
	if u == nil {
		fail(w, codeNotFound, "用户不存在")
		return
	}
	ok(w, "success", body{"data": u.profile})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != currentUser(r) {
		fail(w, codeForbidden, "无权修改该用户")
		return
	}
	var req models.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.st.users[id]
	if u == nil {
		fail(w, codeNotFound, "用户不存在")
		return
	}
	if req.Nickname != "" {
		u.profile.Nickname = req.Nickname
	}
	if req.Avatar != "" {
		u.profile.Avatar = req.Avatar
	}
	if req.Email != "" {
		u.profile.Email = req.Email
	}
	if req.Gender != nil {
		u.profile.Gender = *req.Gender
	}
	ok(w, "更新成功", body{"data": u.profile})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.st.revoked[auth.TokenID(r.Context())] = true
	s.mu.Unlock()
	ok(w, "退出成功", nil)
}
