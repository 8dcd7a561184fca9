// Package i18n holds the user-facing notification texts of the storefront
// in a golang.org/x/text message catalog. Keys are the English texts.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Key identifies a user-facing message.
type Key string

const (
	OperationFailed     Key = "Operation failed"
	LoginExpired        Key = "Login expired, please log in again"
	Forbidden           Key = "You do not have permission to access this resource"
	ServerError         Key = "Server error, please try again later"
	RequestFailed       Key = "Request failed"
	NetworkError        Key = "Network error, please check your connection"
	LoginFailed         Key = "Login failed"
	RegisterFailed      Key = "Registration failed"
	SMSLoginFailed      Key = "SMS login failed"
	SMSCodeFailed       Key = "Failed to send verification code"
	UpdateProfileFailed Key = "Failed to update profile"
	AddedToCart         Key = "Added to cart"
	AddToCartFailed     Key = "Failed to add to cart"
)

var simplifiedChinese = map[Key]string{
	OperationFailed:     "操作失败",
	LoginExpired:        "登录已过期，请重新登录",
	Forbidden:           "没有权限访问",
	ServerError:         "服务器错误，请稍后重试",
	RequestFailed:       "请求失败",
	NetworkError:        "网络错误，请检查网络连接",
	LoginFailed:         "登录失败",
	RegisterFailed:      "注册失败",
	SMSLoginFailed:      "验证码登录失败",
	SMSCodeFailed:       "发送验证码失败",
	UpdateProfileFailed: "更新用户信息失败",
	AddedToCart:         "已加入购物车",
	AddToCartFailed:     "加入购物车失败",
}

func init() {
	for key, text := range simplifiedChinese {
		message.SetString(language.SimplifiedChinese, string(key), text)
		message.SetString(language.English, string(key), string(key))
	}
}

// Messages renders keys for one language.
type Messages struct {
	tag     language.Tag
	printer *message.Printer
}

var (
	supported = []language.Tag{language.English, language.SimplifiedChinese}
	matcher   = language.NewMatcher(supported)
)

// New returns Messages for the best catalog match of lang ("zh-Hans", "en", "zh-CN"...).
// Unknown languages fall back to English.
func New(lang string) *Messages {
	_, idx, _ := matcher.Match(language.Make(lang))
	tag := supported[idx]
	return &Messages{tag: tag, printer: message.NewPrinter(tag)}
}

// Get returns the localized text for key.
func (m *Messages) Get(key Key) string {
	if m == nil {
		return string(key)
	}
	return m.printer.Sprintf(string(key))
}

// Language reports the matched catalog language.
func (m *Messages) Language() language.Tag {
	return m.tag
}
