package fakeapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPhone = "13800138000"

type fixture struct {
	t   *testing.T
	api *Server
	srv *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := New("test-secret", logger.Nop())
	srv := httptest.NewServer(api.Router())
	t.Cleanup(srv.Close)
	return &fixture{t: t, api: api, srv: srv}
}

// call sends a request and returns the HTTP status and decoded body.
func (f *fixture) call(method, path, token string, payload any) (int, map[string]any) {
	f.t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(f.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	require.NoError(f.t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func code(out map[string]any) int {
	n, _ := out["code"].(float64)
	return int(n)
}

func data(out map[string]any) map[string]any {
	d, _ := out["data"].(map[string]any)
	return d
}

func (f *fixture) register() string {
	f.t.Helper()
	_, out := f.call(http.MethodPost, "/users/sms-code", "", map[string]string{"phone": testPhone})
	require.Equal(f.t, codeOK, code(out))
	sms, found := f.api.LastSMSCode(testPhone)
	require.True(f.t, found)

	_, out = f.call(http.MethodPost, "/users/register", "", map[string]string{
		"phone": testPhone, "password": "secret1", "confirm_password": "secret1", "sms_code": sms,
	})
	require.Equal(f.t, codeOK, code(out), out["message"])
	token, _ := data(out)["token"].(string)
	require.NotEmpty(f.t, token)
	return token
}

func TestAuthFailures(t *testing.T) {
	f := newFixture(t)

	status, out := f.call(http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 401, code(out))
	assert.Equal(t, "未登录", out["message"])

	status, _ = f.call(http.MethodGet, "/cart", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	token := f.register()
	_, out = f.call(http.MethodPost, "/users/logout", token, nil)
	assert.Equal(t, codeOK, code(out))
	status, _ = f.call(http.MethodGet, "/cart", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	f.register()

	_, out := f.call(http.MethodPost, "/users/sms-code", "", map[string]string{"phone": testPhone})
	require.Equal(t, codeOK, code(out))
	sms, _ := f.api.LastSMSCode(testPhone)
	_, out = f.call(http.MethodPost, "/users/register", "", map[string]string{
		"phone": testPhone, "password": "secret1", "confirm_password": "secret1", "sms_code": sms,
	})
	assert.Equal(t, codeUserExists, code(out))

	_, out = f.call(http.MethodPost, "/users/login", "", map[string]string{"phone": testPhone, "password": "wrong!"})
	assert.Equal(t, codeBadLogin, code(out))

	_, out = f.call(http.MethodPost, "/users/login", "", map[string]string{"phone": testPhone, "password": "secret1"})
	require.Equal(t, codeOK, code(out))
	user, _ := data(out)["user"].(map[string]any)
	assert.Equal(t, "用户8000", user["nickname"])

	_, out = f.call(http.MethodPost, "/users/login-by-sms", "", map[string]string{"phone": testPhone, "sms_code": "000000"})
	assert.Equal(t, codeBadSMSCode, code(out))
}

func TestCartAccumulatesAndChecksStock(t *testing.T) {
	f := newFixture(t)
	token := f.register()

	add := map[string]any{"product_id": "1", "sku_id": "102", "quantity": 2}
	for range 2 {
		_, out := f.call(http.MethodPost, "/cart/items", token, add)
		require.Equal(t, codeOK, code(out))
	}
	_, out := f.call(http.MethodGet, "/cart", token, nil)
	items, _ := out["items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.EqualValues(t, 4, line["quantity"])

	// stock of 102 is 5
	_, out = f.call(http.MethodPost, "/cart/items", token, add)
	assert.Equal(t, codeOutOfStock, code(out))

	_, out = f.call(http.MethodPost, "/cart/items", token, map[string]any{"product_id": 3, "sku_id": 302, "quantity": 1})
	assert.Equal(t, codeOutOfStock, code(out))

	_, out = f.call(http.MethodPut, "/cart/items/"+line["id"].(string)+"/quantity", token, map[string]any{"quantity": 0})
	assert.Equal(t, codeBadRequest, code(out))
	_, out = f.call(http.MethodPut, "/cart/items/missing/quantity", token, map[string]any{"quantity": 1})
	assert.Equal(t, codeNoSuchLine, code(out))

	_, out = f.call(http.MethodGet, "/cart/summary", token, nil)
	summary := data(out)
	assert.EqualValues(t, 1, summary["total_items"])
	assert.EqualValues(t, 4, summary["total_quantity"])
	assert.Equal(t, "5996", summary["total_price"])
}

func TestRefreshMarksDelistedLines(t *testing.T) {
	f := newFixture(t)
	token := f.register()

	_, out := f.call(http.MethodPost, "/cart/items", token, map[string]any{"product_id": "2", "sku_id": "201", "quantity": 1})
	require.Equal(t, codeOK, code(out))
	_, out = f.call(http.MethodPost, "/cart/items", token, map[string]any{"product_id": "3", "sku_id": "301", "quantity": 1})
	require.Equal(t, codeOK, code(out))

	require.True(t, f.api.Delist("3"))
	require.True(t, f.api.SetPrice("201", decimal.RequireFromString("199")))

	_, out = f.call(http.MethodPost, "/cart/refresh", token, nil)
	require.Equal(t, codeOK, code(out))
	assert.Contains(t, out["message"], "1件商品价格变动")
	summary, _ := out["summary"].(map[string]any)
	assert.Equal(t, true, summary["has_invalid_items"])
	assert.Equal(t, "199", summary["total_price"])
}

func TestCheckoutPreviewShipping(t *testing.T) {
	f := newFixture(t)
	token := f.register()

	_, out := f.call(http.MethodPost, "/cart/checkout-preview", token, map[string]any{})
	assert.Equal(t, codeBadRequest, code(out))

	_, out = f.call(http.MethodPost, "/cart/items", token, map[string]any{"product_id": "3", "sku_id": "301", "quantity": 1})
	require.Equal(t, codeOK, code(out))
	_, out = f.call(http.MethodPost, "/cart/checkout-preview", token, map[string]any{})
	require.Equal(t, codeOK, code(out))
	assert.Equal(t, "10", data(out)["shipping_fee"])
	assert.Equal(t, "89", data(out)["final_amount"])
}

func TestOrderLifecycle(t *testing.T) {
	f := newFixture(t)
	token := f.register()

	_, out := f.call(http.MethodPost, "/cart/items", token, map[string]any{"product_id": "1", "sku_id": "101", "quantity": 2})
	require.Equal(t, codeOK, code(out))

	_, out = f.call(http.MethodGet, "/orders/token", token, nil)
	orderToken, _ := data(out)["token"].(string)
	require.NotEmpty(t, orderToken)

	place := map[string]any{
		"items": []map[string]any{{"product_id": "1", "sku_id": "101", "quantity": 2}},
		"token": orderToken,
	}
	_, out = f.call(http.MethodPost, "/orders", token, place)
	require.Equal(t, codeOK, code(out), out["message"])
	orderNo, _ := data(out)["order_no"].(string)
	assert.Equal(t, "2598", data(out)["pay_amount"])

	_, out = f.call(http.MethodPost, "/orders", token, place)
	assert.Equal(t, codeDuplicate, code(out))

	_, out = f.call(http.MethodGet, "/cart", token, nil)
	assert.Empty(t, out["items"])

	_, out = f.call(http.MethodGet, "/orders?status=1", token, nil)
	assert.EqualValues(t, 1, data(out)["total"])

	_, out = f.call(http.MethodGet, "/payments/token", token, nil)
	payToken, _ := out["token"].(string)
	require.NotEmpty(t, payToken)
	_, out = f.call(http.MethodPost, "/payments", token, map[string]any{"order_no": orderNo, "pay_channel": "alipay", "token": payToken})
	require.Equal(t, codeOK, code(out), out["message"])
	paymentNo, _ := data(out)["payment_no"].(string)
	assert.Contains(t, data(out)["pay_url"], "payment_no="+paymentNo)

	require.True(t, f.api.CompletePayment(paymentNo))
	_, out = f.call(http.MethodGet, "/payments/"+paymentNo+"/status", token, nil)
	assert.EqualValues(t, 2, data(out)["status"])

	_, out = f.call(http.MethodPost, "/orders/"+orderNo+"/cancel", token, map[string]string{"reason": "late"})
	assert.Equal(t, codeBadOrderStat, code(out))
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	token := f.register()

	_, out := f.call(http.MethodGet, "/orders/token", token, nil)
	orderToken, _ := data(out)["token"].(string)
	_, out = f.call(http.MethodPost, "/orders", token, map[string]any{
		"items": []map[string]any{{"product_id": "1", "sku_id": "102", "quantity": 5}},
		"token": orderToken,
	})
	require.Equal(t, codeOK, code(out), out["message"])
	orderNo, _ := data(out)["order_no"].(string)

	_, out = f.call(http.MethodGet, "/product/skus/102", "", nil)
	assert.EqualValues(t, 0, data(out)["stock"])

	_, out = f.call(http.MethodPost, "/orders/"+orderNo+"/cancel", token, map[string]string{"reason": "changed mind"})
	require.Equal(t, codeOK, code(out))

	_, out = f.call(http.MethodGet, "/product/skus/102", "", nil)
	assert.EqualValues(t, 5, data(out)["stock"])

	_, out = f.call(http.MethodGet, "/orders/"+orderNo, token, nil)
	assert.EqualValues(t, 5, data(out)["status"])
	assert.Equal(t, "changed mind", data(out)["cancel_reason"])
}

func TestCatalog(t *testing.T) {
	f := newFixture(t)

	_, out := f.call(http.MethodGet, "/product/search?keyword=redmi", "", nil)
	assert.EqualValues(t, 1, data(out)["total"])

	_, out = f.call(http.MethodGet, "/product/products?brand_id=1&page_size=1", "", nil)
	assert.EqualValues(t, 2, data(out)["total"])
	assert.Len(t, data(out)["products"], 1)

	_, out = f.call(http.MethodGet, "/product/products/9", "", nil)
	assert.Equal(t, codeNotFound, code(out))

	require.True(t, f.api.Delist("1"))
	_, out = f.call(http.MethodGet, "/product/search?keyword=redmi", "", nil)
	assert.EqualValues(t, 0, data(out)["total"])
}
