package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/pkg/i18n"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/notify"
	"storefront/internal/storage"
	"storefront/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newTestAPI(t *testing.T, responses map[string]string) (*API, *[]recorded) {
	t.Helper()
	var calls []recorded
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.EscapedPath(), query: r.URL.RawQuery}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &rec.body))
		}
		calls = append(calls, rec)
		body, ok := responses[r.Method+" "+r.URL.Path]
		if !ok {
			body = `{"code":0,"message":"ok"}`
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)

	l := logger.Nop()
	client := transport.New(
		transport.Config{BaseURL: ts.URL, Timeout: time.Second, Messages: i18n.New("en")},
		transport.NewStoredCredentials(storage.NewMemory(), l),
		notify.NewQueue(l), nil, l)
	return New(client), &calls
}

func TestUsersRegisterSendsConfirmation(t *testing.T) {
	a, calls := newTestAPI(t, map[string]string{
		"POST /users/register": `{"code":0,"data":{"token":"t","user":{"id":1}}}`,
	})

	payload, err := a.Users.Register(context.Background(), "13800000000", "secret1", "123456")
	require.NoError(t, err)
	assert.Equal(t, "t", payload.Token)
	assert.Equal(t, "1", payload.User.ID)

	require.Len(t, *calls, 1)
	body := (*calls)[0].body
	assert.Equal(t, "secret1", body["password"])
	assert.Equal(t, body["password"], body["confirm_password"])
	assert.Equal(t, "123456", body["sms_code"])
}

func TestCartRequests(t *testing.T) {
	a, calls := newTestAPI(t, map[string]string{
		"GET /cart/summary":           `{"code":0,"data":{"total_items":2,"total_quantity":3,"total_price":"30.00"}}`,
		"POST /cart/checkout-preview": `{"code":0,"data":{"items":[],"final_amount":"10.00"}}`,
		"POST /cart/refresh":          `{"code":0,"message":"1 item became invalid","items":[{"id":"a","is_valid":false}]}`,
	})
	ctx := context.Background()

	require.NoError(t, a.Cart.AddItem(ctx, models.AddItemRequest{ProductID: "1", SKUID: "2", Quantity: 1}))
	require.NoError(t, a.Cart.UpdateQuantity(ctx, "i/1", 4))
	require.NoError(t, a.Cart.RemoveItem(ctx, "i2"))
	require.NoError(t, a.Cart.RemoveItems(ctx, []string{"i3", "i4"}))
	require.NoError(t, a.Cart.Clear(ctx))

	summary, err := a.Cart.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalQuantity)

	preview, err := a.Cart.CheckoutPreview(ctx, models.CheckoutPreviewRequest{ItemIDs: []string{"i3"}})
	require.NoError(t, err)
	assert.Equal(t, "10.00", preview.FinalAmount.StringFixed(2))

	refreshed, err := a.Cart.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1 item became invalid", refreshed.Message)
	require.Len(t, refreshed.Items, 1)
	assert.False(t, refreshed.Items[0].Selected)

	got := *calls
	require.Len(t, got, 8)
	assert.Equal(t, "POST", got[0].method)
	assert.Equal(t, "1", got[0].body["product_id"])
	assert.Equal(t, "2", got[0].body["sku_id"])

	assert.Equal(t, "PUT", got[1].method)
	assert.Equal(t, "/cart/items/i%2F1/quantity", got[1].path)
	assert.Equal(t, "i/1", got[1].body["item_id"])
	assert.EqualValues(t, 4, got[1].body["quantity"])

	assert.Equal(t, "DELETE /cart/items/i2", got[2].method+" "+got[2].path)
	assert.Equal(t, []any{"i3", "i4"}, got[3].body["item_ids"])
	assert.Equal(t, "DELETE /cart", got[4].method+" "+got[4].path)
}

func TestOrdersAndPayments(t *testing.T) {
	a, calls := newTestAPI(t, map[string]string{
		"GET /orders/token":   `{"code":0,"token":"ot"}`,
		"GET /payments/token": `{"code":0,"data":{"token":"pt"}}`,
		"GET /orders":         `{"code":0,"data":{"orders":null,"total":0}}`,
		"POST /payments":      `{"code":0,"data":{"payment_no":"P1","order_no":"O1","amount":"9.90","status":1}}`,
	})
	ctx := context.Background()

	token, err := a.Orders.OrderToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ot", token.Token)

	token, err = a.Payments.PaymentToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pt", token.Token)

	page, err := a.Orders.ListOrders(ctx, models.OrderQuery{})
	require.NoError(t, err)
	assert.NotNil(t, page.Orders)

	payment, err := a.Payments.CreatePayment(ctx, models.CreatePaymentRequest{OrderNo: "O1", PayChannel: "alipay"})
	require.NoError(t, err)
	assert.Equal(t, "9.90", payment.Amount.StringFixed(2))

	got := *calls
	require.Len(t, got, 4)
	assert.Equal(t, "page=1&page_size=20&status=0", got[2].query)
}

func TestBusinessFailureIsReturned(t *testing.T) {
	a, _ := newTestAPI(t, map[string]string{
		"POST /cart/items": `{"code":3001,"message":"库存不足"}`,
	})

	err := a.Cart.AddItem(context.Background(), models.AddItemRequest{ProductID: "1", SKUID: "1", Quantity: 99})
	code, ok := transport.IsBusiness(err)
	assert.True(t, ok)
	assert.Equal(t, 3001, code)
}
