package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, body string) *Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	return &env
}

func TestEnvelope(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		succeeded bool
		message   string
	}{
		{name: "zero code", body: `{"code":0,"message":"ok"}`, succeeded: true, message: "ok"},
		{name: "no code", body: `{"data":{}}`, succeeded: true},
		{name: "string code", body: `{"code":"401","message":"未登录"}`, succeeded: false, message: "未登录"},
		{name: "msg alias", body: `{"code":500,"msg":"boom"}`, succeeded: false, message: "boom"},
		{name: "null code", body: `{"code":null}`, succeeded: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := decodeEnvelope(t, tc.body)
			assert.Equal(t, tc.succeeded, env.Succeeded())
			assert.Equal(t, tc.message, env.Message)
		})
	}

	t.Run("non numeric code", func(t *testing.T) {
		var env Envelope
		assert.Error(t, json.Unmarshal([]byte(`{"code":"abc"}`), &env))
	})

	t.Run("decode missing field", func(t *testing.T) {
		env := decodeEnvelope(t, `{"code":0,"data":null}`)
		var v map[string]any
		assert.ErrorIs(t, env.Decode(&v, "data"), ErrMissingField)
	})

	t.Run("marshal round trip keeps payload", func(t *testing.T) {
		env := decodeEnvelope(t, `{"code":0,"message":"ok","items":[1,2]}`)
		b, err := json.Marshal(env)
		require.NoError(t, err)
		assert.JSONEq(t, `{"code":0,"message":"ok","items":[1,2]}`, string(b))
	})
}

func TestIDAcceptsStringOrNumber(t *testing.T) {
	var in struct {
		ProductID ID `json:"product_id"`
		SKUID     ID `json:"sku_id"`
		CouponID  ID `json:"coupon_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"product_id":12,"sku_id":"101","coupon_id":null}`), &in))
	assert.Equal(t, ID("12"), in.ProductID)
	assert.Equal(t, ID("101"), in.SKUID)
	assert.Empty(t, in.CouponID)

	assert.Error(t, json.Unmarshal([]byte(`{"product_id":true}`), &in))
	assert.Error(t, json.Unmarshal([]byte(`{"product_id":[1]}`), &in))
}

func TestNormalizeCartItem(t *testing.T) {
	testCases := []struct {
		name     string
		line     string
		expected CartItem
		price    string
	}{
		{
			name: "snake case with current price",
			line: `{"id":7,"product_id":1,"sku_id":"2","product_title":"Phone","title":"ignored",
				"product_image":"a.png","sku_name":"Black","current_price":"99.90","price":120,
				"quantity":2,"stock":5,"is_valid":true}`,
			expected: CartItem{ID: "7", ProductID: "1", SKUID: "2", Title: "Phone", Image: "a.png",
				SKUName: "Black", Quantity: 2, Stock: 5, Valid: true, Selected: true},
			price: "99.90",
		},
		{
			name: "camel case fallbacks",
			line: `{"id":"c1","productId":"p","skuId":"s","productTitle":"T","productImage":"i",
				"skuName":"n","currentPrice":5,"quantity":"3","isValid":false,"invalidReason":"delisted"}`,
			expected: CartItem{ID: "c1", ProductID: "p", SKUID: "s", Title: "T", Image: "i",
				SKUName: "n", Quantity: 3, Valid: false, InvalidReason: "delisted", Selected: false},
			price: "5.00",
		},
		{
			name:     "validity absent means valid",
			line:     `{"id":"x","title":"Plain","image":"p.png","price":"1.5","quantity":1}`,
			expected: CartItem{ID: "x", Title: "Plain", Image: "p.png", Quantity: 1, Valid: true, Selected: true},
			price:    "1.50",
		},
		{
			name:     "null current price falls back",
			line:     `{"id":"y","current_price":null,"price":3,"quantity":-4,"stock":-1}`,
			expected: CartItem{ID: "y", Valid: true, Selected: true},
			price:    "3.00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			item, err := NormalizeCartItem(json.RawMessage(tc.line))
			require.NoError(t, err)
			assert.Equal(t, tc.price, item.Price.StringFixed(2))
			item.Price = tc.expected.Price
			assert.Equal(t, tc.expected, item)
		})
	}
}

func TestDecodeCartPayload(t *testing.T) {
	env := decodeEnvelope(t, `{"code":0,"message":"ok",
		"items":[{"id":"a","price":"2.50","quantity":2},{"id":"b","price":1,"quantity":1,"is_valid":0}],
		"summary":{"totalItems":1,"total_quantity":2,"total_price":"5.00","has_invalid_items":true}}`)

	payload, err := DecodeCartPayload(env)
	require.NoError(t, err)
	require.Len(t, payload.Items, 2)
	assert.False(t, payload.Items[1].Selected)
	require.NotNil(t, payload.Summary)
	assert.Equal(t, 1, payload.Summary.TotalItems)
	assert.Equal(t, 2, payload.Summary.TotalQuantity)
	assert.True(t, payload.Summary.HasInvalidItems)
	assert.Equal(t, "5.00", payload.Summary.TotalPrice.StringFixed(2))

	local := Summarize(payload.Items)
	assert.Equal(t, payload.Summary.TotalItems, local.TotalItems)
	assert.True(t, payload.Summary.TotalPrice.Equal(local.TotalPrice))

	empty, err := DecodeCartPayload(decodeEnvelope(t, `{"code":0}`))
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Nil(t, empty.Summary)
}

func TestDecodeAuthPayload(t *testing.T) {
	env := decodeEnvelope(t, `{"code":0,"data":{"token":"jwt","user":{"id":42,"phone":"13800000000","nickname":"Ann"}}}`)
	payload, err := DecodeAuthPayload(env)
	require.NoError(t, err)
	assert.Equal(t, "jwt", payload.Token)
	require.NotNil(t, payload.User)
	assert.Equal(t, "42", payload.User.ID)
	assert.Equal(t, "Ann", payload.User.Nickname)

	payload, err = DecodeAuthPayload(decodeEnvelope(t, `{"code":0,"data":{"token":"jwt"}}`))
	require.NoError(t, err)
	assert.Nil(t, payload.User)
}

func TestDecodeIssuedToken(t *testing.T) {
	testCases := []struct {
		name  string
		body  string
		token string
		err   bool
	}{
		{name: "under data", body: `{"code":0,"data":{"token":"t1","expire_seconds":600}}`, token: "t1"},
		{name: "data is the token", body: `{"code":0,"data":"t2"}`, token: "t2"},
		{name: "top level", body: `{"code":0,"token":"t3"}`, token: "t3"},
		{name: "missing", body: `{"code":0}`, err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, err := DecodeIssuedToken(decodeEnvelope(t, tc.body))
			if tc.err {
				assert.ErrorIs(t, err, ErrMissingField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.token, token.Token)
		})
	}
}
