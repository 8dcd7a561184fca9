package cart

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/cart/mocks"
	"storefront/internal/models"
	"storefront/internal/pkg/i18n"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/notify"
	"storefront/internal/transport"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBusiness = &transport.Error{Kind: transport.KindBusiness, Code: 3001, Message: "库存不足"}

func newStore(t *testing.T) (*Store, *mocks.MockAPI, *notify.Queue) {
	t.Helper()
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	q := notify.NewQueue(logger.Nop())
	return New(api, q, i18n.New("en"), logger.Nop()), api, q
}

func line(id string, price string, qty int, valid bool) models.CartItem {
	return models.CartItem{
		ID:        id,
		ProductID: "p-" + id,
		SKUID:     "s-" + id,
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
		Valid:     valid,
		Selected:  valid,
	}
}

func payload(items ...models.CartItem) *models.CartPayload {
	summary := models.Summarize(items)
	return &models.CartPayload{Items: items, Summary: &summary}
}

func expectReconcile(api *mocks.MockAPI, p *models.CartPayload) *gomock.Call {
	return api.EXPECT().Summary(gomock.Any()).Return(p.Summary, nil).After(
		api.EXPECT().Get(gomock.Any()).Return(p, nil))
}

func seed(t *testing.T, s *Store, api *mocks.MockAPI, items ...models.CartItem) {
	t.Helper()
	api.EXPECT().Get(gomock.Any()).Return(payload(items...), nil)
	s.LoadCart(context.Background())
	require.Len(t, s.Items(), len(items))
}

func TestLoadCart(t *testing.T) {
	ctx := context.Background()
	s, api, _ := newStore(t)

	seed(t, s, api, line("a", "10.00", 2, true), line("b", "5.50", 1, false))
	assert.Equal(t, 1, s.Summary().TotalItems)
	assert.True(t, s.Summary().HasInvalidItems)
	assert.Equal(t, 3, s.TotalCount())
	assert.Equal(t, "25.50", s.TotalPrice().StringFixed(2))
	assert.Len(t, s.InvalidItems(), 1)

	t.Run("failure leaves state untouched", func(t *testing.T) {
		api.EXPECT().Get(gomock.Any()).Return(nil, &transport.Error{Kind: transport.KindNetwork})
		s.LoadCart(ctx)
		assert.Len(t, s.Items(), 2)
	})

	t.Run("missing summary keeps the previous one", func(t *testing.T) {
		api.EXPECT().Get(gomock.Any()).Return(&models.CartPayload{Items: []models.CartItem{line("c", "1", 1, true)}}, nil)
		s.LoadCart(ctx)
		assert.Len(t, s.Items(), 1)
		assert.Equal(t, 1, s.Summary().TotalItems)
		assert.Equal(t, "20.00", s.Summary().TotalPrice.StringFixed(2))
	})

	t.Run("summary failure is swallowed", func(t *testing.T) {
		api.EXPECT().Summary(gomock.Any()).Return(nil, errBusiness)
		s.RefreshSummary(ctx)
		assert.Equal(t, 1, s.Summary().TotalItems)
	})
}

func TestAddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("success notifies then reloads", func(t *testing.T) {
		s, api, q := newStore(t)
		after := payload(line("a", "10", 1, true))
		gomock.InOrder(
			api.EXPECT().AddItem(gomock.Any(), models.AddItemRequest{ProductID: "1", SKUID: "2", Quantity: 1}).Return(nil),
			api.EXPECT().Get(gomock.Any()).Return(after, nil),
			api.EXPECT().Summary(gomock.Any()).Return(after.Summary, nil),
		)

		require.NoError(t, s.AddItem(ctx, AddItemInput{ProductID: "1", SKUID: "2"}))
		assert.Len(t, s.Items(), 1)
		assert.Equal(t, []notify.Notification{{Level: notify.LevelSuccess, Message: string(i18n.AddedToCart)}}, q.Drain())
	})

	t.Run("business failure returns the error without reload", func(t *testing.T) {
		s, api, q := newStore(t)
		api.EXPECT().AddItem(gomock.Any(), gomock.Any()).Return(errBusiness)

		err := s.AddItem(ctx, AddItemInput{ProductID: "1", SKUID: "2", Quantity: 99})
		assert.ErrorIs(t, err, errBusiness)
		assert.Empty(t, q.Drain())
		assert.Empty(t, s.Items())
	})
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	item := line("a", "10", 2, true)

	for _, qty := range []int{0, -1} {
		s, api, _ := newStore(t)
		gomock.InOrder(
			api.EXPECT().RemoveItem(gomock.Any(), "a").Return(nil),
			api.EXPECT().Get(gomock.Any()).Return(payload(), nil),
			api.EXPECT().Summary(gomock.Any()).Return(&models.CartSummary{}, nil),
		)
		require.NoError(t, s.UpdateQuantity(ctx, item, qty))
	}

	t.Run("positive quantity updates then reloads", func(t *testing.T) {
		s, api, _ := newStore(t)
		after := payload(line("a", "10", 3, true))
		api.EXPECT().UpdateQuantity(gomock.Any(), "a", 3).Return(nil)
		expectReconcile(api, after)

		require.NoError(t, s.UpdateQuantity(ctx, item, 3))
		assert.Equal(t, 3, s.Items()[0].Quantity)
		assert.Equal(t, 3, s.Summary().TotalQuantity)
	})

	t.Run("failed update still reconciles", func(t *testing.T) {
		s, api, _ := newStore(t)
		unchanged := payload(item)
		api.EXPECT().UpdateQuantity(gomock.Any(), "a", 50).Return(errBusiness)
		expectReconcile(api, unchanged)

		assert.ErrorIs(t, s.UpdateQuantity(ctx, item, 50), errBusiness)
		assert.Equal(t, 2, s.Items()[0].Quantity)
	})
}

func TestRemoveSelectedItems(t *testing.T) {
	ctx := context.Background()

	t.Run("no selection makes no call", func(t *testing.T) {
		s, api, _ := newStore(t)
		seed(t, s, api, line("a", "1", 1, false), line("b", "1", 1, true))
		s.SelectAll(false)
		before := s.Items()

		require.NoError(t, s.RemoveSelectedItems(ctx))
		assert.Equal(t, before, s.Items())
	})

	t.Run("sends only selected ids", func(t *testing.T) {
		s, api, _ := newStore(t)
		seed(t, s, api, line("a", "1", 1, true), line("b", "1", 1, true), line("c", "1", 1, false))
		assert.True(t, s.SetSelected("b", false))
		assert.False(t, s.SetSelected("missing", true))

		api.EXPECT().RemoveItems(gomock.Any(), []string{"a"}).Return(nil)
		expectReconcile(api, payload(line("b", "1", 1, true), line("c", "1", 1, false)))

		require.NoError(t, s.RemoveSelectedItems(ctx))
		assert.Len(t, s.Items(), 2)
	})
}

func TestSelectAllSkipsInvalidLines(t *testing.T) {
	s, api, _ := newStore(t)
	seed(t, s, api, line("a", "1", 1, true), line("b", "1", 1, false))

	s.SelectAll(false)
	assert.Empty(t, s.SelectedIDs())
	s.SelectAll(true)
	assert.Equal(t, []string{"a"}, s.SelectedIDs())
}

func TestSelectionSurvivesReload(t *testing.T) {
	s, api, _ := newStore(t)
	seed(t, s, api, line("a", "1", 1, true), line("b", "1", 1, true), line("c", "1", 1, true))
	assert.True(t, s.SetSelected("a", false))

	delisted := line("c", "1", 1, false)
	api.EXPECT().Get(gomock.Any()).Return(payload(line("a", "1", 1, true), line("b", "1", 1, true), delisted, line("d", "1", 1, true)), nil)
	s.LoadCart(context.Background())

	assert.Equal(t, []string{"b", "d"}, s.SelectedIDs())
}

func TestClearCart(t *testing.T) {
	ctx := context.Background()

	t.Run("success resets without reload", func(t *testing.T) {
		s, api, _ := newStore(t)
		seed(t, s, api, line("a", "10", 2, true))
		api.EXPECT().Clear(gomock.Any()).Return(nil)

		require.NoError(t, s.ClearCart(ctx))
		assert.Empty(t, s.Items())
		assert.Equal(t, models.CartSummary{}, s.Summary())
		assert.Zero(t, s.TotalCount())
	})

	t.Run("failure keeps the lines", func(t *testing.T) {
		s, api, _ := newStore(t)
		seed(t, s, api, line("a", "10", 2, true))
		api.EXPECT().Clear(gomock.Any()).Return(errors.New("boom"))

		assert.Error(t, s.ClearCart(ctx))
		assert.Len(t, s.Items(), 1)
	})
}

func TestRefreshCart(t *testing.T) {
	ctx := context.Background()
	s, api, _ := newStore(t)
	seed(t, s, api, line("a", "10", 1, true))

	refreshed := &models.CartPayload{
		Message: "1 item became invalid",
		Items:   []models.CartItem{line("a", "12", 1, false)},
	}
	api.EXPECT().Refresh(gomock.Any()).Return(refreshed, nil)

	got, err := s.RefreshCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, refreshed, got)
	assert.Len(t, s.InvalidItems(), 1)
	assert.True(t, s.Summary().HasInvalidItems)
	assert.Zero(t, s.Summary().TotalItems)

	api.EXPECT().Refresh(gomock.Any()).Return(nil, errBusiness)
	_, err = s.RefreshCart(ctx)
	assert.Error(t, err)
	assert.Len(t, s.Items(), 1)
}

func TestPreviewCheckoutIsStateless(t *testing.T) {
	ctx := context.Background()
	s, api, _ := newStore(t)
	seed(t, s, api, line("a", "10", 1, true))

	req := models.CheckoutPreviewRequest{ItemIDs: []string{"a"}, CouponID: "c1"}
	preview := &models.CheckoutPreview{FinalAmount: decimal.RequireFromString("8")}
	api.EXPECT().CheckoutPreview(gomock.Any(), req).Return(preview, nil)

	got, err := s.PreviewCheckout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, preview, got)
	assert.Len(t, s.Items(), 1)
}

func TestStaleSnapshotIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s, api, _ := newStore(t)

	started := make(chan struct{})
	release := make(chan struct{})
	stale := payload(line("old", "1", 1, true))
	fresh := payload(line("new", "2", 2, true))

	api.EXPECT().Get(gomock.Any()).DoAndReturn(func(context.Context) (*models.CartPayload, error) {
		close(started)
		<-release
		return stale, nil
	})
	api.EXPECT().Get(gomock.Any()).Return(fresh, nil)

	done := make(chan struct{})
	go func() {
		s.LoadCart(ctx)
		close(done)
	}()
	<-started
	s.LoadCart(ctx)
	close(release)
	<-done

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "new", items[0].ID)
	assert.Equal(t, 2, s.Summary().TotalQuantity)
}

func TestReset(t *testing.T) {
	s, api, _ := newStore(t)
	seed(t, s, api, line("a", "10.00", 2, true))

	s.Reset()
	assert.Empty(t, s.Items())
	assert.Equal(t, models.CartSummary{}, s.Summary())
	assert.Zero(t, s.TotalCount())
}
