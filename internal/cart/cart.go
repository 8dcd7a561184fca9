// Package cart mirrors the server-side shopping cart. Local state is never
// patched after a mutation: each mutation is followed by a reload of the line
// list and the summary, and the newest snapshot replaces the old one wholesale.
package cart

import (
	"context"
	"sync"

	"storefront/internal/models"
	"storefront/internal/pkg/i18n"
	"storefront/internal/pkg/logger"
	"storefront/internal/pkg/notify"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/mock_api.go -package=mocks storefront/internal/cart API

// API is the cart endpoint surface. *api.Cart implements it.
type API interface {
	AddItem(ctx context.Context, req models.AddItemRequest) error
	UpdateQuantity(ctx context.Context, itemID string, quantity int) error
	RemoveItem(ctx context.Context, itemID string) error
	RemoveItems(ctx context.Context, itemIDs []string) error
	Clear(ctx context.Context) error
	Get(ctx context.Context) (*models.CartPayload, error)
	Summary(ctx context.Context) (*models.CartSummary, error)
	Refresh(ctx context.Context) (*models.CartPayload, error)
	CheckoutPreview(ctx context.Context, req models.CheckoutPreviewRequest) (*models.CheckoutPreview, error)
}

// AddItemInput names the line to add. Quantity defaults to 1.
type AddItemInput struct {
	ProductID string
	SKUID     string
	Quantity  int
}

// Store is the cart state. It is safe for concurrent use.
type Store struct {
	api      API
	notifier notify.Notifier
	msgs     *i18n.Messages
	log      *logger.Logger

	mu      sync.RWMutex
	items   []models.CartItem
	summary models.CartSummary
	// next numbers snapshot fetches in start order; itemsSeq and summarySeq
	// are the numbers of the snapshots currently applied.
	next       uint64
	itemsSeq   uint64
	summarySeq uint64
}

// New creates an empty Store.
func New(api API, notifier notify.Notifier, msgs *i18n.Messages, l *logger.Logger) *Store {
	return &Store{
		api:      api,
		notifier: notifier,
		msgs:     msgs,
		log:      l.Named("cart"),
		items:    []models.CartItem{},
	}
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}

// applyItems replaces the line list unless a later-started fetch already did.
// A line that was already held keeps its selection while it stays valid.
func (s *Store) applyItems(seq uint64, items []models.CartItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.itemsSeq {
		s.log.Debug("discarding stale cart snapshot", zap.Uint64("seq", seq), zap.Uint64("applied", s.itemsSeq))
		return false
	}
	selected := make(map[string]bool, len(s.items))
	for _, item := range s.items {
		selected[item.ID] = item.Selected
	}
	s.itemsSeq = seq
	s.items = append([]models.CartItem{}, items...)
	for i := range s.items {
		if prev, ok := selected[s.items[i].ID]; ok {
			s.items[i].Selected = prev && s.items[i].Valid
		}
	}
	return true
}

func (s *Store) applySummary(seq uint64, summary models.CartSummary) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.summarySeq {
		s.log.Debug("discarding stale summary", zap.Uint64("seq", seq), zap.Uint64("applied", s.summarySeq))
		return false
	}
	s.summarySeq = seq
	s.summary = summary
	return true
}

// LoadCart replaces the lines, and the summary when the response carries one.
// Failures are logged and leave the state untouched.
func (s *Store) LoadCart(ctx context.Context) {
	seq := s.begin()
	payload, err := s.api.Get(ctx)
	if err != nil {
		s.log.Warn("load cart", zap.Error(err))
		return
	}
	s.applyItems(seq, payload.Items)
	if payload.Summary != nil {
		s.applySummary(seq, *payload.Summary)
	}
}

// RefreshSummary replaces the summary with the server figure. Failures are
// logged and leave the state untouched.
func (s *Store) RefreshSummary(ctx context.Context) {
	seq := s.begin()
	summary, err := s.api.Summary(ctx)
	if err != nil {
		s.log.Warn("refresh cart summary", zap.Error(err))
		return
	}
	if summary == nil {
		return
	}
	s.applySummary(seq, *summary)
}

func (s *Store) reconcile(ctx context.Context) {
	s.LoadCart(ctx)
	s.RefreshSummary(ctx)
}

// AddItem adds a line. On failure the error is returned and the cart is not
// reloaded; the transport has already shown the server message.
func (s *Store) AddItem(ctx context.Context, in AddItemInput) error {
	quantity := in.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	err := s.api.AddItem(ctx, models.AddItemRequest{
		ProductID: in.ProductID,
		SKUID:     in.SKUID,
		Quantity:  quantity,
	})
	if err != nil {
		s.log.Info("add to cart failed",
			zap.String("product_id", in.ProductID),
			zap.String("sku_id", in.SKUID),
			zap.Error(err))
		return err
	}
	s.notifier.Success(s.msgs.Get(i18n.AddedToCart))
	s.reconcile(ctx)
	return nil
}

// UpdateQuantity sets the quantity of item. A quantity of zero or less
// removes the line instead.
func (s *Store) UpdateQuantity(ctx context.Context, item models.CartItem, quantity int) error {
	if quantity <= 0 {
		return s.RemoveItem(ctx, item)
	}
	err := s.api.UpdateQuantity(ctx, item.ID, quantity)
	if err != nil {
		s.log.Info("update quantity failed", zap.String("item_id", item.ID), zap.Error(err))
	}
	s.reconcile(ctx)
	return err
}

// RemoveItem deletes item.
func (s *Store) RemoveItem(ctx context.Context, item models.CartItem) error {
	err := s.api.RemoveItem(ctx, item.ID)
	if err != nil {
		s.log.Info("remove item failed", zap.String("item_id", item.ID), zap.Error(err))
	}
	s.reconcile(ctx)
	return err
}

// RemoveSelectedItems deletes every selected line. Without a selection it
// does nothing.
func (s *Store) RemoveSelectedItems(ctx context.Context) error {
	ids := s.SelectedIDs()
	if len(ids) == 0 {
		return nil
	}
	err := s.api.RemoveItems(ctx, ids)
	if err != nil {
		s.log.Info("batch delete failed", zap.Strings("item_ids", ids), zap.Error(err))
	}
	s.reconcile(ctx)
	return err
}

// ClearCart empties the cart and, on success, resets the local state
// without a reload.
func (s *Store) ClearCart(ctx context.Context) error {
	if err := s.api.Clear(ctx); err != nil {
		s.log.Info("clear cart failed", zap.Error(err))
		return err
	}
	seq := s.begin()
	s.applyItems(seq, nil)
	s.applySummary(seq, models.CartSummary{})
	return nil
}

// Reset drops the local state without calling the server, as on logout.
// Fetches already in flight are discarded when they land.
func (s *Store) Reset() {
	seq := s.begin()
	s.applyItems(seq, nil)
	s.applySummary(seq, models.CartSummary{})
}

// RefreshCart asks the server to re-price and re-validate the cart and
// replaces the local state with the result. The payload is returned so the
// caller can show lines that became invalid.
func (s *Store) RefreshCart(ctx context.Context) (*models.CartPayload, error) {
	seq := s.begin()
	payload, err := s.api.Refresh(ctx)
	if err != nil {
		s.log.Info("refresh cart failed", zap.Error(err))
		return nil, err
	}
	s.applyItems(seq, payload.Items)
	summary := models.Summarize(payload.Items)
	if payload.Summary != nil {
		summary = *payload.Summary
	}
	s.applySummary(seq, summary)
	return payload, nil
}

// PreviewCheckout returns the server price breakdown for the given lines
// without touching local state.
func (s *Store) PreviewCheckout(ctx context.Context, req models.CheckoutPreviewRequest) (*models.CheckoutPreview, error) {
	return s.api.CheckoutPreview(ctx, req)
}

// Items returns a copy of the lines.
func (s *Store) Items() []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.CartItem{}, s.items...)
}

// Summary returns the last server-authoritative aggregate.
func (s *Store) Summary() models.CartSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary
}

// TotalCount is the sum of quantities over the local lines.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// TotalPrice is the sum of price × quantity over the local lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total decimal.Decimal
	for _, item := range s.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// InvalidItems returns the lines the server marked invalid.
func (s *Store) InvalidItems() []models.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.CartItem{}
	for _, item := range s.items {
		if !item.Valid {
			out = append(out, item)
		}
	}
	return out
}

// SetSelected marks one line. It reports whether the line exists.
func (s *Store) SetSelected(itemID string, selected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == itemID {
			s.items[i].Selected = selected
			return true
		}
	}
	return false
}

// SelectAll selects every valid line, or clears the selection.
func (s *Store) SelectAll(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		s.items[i].Selected = selected && s.items[i].Valid
	}
}

// SelectedIDs returns the server ids of the selected lines.
func (s *Store) SelectedIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, item := range s.items {
		if item.Selected {
			ids = append(ids, item.ID)
		}
	}
	return ids
}
