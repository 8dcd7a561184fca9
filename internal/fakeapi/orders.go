package fakeapi

import (
	"net/http"
	"net/url"
	"sort"
	"time"

	"storefront/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CompletePayment marks a payment successful and its order paid, the way the
// payment provider callback would.
func (s *Server) CompletePayment(paymentNo string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.st.payments[paymentNo]
	if !found || p.Status != models.PaymentStatusPending {
		return false
	}
	p.Status = models.PaymentStatusSuccess
	p.PaidAt = time.Now()
	if o, found := s.st.orders[p.OrderNo]; found {
		o.Status = models.OrderStatusPaid
	}
	return true
}

func (s *Server) orderToken(w http.ResponseWriter, r *http.Request) {
	token := uuid.NewString()
	s.mu.Lock()
	s.st.orderTokens[token] = currentUser(r)
	s.mu.Unlock()
	ok(w, "success", body{"data": body{"token": token, "expire_seconds": tokenExpireHint}})
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 {
		fail(w, codeBadRequest, "订单商品不能为空")
		return
	}
	userID := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, found := s.st.orderTokens[req.Token]; !found || owner != userID {
		fail(w, codeDuplicate, "请勿重复提交订单")
		return
	}
	delete(s.st.orderTokens, req.Token)

	items := make([]models.OrderItem, 0, len(req.Items))
	total := decimal.Decimal{}
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			fail(w, codeBadRequest, "数量必须大于0")
			return
		}
		p, found := s.st.products[line.ProductID]
		if !found || p.Status != productOnSale {
			fail(w, codeUnavailable, "商品不存在或已下架")
			return
		}
		sku, found := s.st.skus[line.SKUID]
		if !found || sku.ProductID != line.ProductID {
			fail(w, codeUnavailable, "商品规格不存在")
			return
		}
		if sku.Stock < line.Quantity {
			fail(w, codeOutOfStock, p.Title+" "+reasonOutOfStock)
			return
		}
		items = append(items, models.OrderItem{
			ProductID:    p.ID,
			SKUID:        sku.ID,
			ProductTitle: p.Title,
			SKUName:      sku.Name,
			Price:        sku.Price,
			Quantity:     line.Quantity,
		})
		total = total.Add(sku.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	ordered := map[[2]string]bool{}
	for _, item := range items {
		s.st.skus[item.SKUID].Stock -= item.Quantity
		ordered[[2]string{item.ProductID, item.SKUID}] = true
	}
	s.st.removeLines(userID, func(l *cartLine) bool { return ordered[[2]string{l.ProductID, l.SKUID}] })

	pay := total
	if total.LessThan(freeShipping) {
		pay = pay.Add(shippingFee)
	}
	if req.CouponID == welcomeCoupon && total.GreaterThan(welcomeDiscount) {
		pay = pay.Sub(welcomeDiscount)
	}
	o := &order{
		Order: models.Order{
			OrderNo:     s.nextID("O"),
			Status:      models.OrderStatusPending,
			TotalAmount: total,
			PayAmount:   pay,
			AddressID:   req.AddressID,
			BuyerRemark: req.BuyerRemark,
			Items:       items,
		},
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	s.st.orders[o.OrderNo] = o
	ok(w, "下单成功", body{"data": o.Order})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	status := queryInt(r, "status", models.OrderStatusAll)
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	s.mu.Lock()
	mine := []*order{}
	for _, o := range s.st.orders {
		if o.UserID == userID && (status == models.OrderStatusAll || o.Status == status) {
			mine = append(mine, o)
		}
	}
	sort.Slice(mine, func(i, j int) bool {
		if mine[i].CreatedAt.Equal(mine[j].CreatedAt) {
			return mine[i].OrderNo > mine[j].OrderNo
		}
		return mine[i].CreatedAt.After(mine[j].CreatedAt)
	})
	start := min((page-1)*pageSize, len(mine))
	end := min(start+pageSize, len(mine))
	orders := make([]models.Order, 0, end-start)
	for _, o := range mine[start:end] {
		orders = append(orders, o.Order)
	}
	s.mu.Unlock()

	ok(w, "success", body{"data": models.OrderPage{
		Orders:   orders,
		Total:    len(mine),
		Page:     page,
		PageSize: pageSize,
	}})
}

// ownOrder returns the caller's order. Callers hold s.mu.
func (s *Server) ownOrder(r *http.Request, orderNo string) *order {
	o, found := s.st.orders[orderNo]
	if !found || o.UserID != currentUser(r) {
		return nil
	}
	return o
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	o := s.ownOrder(r, chi.URLParam(r, "no"))
	var view models.Order
	if o != nil {
		view = o.Order
	}
	s.mu.Unlock()
	if o == nil {
		fail(w, codeNotFound, "订单不存在")
		return
	}
	ok(w, "success", body{"data": view})
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CancelOrderRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.ownOrder(r, chi.URLParam(r, "no"))
	if o == nil {
		fail(w, codeNotFound, "订单不存在")
		return
	}
	if o.Status != models.OrderStatusPending {
		fail(w, codeBadOrderStat, "当前订单状态不允许取消")
		return
	}
	for _, item := range o.Items {
		if sku, found := s.st.skus[item.SKUID]; found {
			sku.Stock += item.Quantity
		}
	}
	o.Status = models.OrderStatusCancelled
	o.CancelReason = req.Reason
	ok(w, "订单已取消", nil)
}

// paymentToken answers with the token at the top level of the envelope.
func (s *Server) paymentToken(w http.ResponseWriter, r *http.Request) {
	token := uuid.NewString()
	s.mu.Lock()
	s.st.paymentTokens[token] = currentUser(r)
	s.mu.Unlock()
	ok(w, "success", body{"token": token, "expire_seconds": tokenExpireHint})
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePaymentRequest
	if !decode(w, r, &req) {
		return
	}
	userID := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, found := s.st.paymentTokens[req.Token]; !found || owner != userID {
		fail(w, codeDuplicate, "请勿重复提交支付")
		return
	}
	delete(s.st.paymentTokens, req.Token)

	o := s.ownOrder(r, req.OrderNo)
	if o == nil {
		fail(w, codeNotFound, "订单不存在")
		return
	}
	if o.Status != models.OrderStatusPending {
		fail(w, codeBadOrderStat, "订单当前状态不可支付")
		return
	}

	no := s.nextID("P")
	payURL := "/pay/mock?" + url.Values{"payment_no": {no}, "channel": {req.PayChannel}}.Encode()
	if req.ReturnURL != "" {
		payURL += "&" + url.Values{"return_url": {req.ReturnURL}}.Encode()
	}
	p := &payment{
		Payment: models.Payment{
			PaymentNo: no,
			OrderNo:   o.OrderNo,
			Amount:    o.PayAmount,
			Status:    models.PaymentStatusPending,
			PayURL:    payURL,
		},
		UserID: userID,
	}
	s.st.payments[no] = p
	ok(w, "支付单已创建", body{"data": p.Payment})
}

func (s *Server) paymentStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	p, found := s.st.payments[chi.URLParam(r, "no")]
	var status models.PaymentStatus
	if found && p.UserID == currentUser(r) {
		status = models.PaymentStatus{PaymentNo: p.PaymentNo, OrderNo: p.OrderNo, Status: p.Status}
		if !p.PaidAt.IsZero() {
			status.PaidAt = p.PaidAt.Format(time.RFC3339)
		}
	} else {
		found = false
	}
	s.mu.Unlock()
	if !found {
		fail(w, codeNotFound, "支付单不存在")
		return
	}
	ok(w, "success", body{"data": status})
}
