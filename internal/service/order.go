package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"shopBackend/internal/apierr"
	"shopBackend/internal/auth"
	"shopBackend/internal/logger"
	"shopBackend/models"
	"shopBackend/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// LineRequest is one requested (item, quantity) pair.
type LineRequest struct {
	ItemID   int64 `json:"itemId"`
	Quantity int   `json:"quantity"`
}

// OrderItemView is one line of an order as returned to clients.
type OrderItemView struct {
	ItemID   int64           `json:"itemId"`
	ItemName string          `json:"itemName"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderView is the client projection of an order.
type OrderView struct {
	OrderID    string          `json:"orderId"`
	Items      []OrderItemView `json:"items"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Timestamp  time.Time       `json:"timestamp"`
}

// OrderPage is one page of a keyset-paginated order listing.
type OrderPage struct {
	Orders        []OrderView `json:"orders"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
}

// NewOrderView projects a stored order. Item name and price come from the
// snapshot taken at placement.
func NewOrderView(o models.Order) OrderView {
	items := make([]OrderItemView, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, OrderItemView{ItemID: l.ItemID, ItemName: l.ItemName, Quantity: l.Quantity, Price: l.UnitPrice})
	}
	return OrderView{OrderID: o.ID, Items: items, TotalPrice: o.TotalPrice, Timestamp: o.CreatedAt}
}

func newOrderViews(orders []models.Order) []OrderView {
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderView(o))
	}
	return out
}

// OrderService places orders and answers order history queries.
type OrderService struct {
	tx     repository.TxRunner
	users  repository.UserRepositoryI
	items  repository.ItemRepositoryI
	orders repository.OrderRepositoryI
	log    *logger.Logger
	tracer trace.Tracer

	now   func() time.Time
	newID func() string
}

func NewOrderService(tx repository.TxRunner, users repository.UserRepositoryI, items repository.ItemRepositoryI,
	orders repository.OrderRepositoryI, log *logger.Logger) *OrderService {
	if log == nil {
		log = logger.Nop()
	}
	return &OrderService{
		tx:     tx,
		users:  users,
		items:  items,
		orders: orders,
		log:    log.With("service", "OrderService"),
		tracer: otel.Tracer("shopBackend/service"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// PlaceOrder validates stock, decrements it, prices the lines and stores the
// order, all in one transaction. Any failure leaves stock and orders untouched.
func (s *OrderService) PlaceOrder(ctx context.Context, p *auth.Principal, lines []LineRequest) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.PlaceOrder", trace.WithAttributes(attribute.Int("order.lines", len(lines))))
	defer span.End()

	user, err := s.resolveUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:        s.newID(),
		UserID:    user.ID,
		Lines:     make([]models.OrderLine, 0, len(lines)),
		CreatedAt: s.now().UTC(),
	}
	log := s.log.With("order_id", order.ID, "user_id", user.ID)
	log.Debug("placing order", "lines", len(lines))

	err = s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		for i, l := range lines {
			it, err := s.items.GetByIDTx(ctx, tx, l.ItemID)
			if err != nil {
				return fmt.Errorf("load item %d: %w", l.ItemID, err)
			}
			if it == nil {
				return itemNotFound(l.ItemID)
			}
			log.Debug("decrementing stock", "line", i, "item_id", it.ID, "available", it.Quantity, "requested", l.Quantity)
			ok, err := s.items.DecrementStock(ctx, tx, it.ID, l.Quantity)
			if err != nil {
				return fmt.Errorf("decrement item %d: %w", it.ID, err)
			}
			if !ok {
				return apierr.InsufficientStock(it.Name)
			}
			order.Lines = append(order.Lines, models.OrderLine{
				ItemID:    it.ID,
				ItemName:  it.Name,
				Quantity:  l.Quantity,
				UnitPrice: it.Price,
			})
		}
		order.TotalPrice = order.SumLines()
		return s.orders.Insert(ctx, tx, order)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order failed")
		log.Warn("order rejected", "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.total", order.TotalPrice.String()))
	log.Info("order placed", "total", order.TotalPrice.String())
	v := NewOrderView(*order)
	return &v, nil
}

// OrdersForUser returns the principal's orders, newest first.
func (s *OrderService) OrdersForUser(ctx context.Context, p *auth.Principal) ([]OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.OrdersForUser")
	defer span.End()

	user, err := s.resolveUser(ctx, p)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return newOrderViews(orders), nil
}

// OrdersForUserPage is the keyset-paginated form of OrdersForUser. An empty
// token starts at the newest order; an empty NextPageToken marks the last page.
func (s *OrderService) OrdersForUserPage(ctx context.Context, p *auth.Principal, pageSize int, pageToken string) (*OrderPage, error) {
	user, err := s.resolveUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	var after *repository.OrderCursor
	if pageToken != "" {
		if after, err = decodeCursor(pageToken); err != nil {
			return nil, apierr.Validation("invalid page token: %v", err)
		}
	}
	orders, err := s.orders.ListByUserIDPage(ctx, user.ID, pageSize, after)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	page := &OrderPage{Orders: newOrderViews(orders)}
	if len(orders) == pageSize {
		page.NextPageToken = encodeCursor(repository.CursorOf(orders[len(orders)-1]))
	}
	return page, nil
}

// OrderFilter bounds an order listing by placement time, both ends inclusive.
type OrderFilter struct {
	From *time.Time
	To   *time.Time
}

// AllOrders returns every order in the system matching f, newest first.
func (s *OrderService) AllOrders(ctx context.Context, f OrderFilter) ([]OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.AllOrders")
	defer span.End()

	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apierr.Validation("from must not be after to")
	}
	orders, err := s.orders.List(ctx, repository.ListOrdersParams{CreatedFrom: f.From, CreatedTo: f.To})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return newOrderViews(orders), nil
}

// GetOrder returns one order. Customers only see their own orders; admins see
// any. An order the caller may not see is reported as missing.
func (s *OrderService) GetOrder(ctx context.Context, p *auth.Principal, orderID string) (*OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	user, err := s.resolveUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, apierr.Validation("Order id is required")
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil || (o.UserID != user.ID && !user.IsAdmin()) {
		return nil, apierr.NotFound("Order not found with id %s", orderID)
	}
	v := NewOrderView(*o)
	return &v, nil
}

func (s *OrderService) resolveUser(ctx context.Context, p *auth.Principal) (*models.User, error) {
	if p == nil || p.Name == "" {
		return nil, apierr.Unauthorized("missing principal")
	}
	u, err := s.users.GetByUsername(ctx, p.Name)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return nil, apierr.NotFound("User not found")
	}
	return u, nil
}

func validateLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return apierr.Validation("Order must contain at least one item")
	}
	for _, l := range lines {
		if l.ItemID <= 0 {
			return apierr.Validation("Invalid item id: %d", l.ItemID)
		}
		if l.Quantity <= 0 {
			return apierr.Validation("Quantity must be positive for item %d", l.ItemID)
		}
	}
	return nil
}
