package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"shopBackend/internal/apierr"
	"shopBackend/internal/auth"
	"shopBackend/internal/logger"
	"shopBackend/internal/service"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registration struct {
	credentials
	Role string `json:"role"`
}

// AuthHandler serves /api/auth.
type AuthHandler struct {
	accounts *service.AccountService
	log      *logger.Logger
}

func NewAuthHandler(accounts *service.AccountService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, log: log}
}

func (h *AuthHandler) RegisterAdmin(c *gin.Context) {
	h.register(c, h.accounts.RegisterAdmin)
}

func (h *AuthHandler) RegisterCustomer(c *gin.Context) {
	h.register(c, h.accounts.RegisterCustomer)
}

// Register creates an account whose role is named in the body.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registration
	if !bindJSON(c, h.log, &req) {
		return
	}
	tok, err := h.accounts.Register(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: tok})
}

func (h *AuthHandler) register(c *gin.Context, fn func(ctx context.Context, username, password string) (string, error)) {
	var req credentials
	if !bindJSON(c, h.log, &req) {
		return
	}
	tok, err := fn(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: tok})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if !bindJSON(c, h.log, &req) {
		return
	}
	tok, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: tok})
}

// ItemHandler serves /api/items.
type ItemHandler struct {
	catalog *service.CatalogService
	log     *logger.Logger
}

func NewItemHandler(catalog *service.CatalogService, log *logger.Logger) *ItemHandler {
	return &ItemHandler{catalog: catalog, log: log}
}

// List serves the catalog. Optional query parameters: name, in_stock,
// page_size and after_id.
func (h *ItemHandler) List(c *gin.Context) {
	var f service.ItemFilter
	f.Name = c.Query("name")
	if v := c.Query("in_stock"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(c, h.log, apierr.Validation("Invalid in_stock: %s", v))
			return
		}
		f.InStockOnly = b
	}
	size, ok := queryInt(c, h.log, "page_size")
	if !ok {
		return
	}
	after, ok := queryInt(c, h.log, "after_id")
	if !ok {
		return
	}
	f.PageSize, f.AfterID = int(size), after
	items, err := h.catalog.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := pathID(c, h.log)
	if !ok {
		return
	}
	it, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *ItemHandler) Create(c *gin.Context) {
	var in service.ItemInput
	if !bindJSON(c, h.log, &in) {
		return
	}
	it, err := h.catalog.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

func (h *ItemHandler) Update(c *gin.Context) {
	id, ok := pathID(c, h.log)
	if !ok {
		return
	}
	var in service.ItemInput
	if !bindJSON(c, h.log, &in) {
		return
	}
	it, err := h.catalog.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *ItemHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, h.log)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type placeOrderRequest struct {
	Items []service.LineRequest `json:"items"`
}

// OrderHandler serves /api/orders.
type OrderHandler struct {
	orders *service.OrderService
	log    *logger.Logger
}

func NewOrderHandler(orders *service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

func (h *OrderHandler) Place(c *gin.Context) {
	p, ok := auth.FromContext(c.Request.Context())
	if !ok {
		respondError(c, h.log, apierr.Unauthorized("User is not authenticated"))
		return
	}
	var req placeOrderRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	v, err := h.orders.PlaceOrder(c.Request.Context(), p, req.Items)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// MyOrders lists the caller's orders. With page_size or page_token it returns
// one keyset page instead of the full history.
func (h *OrderHandler) MyOrders(c *gin.Context) {
	p, ok := auth.FromContext(c.Request.Context())
	if !ok {
		respondError(c, h.log, apierr.Unauthorized("User is not authenticated"))
		return
	}
	sizeParam, token := c.Query("page_size"), c.Query("page_token")
	if sizeParam != "" || token != "" {
		size := 0
		if sizeParam != "" {
			n, err := strconv.Atoi(sizeParam)
			if err != nil || n < 0 {
				respondError(c, h.log, apierr.Validation("Invalid page_size: %s", sizeParam))
				return
			}
			size = n
		}
		page, err := h.orders.OrdersForUserPage(c.Request.Context(), p, size, token)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		c.JSON(http.StatusOK, page)
		return
	}
	views, err := h.orders.OrdersForUser(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

// Get returns one order to its owner or to an admin.
func (h *OrderHandler) Get(c *gin.Context) {
	p, ok := auth.FromContext(c.Request.Context())
	if !ok {
		respondError(c, h.log, apierr.Unauthorized("User is not authenticated"))
		return
	}
	v, err := h.orders.GetOrder(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// All lists every order. Optional from and to (RFC 3339) bound the placement time.
func (h *OrderHandler) All(c *gin.Context) {
	var f service.OrderFilter
	var ok bool
	if f.From, ok = queryTime(c, h.log, "from"); !ok {
		return
	}
	if f.To, ok = queryTime(c, h.log, "to"); !ok {
		return
	}
	views, err := h.orders.AllOrders(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func bindJSON(c *gin.Context, log *logger.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, log, apierr.Validation("Malformed request body: %v", err))
		return false
	}
	return true
}

func pathID(c *gin.Context, log *logger.Logger) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, log, apierr.Validation("Invalid id: %s", raw))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, log *logger.Logger, key string) (int64, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		respondError(c, log, apierr.Validation("Invalid %s: %s", key, raw))
		return 0, false
	}
	return n, true
}

func queryTime(c *gin.Context, log *logger.Logger, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		respondError(c, log, apierr.Validation("Invalid %s: %s", key, raw))
		return nil, false
	}
	return &t, true
}
