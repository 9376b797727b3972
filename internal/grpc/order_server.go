package grpcserver

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopBackend/internal/apierr"
	"shopBackend/internal/auth"
	"shopBackend/internal/logger"
	"shopBackend/internal/service"
)

// Server implements OrderServiceServer on top of the service layer.
type Server struct {
	Orders  *service.OrderService
	Catalog *service.CatalogService
	Users   auth.UserLookup
	Log     *logger.Logger
}

var _ OrderServiceServer = (*Server)(nil)

// PlaceOrder places an order for the authenticated customer.
func (s *Server) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	p, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	v, err := s.Orders.PlaceOrder(ctx, p, req.Items)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &PlaceOrderResponse{Order: *v}, nil
}

// ListMyOrders returns one page of the caller's orders, newest first.
func (s *Server) ListMyOrders(ctx context.Context, req *ListMyOrdersRequest) (*ListOrdersResponse, error) {
	p, err := auth.RequireCustomer(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	page, err := s.Orders.OrdersForUserPage(ctx, p, int(req.PageSize), req.PageToken)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &ListOrdersResponse{Orders: page.Orders, NextPageToken: page.NextPageToken}, nil
}

// ListAllOrders returns every order in the requested time range; admins only.
func (s *Server) ListAllOrders(ctx context.Context, req *ListAllOrdersRequest) (*ListOrdersResponse, error) {
	if _, err := auth.RequireAdmin(ctx, s.Users); err != nil {
		return nil, s.toStatus(err)
	}
	views, err := s.Orders.AllOrders(ctx, service.OrderFilter{From: req.From, To: req.To})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &ListOrdersResponse{Orders: views}, nil
}

// GetOrder returns one order to its owner or to an admin.
func (s *Server) GetOrder(ctx context.Context, req *GetOrderRequest) (*GetOrderResponse, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	v, err := s.Orders.GetOrder(ctx, p, req.OrderID)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &GetOrderResponse{Order: *v}, nil
}

// ListItems returns the catalog; no authentication required.
func (s *Server) ListItems(ctx context.Context, req *ListItemsRequest) (*ListItemsResponse, error) {
	items, err := s.Catalog.List(ctx, service.ItemFilter{
		Name:        req.Name,
		InStockOnly: req.InStockOnly,
		PageSize:    int(req.PageSize),
		AfterID:     req.AfterID,
	})
	if err != nil {
		return nil, s.toStatus(err)
	}
	return &ListItemsResponse{Items: items}, nil
}

// toStatus maps service errors to gRPC status errors. Internal causes are
// logged and replaced by a generic message.
func (s *Server) toStatus(err error) error {
	code, msg := apierr.GRPCCode(err)
	if code == codes.Internal && s.Log != nil {
		s.Log.Error("grpc request failed", "error", err)
	}
	return status.Error(code, msg)
}
