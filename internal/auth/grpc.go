package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopBackend/internal/apierr"
	"shopBackend/models"
)

// UserLookup resolves usernames; repository.UserRepository satisfies it.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata and injects the Principal into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
// On allow-listed methods a valid token is still attached when present.
func NewUnaryAuthInterceptor(secret string, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		p, err := ParseFromMD(ctx, secret)
		if _, ok := allow[info.FullMethod]; ok {
			if err == nil {
				ctx = WithPrincipal(ctx, p)
			}
			return handler(ctx, req)
		}
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, apierr.Unauthorized("missing principal")
	}
	return p, nil
}

// RequireKind ensures the principal has the given kind (lowercased compare).
func RequireKind(ctx context.Context, kind string) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Kind != strings.ToLower(kind) {
		return nil, apierr.Forbidden()
	}
	return p, nil
}

// RequireCustomer ensures the caller is a customer.
func RequireCustomer(ctx context.Context) (*Principal, error) {
	return RequireKind(ctx, KindCustomer)
}

// RequireAdmin ensures the caller is an admin principal AND that the underlying
// user exists with role ADMIN. This prevents spoofing by a non-admin.
func RequireAdmin(ctx context.Context, users UserLookup) (*Principal, error) {
	p, err := RequireKind(ctx, KindAdmin)
	if err != nil {
		return nil, err
	}
	if users == nil {
		return nil, apierr.Internal("admin check has no user lookup")
	}
	u, err := users.GetByUsername(ctx, p.Name)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsAdmin() {
		return nil, apierr.Forbidden()
	}
	return p, nil
}
