package auth

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shopBackend/internal/apierr"
	"shopBackend/internal/testutil"
	"shopBackend/models"
	"shopBackend/repository"
)

func TestRequireKindAndHelpers(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{Name: "c1", Kind: KindCustomer})
	if _, err := RequireCustomer(ctx); err != nil {
		t.Fatalf("RequireCustomer: %v", err)
	}
	if _, err := RequireAdmin(ctx, nil); !apierr.HasCode(err, apierr.CodeForbidden) {
		t.Fatalf("expected forbidden for customer, got %v", err)
	}
	admin := WithPrincipal(context.Background(), &Principal{Name: "a1", Kind: KindAdmin})
	if _, err := RequireAdmin(admin, nil); !apierr.HasCode(err, apierr.CodeInternal) {
		t.Fatalf("expected internal error without a user lookup, got %v", err)
	}
	if _, err := RequireCustomer(context.Background()); !apierr.HasCode(err, apierr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized without principal, got %v", err)
	}
}

func TestRequireAdmin_WithDBRoleCheck(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authadmin")
	users := repository.NewUserRepository(d)
	ctx := context.Background()
	if _, err := users.Create(ctx, "alice", "h", models.RoleCustomer); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	// Spoofed principal kind=admin but DB role is customer
	pctx := WithPrincipal(ctx, &Principal{Name: "alice", Kind: KindAdmin})
	if _, err := RequireAdmin(pctx, users); err == nil {
		t.Fatalf("expected forbidden for non-admin role")
	}

	if _, err := users.Create(ctx, "root", "h", models.RoleAdmin); err != nil {
		t.Fatalf("create root: %v", err)
	}
	rctx := WithPrincipal(ctx, &Principal{Name: "root", Kind: KindAdmin})
	if _, err := RequireAdmin(rctx, users); err != nil {
		t.Fatalf("RequireAdmin real admin: %v", err)
	}

	ghost := WithPrincipal(ctx, &Principal{Name: "ghost", Kind: KindAdmin})
	if _, err := RequireAdmin(ghost, users); err == nil {
		t.Fatalf("expected forbidden for unknown user")
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	interceptor := NewUnaryAuthInterceptor(secret, "/health")

	// Allow-listed path without header: handler runs with no principal.
	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/health"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if _, ok := FromContext(ctx); ok {
			t.Fatalf("expected no principal on allowlisted path")
		}
		return 123, nil
	})
	if err != nil || !hCalled {
		t.Fatalf("allowlisted handler err=%v called=%v", err, hCalled)
	}

	// Authenticated path: with token, principal injected.
	tok := testutil.GenerateJWTHS256(t, secret, "bob", "customer")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		p, ok := FromContext(ctx)
		if !ok || p.Name != "bob" || p.Kind != KindCustomer {
			t.Fatalf("principal not injected: %+v ok=%v", p, ok)
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor auth path: %v", err)
	}

	// Protected path without token is rejected before the handler.
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Op"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}
}
