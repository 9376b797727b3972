package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopBackend/internal/apierr"
	"shopBackend/internal/auth"
	"shopBackend/internal/testutil"
	"shopBackend/models"
	"shopBackend/repository"
)

const secret = "svc-secret"

func newAccountService(t *testing.T, name string) (*AccountService, *repository.UserRepository) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	users := repository.NewUserRepository(d)
	return NewAccountService(users, auth.NewIssuer(secret, time.Hour), nil), users
}

func TestAccount_RegisterAndLogin(t *testing.T) {
	svc, users := newAccountService(t, "acctlogin")
	ctx := context.Background()

	tok, err := svc.RegisterCustomer(ctx, "alice", "pw")
	require.NoError(t, err)
	p, err := auth.ParseBearer("Bearer "+tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, auth.KindCustomer, p.Kind)

	u, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEqual(t, "pw", u.PasswordHash)
	assert.Equal(t, models.RoleCustomer, u.Role)

	tok, err = svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.True(t, apierr.HasCode(err, apierr.CodeUnauthorized))
	assert.Equal(t, MsgInvalidCredentials, err.Error())

	_, err = svc.Login(ctx, "nobody", "pw")
	assert.True(t, apierr.HasCode(err, apierr.CodeUnauthorized))
	assert.Equal(t, MsgInvalidCredentials, err.Error())
}

func TestAccount_DuplicateUsernameRejected(t *testing.T) {
	svc, _ := newAccountService(t, "acctdup")
	ctx := context.Background()

	_, err := svc.RegisterAdmin(ctx, "root", "pw")
	require.NoError(t, err)
	_, err = svc.RegisterCustomer(ctx, "root", "other")
	require.Error(t, err)
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
	assert.Equal(t, MsgUsernameTaken, err.Error())
}

func TestAccount_RegisterValidation(t *testing.T) {
	svc, _ := newAccountService(t, "acctvalidate")
	ctx := context.Background()

	_, err := svc.Register(ctx, "carol", "pw", "superuser")
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
	assert.Equal(t, "Invalid role: superuser", err.Error())

	_, err = svc.RegisterCustomer(ctx, "  ", "pw")
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
	_, err = svc.RegisterCustomer(ctx, "dave", "")
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))

	tok, err := svc.Register(ctx, "erin", "pw", "admin")
	require.NoError(t, err)
	p, err := auth.ParseBearer("Bearer "+tok, secret)
	require.NoError(t, err)
	assert.Equal(t, auth.KindAdmin, p.Kind)
}

func TestAccount_EnsureAdmin(t *testing.T) {
	svc, users := newAccountService(t, "acctseed")
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "ops", "pw")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.EnsureAdmin(ctx, "ops", "pw")
	require.NoError(t, err)
	assert.False(t, created)

	u, err := users.GetByUsername(ctx, "ops")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
}

func TestCatalog_CRUD(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "catalogcrud")
	svc := NewCatalogService(repository.NewItemRepository(d), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, ItemInput{Name: "", Quantity: 1, Price: decimal.NewFromInt(1)})
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
	_, err = svc.Create(ctx, ItemInput{Name: "x", Quantity: -1, Price: decimal.NewFromInt(1)})
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
	_, err = svc.Create(ctx, ItemInput{Name: "x", Quantity: 1, Price: decimal.NewFromInt(-1)})
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))

	it, err := svc.Create(ctx, ItemInput{Name: "mug", Quantity: 3, Price: decimal.RequireFromString("4.50")})
	require.NoError(t, err)
	assert.NotZero(t, it.ID)

	got, err := svc.Get(ctx, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "mug", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("4.5")))

	upd, err := svc.Update(ctx, it.ID, ItemInput{Name: "big mug", Quantity: 7, Price: decimal.NewFromInt(6)})
	require.NoError(t, err)
	assert.Equal(t, "big mug", upd.Name)

	_, err = svc.Update(ctx, 9999, ItemInput{Name: "n", Quantity: 1, Price: decimal.Zero})
	assert.True(t, apierr.HasCode(err, apierr.CodeNotFound))

	list, err := svc.List(ctx, ItemFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 7, list[0].Quantity)

	require.NoError(t, svc.Delete(ctx, it.ID))
	assert.True(t, apierr.HasCode(svc.Delete(ctx, it.ID), apierr.CodeNotFound))
	_, err = svc.Get(ctx, it.ID)
	assert.True(t, apierr.HasCode(err, apierr.CodeNotFound))
}

func TestCatalog_ListFilters(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "svccatalogfilter")
	svc := NewCatalogService(repository.NewItemRepository(d), nil)
	ctx := context.Background()

	var ids []int64
	for _, in := range []ItemInput{
		{Name: "red pen", Quantity: 3, Price: decimal.NewFromInt(1)},
		{Name: "blue pen", Quantity: 0, Price: decimal.NewFromInt(1)},
		{Name: "mug", Quantity: 2, Price: decimal.NewFromInt(5)},
	} {
		it, err := svc.Create(ctx, in)
		require.NoError(t, err)
		ids = append(ids, it.ID)
	}

	pens, err := svc.List(ctx, ItemFilter{Name: " pen "})
	require.NoError(t, err)
	assert.Len(t, pens, 2)

	inStock, err := svc.List(ctx, ItemFilter{Name: "pen", InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.Equal(t, "red pen", inStock[0].Name)

	page, err := svc.List(ctx, ItemFilter{PageSize: 1, AfterID: ids[0]})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)

	_, err = svc.List(ctx, ItemFilter{PageSize: -1})
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
	_, err = svc.List(ctx, ItemFilter{AfterID: -5})
	assert.True(t, apierr.HasCode(err, apierr.CodeValidation))
}
