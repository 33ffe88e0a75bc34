package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/dbtest"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/db/models"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/events"
	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/repository"
)

const admin = "0xAdmin"

func newTestService(t *testing.T) (*Service, *[]events.Event) {
	t.Helper()
	db := dbtest.New(t)
	bus := events.NewBus(zerolog.Nop())
	var published []events.Event
	bus.Subscribe(func(e events.Event) { published = append(published, e) })
	return NewService(repository.NewBunRoleRepository(db), admin).WithBus(bus), &published
}

func TestService_GrantAndHasRole(t *testing.T) {
	svc, published := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, admin, "alice", custody.RoleCollector))
	require.NoError(t, svc.Grant(ctx, admin, "alice", custody.RoleLab))

	for role, want := range map[custody.Role]bool{
		custody.RoleCollector:    true,
		custody.RoleMiddleman:    false,
		custody.RoleLab:          true,
		custody.RoleManufacturer: false,
	} {
		got, err := svc.HasRole(ctx, "alice", role)
		require.NoError(t, err)
		assert.Equal(t, want, got, role.String())
	}

	mask, err := svc.Roles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, custody.Role(5), mask)

	require.Len(t, *published, 2)
	assert.Equal(t, events.KindRoleGranted, (*published)[1].Kind)
	assert.Equal(t, custody.Role(5), (*published)[1].Mask)
}

func TestService_UnknownPrincipalHoldsNothing(t *testing.T) {
	svc, _ := newTestService(t)

	got, err := svc.HasRole(context.Background(), "nobody", custody.RoleCollector)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestService_Idempotent(t *testing.T) {
	svc, published := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, admin, "bob", custody.RoleMiddleman))
	require.NoError(t, svc.Grant(ctx, admin, "bob", custody.RoleMiddleman))
	require.NoError(t, svc.Revoke(ctx, admin, "bob", custody.RoleLab))

	mask, err := svc.Roles(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, custody.RoleMiddleman, mask)
	assert.Len(t, *published, 1, "no-op changes publish nothing")

	require.NoError(t, svc.Revoke(ctx, admin, "bob", custody.RoleMiddleman))
	require.NoError(t, svc.Revoke(ctx, admin, "bob", custody.RoleMiddleman))
	mask, err = svc.Roles(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, custody.Role(0), mask)
	assert.Len(t, *published, 2)
}

func TestService_OnlyAdminMutates(t *testing.T) {
	svc, published := newTestService(t)
	ctx := context.Background()

	err := svc.Grant(ctx, "mallory", "mallory", custody.RoleCollector)
	assert.ErrorIs(t, err, custody.ErrUnauthorized)

	require.NoError(t, svc.Grant(ctx, admin, "carol", custody.RoleLab))
	err = svc.Revoke(ctx, "carol", "carol", custody.RoleLab)
	assert.ErrorIs(t, err, custody.ErrUnauthorized)

	ok, err := svc.HasRole(ctx, "carol", custody.RoleLab)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, *published, 1)
}

func TestService_InvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Grant(ctx, admin, "alice", 0), custody.ErrInvalidInput)
	assert.ErrorIs(t, svc.Grant(ctx, admin, "alice", 16), custody.ErrInvalidInput)
	assert.ErrorIs(t, svc.Grant(ctx, admin, "", custody.RoleLab), custody.ErrInvalidInput)
}

func TestService_List(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Grant(ctx, admin, "zed", custody.RoleManufacturer))
	require.NoError(t, svc.Grant(ctx, admin, "amy", custody.RoleCollector|custody.RoleMiddleman))
	require.NoError(t, svc.Grant(ctx, admin, "gone", custody.RoleLab))
	require.NoError(t, svc.Revoke(ctx, admin, "gone", custody.RoleLab))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "amy", list[0].Principal)
	assert.Equal(t, []string{"collector", "middleman"}, list[0].Roles)
	assert.Equal(t, "zed", list[1].Principal)
}

// MockRoleRepository is a mock implementation of repository.RoleRepository
type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) Get(ctx context.Context, principal string) (custody.Role, error) {
	args := m.Called(ctx, principal)
	return args.Get(0).(custody.Role), args.Error(1)
}

func (m *MockRoleRepository) Apply(ctx context.Context, change repository.RoleChange, event *models.LedgerEvent) (*repository.RoleChangeResult, error) {
	args := m.Called(ctx, change, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.RoleChangeResult), args.Error(1)
}

func (m *MockRoleRepository) List(ctx context.Context) ([]models.RoleAssignment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RoleAssignment), args.Error(1)
}

func TestService_RepositoryFailure(t *testing.T) {
	repo := new(MockRoleRepository)
	repo.On("Apply", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	repo.On("Get", mock.Anything, "alice").Return(custody.Role(0), errors.New("connection reset"))

	svc := NewService(repo, admin)
	ctx := context.Background()

	err := svc.Grant(ctx, admin, "alice", custody.RoleLab)
	require.Error(t, err)
	assert.Equal(t, "internal", custody.Code(err))

	_, err = svc.HasRole(ctx, "alice", custody.RoleLab)
	require.Error(t, err)
	repo.AssertExpectations(t)
}

func TestService_AdminAddressMatchesAnySpelling(t *testing.T) {
	db := dbtest.New(t)
	const lower = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	const checksummed = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	svc := NewService(repository.NewBunRoleRepository(db), lower)
	ctx := context.Background()

	assert.Equal(t, checksummed, svc.Admin())
	require.NoError(t, svc.RequireAdmin(checksummed))
	require.NoError(t, svc.Grant(ctx, checksummed, "alice", custody.RoleCollector))

	require.NoError(t, svc.Grant(ctx, lower, "alice", custody.RoleLab))

	mask, err := svc.Roles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, custody.RoleCollector|custody.RoleLab, mask)
}

func TestService_RequireAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	assert.NoError(t, svc.RequireAdmin(admin))
	assert.ErrorIs(t, svc.RequireAdmin("alice"), custody.ErrUnauthorized)
	assert.ErrorIs(t, svc.RequireAdmin(""), custody.ErrUnauthorized)

	unadministered := NewService(repository.NewBunRoleRepository(dbtest.New(t)), "")
	assert.ErrorIs(t, unadministered.RequireAdmin(""), custody.ErrUnauthorized)
}
