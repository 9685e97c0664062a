package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceNewsScanner/internal/domain"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (m *memUsers) Create(_ context.Context, username, hash string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[string]domain.User{}
	}
	if _, ok := m.users[username]; ok {
		return domain.User{}, domain.ErrUserExists
	}
	u := domain.User{ID: int64(len(m.users) + 1), Username: username, PasswordHash: hash}
	m.users[username] = u
	return u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func TestAuthRegisterLoginAuthenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, err := NewAuthService(&memUsers{}, "secret", time.Hour)
	require.NoError(t, err)

	user, err := svc.Register(ctx, " alice ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "pw", user.PasswordHash)

	_, err = svc.Register(ctx, "alice", "pw2")
	require.ErrorIs(t, err, domain.ErrUserExists)

	_, err = svc.Login(ctx, "alice", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "bob", "pw")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	token, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users := &memUsers{}
	svc, err := NewAuthService(users, "secret", time.Minute)
	require.NoError(t, err)
	_, err = svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)
	token, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewAuthService(users, "other-secret", time.Minute)
	require.NoError(t, err)
	_, err = other.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func TestNewAuthServiceRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := NewAuthService(&memUsers{}, "", time.Hour)
	require.Error(t, err)
}
