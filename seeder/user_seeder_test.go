package seeder

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/pkg/password"
	"visitor-management/repository"
)

type fakeUsers struct {
	byEmail map[string]*models.User
}

func (f *fakeUsers) CreateUser(_ context.Context, user *models.User) error {
	key := strings.ToLower(user.Email)
	if _, ok := f.byEmail[key]; ok {
		return repository.ErrDuplicateKey
	}
	user.ID = primitive.NewObjectID()
	f.byEmail[key] = user
	return nil
}

func (f *fakeUsers) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func TestSeedUsers(t *testing.T) {
	store := &fakeUsers{byEmail: map[string]*models.User{}}

	created, err := SeedUsers(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, len(seedUsers), created)

	admin, err := store.FindUserByEmail(context.Background(), "admin@visitor.local")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, password.CheckPasswordHash(DefaultPassword, admin.Password))

	created, err = SeedUsers(context.Background(), store)
	require.NoError(t, err)
	assert.Zero(t, created, "second run must not create duplicates")
}
