package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"visitor-management/models"
	"visitor-management/pkg/password"
	"visitor-management/repository"
)

// DefaultPassword is what every seeded account starts with.
const DefaultPassword = "Password123"

type userStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

var seedUsers = []models.User{
	{Name: "Front Desk Admin", Email: "admin@visitor.local", Role: models.RoleAdmin, Department: "Reception"},
	{Name: "Gate Officer", Email: "security@visitor.local", Role: models.RoleSecurity, Department: "Security"},
	{Name: "Night Gate Officer", Email: "security2@visitor.local", Role: models.RoleSecurity, Department: "Security"},
	{Name: "Dewi Lestari", Email: "dewi.lestari@visitor.local", Role: models.RoleEmployee, Department: "Finance"},
	{Name: "Agus Pratama", Email: "agus.pratama@visitor.local", Role: models.RoleEmployee, Department: "Engineering"},
}

// SeedUsers creates the development accounts that do not exist yet and
// returns how many were added.
func SeedUsers(ctx context.Context, users userStore) (int, error) {
	log.Info("seeding users")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	hashedPassword, err := password.HashPassword(DefaultPassword)
	if err != nil {
		return 0, fmt.Errorf("hash seed password: %w", err)
	}

	created := 0
	for _, tmpl := range seedUsers {
		existing, err := users.FindUserByEmail(ctx, tmpl.Email)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return created, fmt.Errorf("look up %s: %w", tmpl.Email, err)
		}
		if existing != nil {
			log.Debugf("user %s already exists, skipping", tmpl.Email)
			continue
		}

		user := tmpl
		user.Password = hashedPassword
		if err := users.CreateUser(ctx, &user); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				continue
			}
			return created, fmt.Errorf("create %s: %w", tmpl.Email, err)
		}
		created++
		log.Infof("seeded %s user %s", user.Role, user.Email)
	}

	log.Infof("user seeding done, %d created", created)
	return created, nil
}
