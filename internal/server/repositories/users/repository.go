// Package users persists registered accounts.
package users

import (
	"context"

	"github.com/apetrov/assetgate/internal/server/models"
)

// Repository is the persistence contract for user accounts.
type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateProfileImage(ctx context.Context, userID, url string) error
}
