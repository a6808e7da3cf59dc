package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/dbx"
	"github.com/apetrov/assetgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {

	query :=
		`INSERT INTO users (username, email, password_hash, account_tier, profile_image)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.PasswordHash, user.Tier.String(), user.ProfileImage).Scan(&user.ID)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, account_tier, profile_image
		 FROM users
		 WHERE username = $1
		 `

	user := &models.User{}
	var tier string
	var profileImage sql.NullString
	err := r.db.QueryRowContext(ctx, query, username).
		Scan(&user.ID, &user.UserName, &user.Email, &user.PasswordHash, &tier, &profileImage)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Tier = models.Tier(tier)
	user.ProfileImage = profileImage.String

	return user, nil
}

func (r *PostgresRepository) UpdateProfileImage(ctx context.Context, userID, url string) error {
	query :=
		`UPDATE users SET profile_image = $2
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, userID, url)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
