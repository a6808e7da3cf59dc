package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/dbx"
	"github.com/apetrov/assetgate/internal/logging"
	"github.com/apetrov/assetgate/internal/server/auth"
	"github.com/apetrov/assetgate/internal/server/models"
	"github.com/apetrov/assetgate/internal/server/repositories/users"
)

// UserService handles registration, login, and profile updates. It is the
// authentication collaborator of the gateway: the account tier used for
// listings always originates here, never from client-supplied request data.
type UserService struct {
	db                          *sql.DB
	newRepo                     func(db dbx.DBTX) users.Repository
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
}

func NewUserService(db *sql.DB, cfgSecret string, tokenValidity time.Duration, log logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		newRepo:                     func(db dbx.DBTX) users.Repository { return users.NewPostgresRepository(db) },
		jwtSecret:                   []byte(cfgSecret),
		accessTokenValidityDuration: tokenValidity,
		logger:                      log.With("module", "users"),
	}
}

// Register creates a new account with a bcrypt-hashed password. The
// existence check and insert run in one transaction so concurrent signups
// with the same username cannot both pass the check.
func (s *UserService) Register(ctx context.Context, username, password, email string, tier models.Tier, profileImage string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("%w: username, password and email are required", common.ErrorValidation)
	}
	if _, err := models.ParseTier(tier.String()); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		UserName:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
		Tier:         tier,
		ProfileImage: profileImage,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.newRepo(tx)
		if _, err := repo.GetByUsername(ctx, username); err == nil {
			return common.ErrorAlreadyExists
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return repo.Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user registered", "username", username, "tier", tier.String())
	return user, nil
}

// Login verifies the credentials and returns a signed access token carrying
// the user's ID and tier. Unknown user and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	repo := s.newRepo(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorUnauthorized
		}
		return "", nil, common.ErrorInternal
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.ID, user.Tier, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	return token, user, nil
}

// SetProfileImage stores the public URL of a succeeded profile upload.
func (s *UserService) SetProfileImage(ctx context.Context, userID, url string) error {
	repo := s.newRepo(s.db)
	if err := repo.UpdateProfileImage(ctx, userID, url); err != nil {
		return fmt.Errorf("error updating profile image: %w", err)
	}
	return nil
}
