// Package auth issues and verifies the HS256 access tokens carrying a
// user's identity and account tier.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/apetrov/assetgate/internal/common"
	"github.com/apetrov/assetgate/internal/server/models"
)

// Claims extends the registered claims with the user ID and account tier.
// The tier travels inside the signed token so the listing endpoint never has
// to trust client-supplied fields.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
	Tier   string `json:"tier"`
}

func GenerateToken(userID string, tier models.Tier, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID: userID,
		Tier:   tier.String(),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry, and returns the embedded
// user ID and tier. The tier is re-validated against the closed enum so a
// token minted under an older catalog cannot smuggle an unknown value in.
func ParseToken(tokenString string, secretKey []byte) (string, models.Tier, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", common.ErrTokenExpired
		}
		return "", "", common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return "", "", common.ErrInvalidToken
	}

	tier, err := models.ParseTier(claims.Tier)
	if err != nil {
		return "", "", common.ErrInvalidToken
	}

	return claims.UserID, tier, nil
}
