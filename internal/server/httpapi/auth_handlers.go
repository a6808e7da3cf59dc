package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/apetrov/assetgate/internal/server/models"
)

type registerBody struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Email        string `json:"email"`
	AccountTier  string `json:"accountTier"`
	ProfileImage string `json:"profileImage"`
}

// Register creates a new account.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body registerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tier, err := models.ParseTier(body.AccountTier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "accountTier must be Regular or Premium")
		return
	}

	user, err := s.users.Register(r.Context(), body.Username, body.Password, body.Email, tier, body.ProfileImage)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeCreated(w, userPayload(user))
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns an access token plus the user's
// public profile.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := s.users.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeOK(w, map[string]any{
		"token": token,
		"user":  userPayload(user),
	})
}

func userPayload(u *models.User) map[string]any {
	return map[string]any{
		"username":     u.UserName,
		"email":        u.Email,
		"accountTier":  u.Tier.String(),
		"profileImage": u.ProfileImage,
	}
}
