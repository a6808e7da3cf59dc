// Package models defines the server-side domain types shared by services,
// repositories, and the HTTP layer.
package models

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the repository/service layer.
type User struct {
	ID           string
	UserName     string
	Email        string
	PasswordHash string
	Tier         Tier
	ProfileImage string
}
