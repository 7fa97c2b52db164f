package auth

import "github.com/golang-jwt/jwt/v5"

// RealmClaims pulls the fields we care about out of a Keycloak-style token.
type RealmClaims struct {
	jwt.RegisteredClaims

	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

func (c *RealmClaims) HasRole(role string) bool {
	for _, r := range c.RealmAccess.Roles {
		if r == role {
			return true
		}
	}
	return false
}
