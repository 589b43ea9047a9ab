// Package identity normalizes provider claims into the user record the
// rest of the system consumes. An Identity is ephemeral: recomputed on
// every validation, never persisted beyond the current token's
// validity window.
package identity

// Identity is the normalized user record.
type Identity struct {
	ID          string `json:"sub"`
	GivenName   string `json:"given_name"`
	FamilyName  string `json:"family_name"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
}

// UserInfoClaims mirrors the provider's userinfo response field names.
type UserInfoClaims struct {
	ID                string `json:"id"`
	GivenName         string `json:"givenName"`
	Surname           string `json:"surname"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
}

// FromUserInfoClaims normalizes a userinfo response. Mail falls back to
// the user principal name, which is always present.
func FromUserInfoClaims(claims UserInfoClaims) *Identity {
	email := claims.Mail
	if email == "" {
		email = claims.UserPrincipalName
	}
	return &Identity{
		ID:          claims.ID,
		GivenName:   claims.GivenName,
		FamilyName:  claims.Surname,
		Email:       email,
		DisplayName: claims.DisplayName,
	}
}
