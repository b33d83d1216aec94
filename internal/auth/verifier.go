package auth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"messenger-service/internal/apperrors"
)

// Claims is the token shape issued by the external auth collaborator.
// The principal id travels either in user_id or in the subject.
type Claims struct {
	UserID int64 `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens and extracts the principal id. This
// service never issues tokens; issuance belongs to the auth service.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Principal validates the token signature and expiry and returns the
// authenticated user id.
func (v *Verifier) Principal(tokenString string) (int, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid token", err)
	}

	if claims.UserID != 0 {
		return int(claims.UserID), nil
	}
	if claims.Subject != "" {
		if id, err := strconv.Atoi(claims.Subject); err == nil && id != 0 {
			return id, nil
		}
	}
	return 0, apperrors.Unauthorized("token carries no principal id")
}
