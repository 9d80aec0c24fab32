package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for tokens that verified but are past expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims is the subset of token claims the chat service trusts after verification.
type Claims struct {
	UserID int
	Role   string
}

// Verifier checks HS256 access tokens issued by the identity service.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier builds a Verifier for the shared signing secret.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates a token string and extracts its claims.
// Expired tokens are reported distinctly from malformed or forged ones.
func (v *Verifier) Verify(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrTokenInvalid
	}

	sub, err := mapClaims.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, ErrTokenInvalid
	}
	userID, err := strconv.Atoi(sub)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}

	role, _ := mapClaims["role"].(string)
	return Claims{UserID: userID, Role: role}, nil
}

// Sign issues a token for the given user. Used by tests and local tooling;
// production tokens come from the identity service.
func (v *Verifier) Sign(userID int, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  strconv.Itoa(userID),
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
		"iss":  v.issuer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
