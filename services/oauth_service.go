package services

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/api/idtoken"
)

const appleJWKSURL = "https://appleid.apple.com/auth/keys"

// Verified identity assertion from an OAuth provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// IdentityVerifier checks an externally issued identity token. Each
// provider gets its own implementation; callers never see provider
// internals.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier() *GoogleVerifier {
	return &GoogleVerifier{clientID: os.Getenv("GOOGLE_CLIENT_ID")}
}

func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.clientID)
	if err != nil {
		return nil, err
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, errors.New("google token not verified")
	}

	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	return &Identity{
		Subject: payload.Subject,
		Email:   strings.ToLower(email),
		Name:    name,
		Picture: picture,
	}, nil
}

type AppleVerifier struct {
	clientID string
}

func NewAppleVerifier() *AppleVerifier {
	return &AppleVerifier{clientID: os.Getenv("APPLE_CLIENT_ID")}
}

func (v *AppleVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	kf, err := keyfunc.NewDefaultCtx(ctx, []string{appleJWKSURL})
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(rawToken, kf.Keyfunc,
		jwt.WithAudience(v.clientID),
		jwt.WithIssuer("https://appleid.apple.com"),
		jwt.WithValidMethods([]string{"RS256"}),
	)
	if err != nil || !token.Valid {
		return nil, errors.New("apple token not verified")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid apple token claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid apple token")
	}

	// Apple only includes the email on the first sign-in.
	email, _ := claims["email"].(string)

	return &Identity{Subject: sub, Email: strings.ToLower(email)}, nil
}
