package auth

import (
	"context"

	"github.com/mmynk/tripsplit/internal/models"
)

// Authenticator verifies credentials and creates accounts.
// PasswordAuthenticator is the only implementation; the interface keeps the
// service layer independent of the credential type.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks the credential against the implementation's rules.
	ValidateCredential(credential string) error
}
