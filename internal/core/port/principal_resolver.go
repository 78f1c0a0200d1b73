package port

import (
	"context"
	"errors"

	"github.com/Hexmon/e-dossier-sub007/internal/core/domain"
)

var (
	// ErrNoCredentials indicates the request carried no credentials.
	ErrNoCredentials = errors.New("no credentials presented")
	// ErrInvalidCredentials indicates the presented credentials could not be verified.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PrincipalResolver turns request credentials into a Principal. Credential
// issuance and session management live outside this service.
type PrincipalResolver interface {
	Resolve(ctx context.Context, credentials string) (domain.Principal, error)
}
