package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booktrackerapp/booktracker-server/internal/auth"
	libsync "github.com/booktrackerapp/booktracker-server/internal/sync"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "sign-in",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signin",
		Summary:     "Sign in",
		Description: "Establishes an identity and starts sign-in reconciliation with the remote mirror",
		Tags:        []string{"Auth"},
	}, s.handleSignIn)

	huma.Register(s.api, huma.Operation{
		OperationID: "sign-out",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/signout",
		Summary:     "Sign out",
		Description: "Clears the identity and cancels the live subscription. Local data is untouched.",
		Tags:        []string{"Auth"},
	}, s.handleSignOut)

	huma.Register(s.api, huma.Operation{
		OperationID: "sync-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Get synchronization status",
		Tags:        []string{"Sync"},
	}, s.handleSyncStatus)
}

// === DTOs ===

// SignInInput carries the credentials.
type SignInInput struct {
	Body struct {
		Email string `json:"email" format:"email" maxLength:"254" doc:"Account email"`
	}
}

// SignInOutput contains the established identity.
type SignInOutput struct {
	Body auth.Identity
}

// SyncStatusOutput contains the coordinator state.
type SyncStatusOutput struct {
	Body libsync.Status
}

// === Handlers ===

func (s *Server) handleSignIn(ctx context.Context, input *SignInInput) (*SignInOutput, error) {
	identity, err := s.auth.SignIn(input.Body.Email)
	if err != nil {
		return nil, err
	}
	return &SignInOutput{Body: identity}, nil
}

func (s *Server) handleSignOut(ctx context.Context, _ *struct{}) (*struct{}, error) {
	s.auth.SignOut()
	return &struct{}{}, nil
}

func (s *Server) handleSyncStatus(ctx context.Context, _ *struct{}) (*SyncStatusOutput, error) {
	return &SyncStatusOutput{Body: s.coordinator.Status()}, nil
}
