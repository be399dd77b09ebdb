package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/booktrackerapp/booktracker-server/internal/domain"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings/categories",
		Summary:     "Get category settings",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings/categories",
		Summary:     "Replace category settings",
		Description: "Books referencing a removed category are demoted to uncategorized when read",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)
}

// === DTOs ===

// SettingsOutput contains the user's settings document.
type SettingsOutput struct {
	Body struct {
		Categories []string `json:"categories"`
		Synced     bool     `json:"synced,omitzero"`
	}
}

// UpdateSettingsInput carries replacement category labels.
type UpdateSettingsInput struct {
	Body struct {
		Categories []string `json:"categories" maxItems:"20" doc:"Ordered category labels"`
	}
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	settings, err := s.library.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	out := &SettingsOutput{}
	out.Body.Categories = settings.Categories
	if out.Body.Categories == nil {
		out.Body.Categories = []string{}
	}
	return out, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *UpdateSettingsInput) (*SettingsOutput, error) {
	settings := &domain.UserSettings{Categories: input.Body.Categories}
	synced, err := s.library.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, err
	}

	out := &SettingsOutput{}
	out.Body.Categories = settings.Categories
	if out.Body.Categories == nil {
		out.Body.Categories = []string{}
	}
	out.Body.Synced = synced
	return out, nil
}
