/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the public and admin APIs. These types
  decouple the tracking model from the wire contract the admin panel and
  the public tracking page consume.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

TYPES:
  Public:
    TrackResponse

  Admin:
    ClientDTO, AddClientRequest, AddClientResponse
    StepRequest, ReorderRequest
    ChecklistResponse, ToggleStepResponse, ToggleDoneResponse

  Errors:
    ErrorResponse (one envelope for every JSON error)

VALIDATION:
  Validation is done by tracking.Service, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - tracking/types.go: Domain types
*/
package api

import "github.com/Mgdadali/249-subsite/tracking"

// =============================================================================
// PUBLIC
// =============================================================================

// TrackResponse is the body of GET /track.
type TrackResponse struct {
	Name      string                   `json:"name"`
	Service   string                   `json:"service"`
	Checklist []tracking.ChecklistItem `json:"checklist"`
}

// =============================================================================
// ADMIN
// =============================================================================

// ClientDTO represents a client in admin responses.
type ClientDTO struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Service string `json:"service"`
}

// AddClientRequest is the body of POST /admin/api/add-client.
type AddClientRequest struct {
	Name    string `json:"name"`
	Service string `json:"service"`
}

// AddClientResponse returns the issued tracking code.
type AddClientResponse struct {
	OK   bool   `json:"ok"`
	Code string `json:"code"`
}

// StepRequest names one step.
type StepRequest struct {
	Step string `json:"step"`
}

// ReorderRequest is the body of POST /admin/api/reorder-steps.
type ReorderRequest struct {
	Steps []string `json:"steps"`
}

// ChecklistResponse is one client's enabled steps.
type ChecklistResponse struct {
	Code  string                   `json:"code"`
	Steps []tracking.ChecklistItem `json:"steps"`
}

// OKResponse acknowledges a mutation.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ToggleStepResponse reports whether the step is enabled after the toggle.
type ToggleStepResponse struct {
	OK      bool `json:"ok"`
	Enabled bool `json:"enabled"`
}

// ToggleDoneResponse reports the step's done flag after the toggle.
type ToggleDoneResponse struct {
	OK   bool `json:"ok"`
	Done bool `json:"done"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error kind and a user-facing message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toClientDTOs(clients []tracking.Client) []ClientDTO {
	out := make([]ClientDTO, len(clients))
	for i, c := range clients {
		out[i] = ClientDTO{Code: c.Code, Name: c.Name, Service: c.Service}
	}
	return out
}

func toTrackResponse(s tracking.ClientStatus) TrackResponse {
	checklist := s.Checklist
	if checklist == nil {
		checklist = []tracking.ChecklistItem{}
	}
	return TrackResponse{Name: s.Client.Name, Service: s.Client.Service, Checklist: checklist}
}
