package dto

import (
	"time"

	"github.com/spec-kit/demand-service/internal/domain"
)

// ActivityRequest payload for creating or editing an activity. Priority is
// sent by name (LOWEST..HIGHEST).
type ActivityRequest struct {
	Name               string                  `json:"name" validate:"required"`
	Description        string                  `json:"description" validate:"required"`
	Active             *bool                   `json:"active"`
	ResolverDepartment string                  `json:"resolver_department" validate:"required"`
	Distribution       domain.DistributionMode `json:"distribution" validate:"required,oneof=MANUAL AUTOMATIC"`
	Priority           domain.Priority         `json:"priority" validate:"required"`
	EstimatedMinutes   uint32                  `json:"estimated_minutes" validate:"required,min=1,max=259200"`
}

// Fields converts the request into domain fields. A missing active flag
// means active.
func (r ActivityRequest) Fields() domain.ActivityFields {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return domain.ActivityFields{
		Name:               r.Name,
		Description:        r.Description,
		Active:             active,
		ResolverDepartment: r.ResolverDepartment,
		Distribution:       r.Distribution,
		Priority:           r.Priority,
		EstimatedMinutes:   r.EstimatedMinutes,
	}
}

// ActivityResponse response.
type ActivityResponse struct {
	ID                 int64                   `json:"id"`
	Name               string                  `json:"name"`
	Description        string                  `json:"description"`
	Active             bool                    `json:"active"`
	ResolverDepartment string                  `json:"resolver_department"`
	Distribution       domain.DistributionMode `json:"distribution"`
	Priority           domain.Priority         `json:"priority"`
	EstimatedMinutes   uint32                  `json:"estimated_minutes"`
	CreatedAt          time.Time               `json:"created_at"`
	UpdatedAt          time.Time               `json:"updated_at"`
}

// ActivityDetailResponse adds the eligible resolvers.
type ActivityDetailResponse struct {
	ActivityResponse
	Resolvers []UserResponse `json:"resolvers"`
}
