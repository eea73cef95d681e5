package dto

import "github.com/projaxis/authcore/internal/api/validation"

type CreateOrgRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	// AdminUserID is the first admin membership, created with the org so no
	// organization ever exists without an admin.
	AdminUserID string `json:"admin_user_id"`
}

func (r CreateOrgRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	if r.Slug == "" {
		errors["slug"] = "Slug is required"
	} else if !validation.IsValidSlug(r.Slug) {
		errors["slug"] = "Slug must be lowercase letters, digits and hyphens"
	}
	if r.AdminUserID == "" {
		errors["admin_user_id"] = "Admin user ID is required"
	} else if !validation.IsValidUUID(r.AdminUserID) {
		errors["admin_user_id"] = "Invalid user ID format"
	}
	return errors
}

type UpdateOrgSettingsRequest struct {
	Settings string `json:"settings"`
}

func (r UpdateOrgSettingsRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Settings == "" {
		errors["settings"] = "Settings payload is required"
	}
	return errors
}

type OrgResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Settings  string `json:"settings"`
	Retired   bool   `json:"retired"`
	CreatedAt string `json:"created_at"`
}

type CreateProjectRequest struct {
	Name      string `json:"name"`
	Reference string `json:"reference,omitempty"`
}

func (r CreateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Name == "" {
		errors["name"] = "Name is required"
	}
	if !validation.IsValidReference(r.Reference) {
		errors["reference"] = "Reference must be uppercase segments like ACME-001"
	}
	return errors
}

type ProjectResponse struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Reference      string `json:"reference,omitempty"`
	CreatedAt      string `json:"created_at"`
}
