package dto

type SwitchProjectRequest struct {
	ProjectID string `json:"project_id"`
}

func (r SwitchProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.ProjectID == "" {
		errors["project_id"] = "Project ID is required"
	}
	return errors
}

type ViewAsRequest struct {
	Role string `json:"role"`
}

func (r ViewAsRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	return errors
}

// SessionResponse surfaces the session's role state: the actual role data
// access is evaluated on, and the effective role UI affordances are gated on.
type SessionResponse struct {
	UserID          string  `json:"user_id"`
	Email           string  `json:"email"`
	ActiveProjectID *string `json:"active_project_id,omitempty"`
	ActualRole      string  `json:"actual_role"`
	EffectiveRole   string  `json:"effective_role"`
	Impersonating   bool    `json:"impersonating"`
	MatrixVersion   int     `json:"matrix_version"`
}

type PermissionResponse struct {
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	Role    string `json:"role"`
	Allowed bool   `json:"allowed"`
}
