package dto

type AddMemberRequest struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	IsDefault bool   `json:"is_default,omitempty"`
}

func (r AddMemberRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.UserID == "" {
		errors["user_id"] = "User ID is required"
	}
	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	return errors
}

type ChangeRoleRequest struct {
	Role string `json:"role"`
}

func (r ChangeRoleRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Role == "" {
		errors["role"] = "Role is required"
	}
	return errors
}

type MemberResponse struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	IsDefault bool   `json:"is_default,omitempty"`
	JoinedAt  string `json:"joined_at"`
}
