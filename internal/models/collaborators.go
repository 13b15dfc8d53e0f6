package models

// FileRef is what the Drive service returns for an uploaded file.
type FileRef struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// TrashItem is the payload accepted by the Trash service.
type TrashItem struct {
	ID       string            `json:"id" validate:"required"`
	Name     string            `json:"name"`
	Type     string            `json:"type" validate:"required"`
	ModuleID string            `json:"moduleId" validate:"required"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GovernanceRequest asks the Governance service to evaluate a resource before it is created.
type GovernanceRequest struct {
	ResourceType string            `json:"resourceType" validate:"required"`
	ResourceID   string            `json:"resourceId" validate:"required"`
	Content      string            `json:"content"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PolicyViolation is one policy that blocks an action.
type PolicyViolation struct {
	PolicyID   string `json:"policyId" validate:"required"`
	PolicyName string `json:"policyName"`
	Severity   string `json:"severity,omitempty"`
	Message    string `json:"message" validate:"required"`
}

// GovernanceResult is the outcome of a governance evaluation.
// An empty Violations list means the action is allowed.
type GovernanceResult struct {
	Violations []PolicyViolation `json:"violations" validate:"dive"`
}

// Blocked reports whether at least one policy was violated.
func (r *GovernanceResult) Blocked() bool {
	return r != nil && len(r.Violations) > 0
}

// Classification is the sensitivity label the Retention service assigns to a resource.
type Classification struct {
	ResourceID string `json:"resourceId" validate:"required"`
	Level      string `json:"level" validate:"required"`
	Label      string `json:"label,omitempty"`
}
