package domain

import "time"

// CreateCanvasRequest is the request to create a canvas
type CreateCanvasRequest struct {
	Name        string `json:"name" binding:"required,min=3,max=100"`
	UseCaseName string `json:"useCaseName" binding:"required,min=3,max=200"`
	Owner       string `json:"owner" binding:"required,min=2,max=100"`
	TemplateID  string `json:"templateId,omitempty"`
}

// UpdateCanvasRequest patches top-level canvas fields. Nil fields are left unchanged.
type UpdateCanvasRequest struct {
	Name          *string  `json:"name,omitempty" binding:"omitempty,min=3,max=100"`
	UseCaseName   *string  `json:"useCaseName,omitempty" binding:"omitempty,min=3,max=200"`
	UseCaseOwner  *string  `json:"useCaseOwner,omitempty" binding:"omitempty,min=2,max=100"`
	Owner         *string  `json:"owner,omitempty" binding:"omitempty,min=2,max=100"`
	Status        *Status  `json:"status,omitempty"`
	Collaborators []string `json:"collaborators,omitempty"`
	EditedBy      string   `json:"editedBy,omitempty"`
}

// UpdateSectionRequest patches a section. Nil fields are left unchanged.
type UpdateSectionRequest struct {
	Answers           []string `json:"answers,omitempty"`
	Notes             *string  `json:"notes,omitempty"`
	ExpandedByDefault *bool    `json:"expandedByDefault,omitempty"`
}

// SetAnswerRequest sets a single answer slot
type SetAnswerRequest struct {
	Index  int    `json:"index" binding:"min=0"`
	Answer string `json:"answer" binding:"max=5000"`
}

// SetReadinessRequest sets the readiness of one layer
type SetReadinessRequest struct {
	Layer Layer          `json:"layer" binding:"required"`
	Level ReadinessLevel `json:"level" binding:"required"`
}

// SetPhaseRequest moves the canvas to another phase
type SetPhaseRequest struct {
	Phase Phase `json:"phase" binding:"required"`
}

// TagRequest adds or removes a tag
type TagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// AddCommentRequest attaches a comment to a section
type AddCommentRequest struct {
	Author string `json:"author" binding:"required"`
	Text   string `json:"text" binding:"required,max=1000"`
}

// DuplicateCanvasRequest is the request to duplicate a canvas
type DuplicateCanvasRequest struct {
	Name string `json:"name,omitempty"`
}

// CommitRequest commits an editing session into the main record
type CommitRequest struct {
	ExpectedVersion int `json:"expectedVersion,omitempty"`
}

// DataBundle is the exported form of the whole store
type DataBundle struct {
	Canvases   []*Canvas   `json:"canvases"`
	Templates  []*Template `json:"templates"`
	ExportedAt time.Time   `json:"exportedAt"`
	Version    string      `json:"version"`
}

// StorageStats summarizes store contents
type StorageStats struct {
	CanvasCount   int `json:"canvasCount"`
	TemplateCount int `json:"templateCount"`
	StorageSize   int `json:"storageSize"`
}
