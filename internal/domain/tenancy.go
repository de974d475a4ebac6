package domain

import (
	"fmt"
	"time"
)

// Tenant is the top-level billing and isolation boundary.
type Tenant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// ValidateTenant validates a Tenant instance
func ValidateTenant(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("tenant ID is required")
	}
	if t.Name == "" {
		return fmt.Errorf("tenant Name is required")
	}
	return nil
}

// Workspace groups teammates under a tenant.
type Workspace struct {
	ID        string
	TenantID  string
	Name      string
	CreatedAt time.Time
}

// ValidateWorkspace validates a Workspace instance
func ValidateWorkspace(w *Workspace) error {
	if w == nil {
		return fmt.Errorf("workspace cannot be nil")
	}
	if w.ID == "" {
		return fmt.Errorf("workspace ID is required")
	}
	if w.TenantID == "" {
		return fmt.Errorf("workspace TenantID is required")
	}
	if w.Name == "" {
		return fmt.Errorf("workspace Name is required")
	}
	return nil
}

// Teammate is the query-facing persona. Queries are addressed to a teammate,
// which routes them to its assistant using its routing policy.
type Teammate struct {
	ID          string
	WorkspaceID string
	Name        string
	Routing     RoutingPolicy
	CreatedAt   time.Time
}

// ValidateTeammate validates a Teammate instance
func ValidateTeammate(t *Teammate) error {
	if t == nil {
		return fmt.Errorf("teammate cannot be nil")
	}
	if t.ID == "" {
		return fmt.Errorf("teammate ID is required")
	}
	if t.WorkspaceID == "" {
		return fmt.Errorf("teammate WorkspaceID is required")
	}
	if t.Name == "" {
		return fmt.Errorf("teammate Name is required")
	}
	return ValidateRoutingPolicy(t.Routing)
}

// Assistant owns exactly one knowledge base and a system instruction that
// prefixes every generation prompt.
type Assistant struct {
	ID           string
	TeammateID   string
	Name         string
	SystemPrompt string
	CreatedAt    time.Time
}

// ValidateAssistant validates an Assistant instance
func ValidateAssistant(a *Assistant) error {
	if a == nil {
		return fmt.Errorf("assistant cannot be nil")
	}
	if a.ID == "" {
		return fmt.Errorf("assistant ID is required")
	}
	if a.TeammateID == "" {
		return fmt.Errorf("assistant TeammateID is required")
	}
	if a.Name == "" {
		return fmt.Errorf("assistant Name is required")
	}
	return nil
}

// InferenceMode selects the generation strategy for a query.
type InferenceMode string

const (
	// InferenceModeFast returns a direct answer with no reasoning trace.
	InferenceModeFast InferenceMode = "fast"
	// InferenceModeReasoning expects the model to emit explicit intermediate
	// steps before the final answer.
	InferenceModeReasoning InferenceMode = "reasoning"
)

// ParseInferenceMode validates a wire-level mode string. Empty input defaults
// to fast mode.
func ParseInferenceMode(s string) (InferenceMode, error) {
	switch InferenceMode(s) {
	case "":
		return InferenceModeFast, nil
	case InferenceModeFast:
		return InferenceModeFast, nil
	case InferenceModeReasoning:
		return InferenceModeReasoning, nil
	default:
		return "", ErrInvalidInferenceMode
	}
}

// RoutingPolicy is a teammate's default query routing. Stored as typed columns
// and validated on write, never as a free-form configuration document.
type RoutingPolicy struct {
	DefaultMode InferenceMode
	TopK        int
}

// DefaultRoutingPolicy returns the policy applied to new teammates.
func DefaultRoutingPolicy() RoutingPolicy {
	return RoutingPolicy{DefaultMode: InferenceModeFast, TopK: 5}
}

// ValidateRoutingPolicy validates a RoutingPolicy instance
func ValidateRoutingPolicy(p RoutingPolicy) error {
	if _, err := ParseInferenceMode(string(p.DefaultMode)); err != nil {
		return ErrInvalidRoutingPolicy
	}
	if p.TopK < 1 || p.TopK > 50 {
		return ErrInvalidRoutingPolicy
	}
	return nil
}
