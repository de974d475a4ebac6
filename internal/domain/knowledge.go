package domain

import (
	"fmt"
	"time"
)

// KnowledgeBase is the scoped collection of indexed chunks belonging to one
// assistant. Created lazily on first document upload.
type KnowledgeBase struct {
	ID          string
	AssistantID string
	Name        string
	CreatedAt   time.Time
}

// ValidateKnowledgeBase validates a KnowledgeBase instance
func ValidateKnowledgeBase(kb *KnowledgeBase) error {
	if kb == nil {
		return fmt.Errorf("knowledge base cannot be nil")
	}
	if kb.ID == "" {
		return fmt.Errorf("knowledge base ID is required")
	}
	if kb.AssistantID == "" {
		return fmt.Errorf("knowledge base AssistantID is required")
	}
	if kb.Name == "" {
		return fmt.Errorf("knowledge base Name is required")
	}
	return nil
}

// DocumentStatus tracks a document through the ingestion state machine:
// pending -> processing -> done | error. Ingestion must never leave a document
// in processing on completion.
type DocumentStatus string

const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusDone       DocumentStatus = "done"
	DocumentStatusError      DocumentStatus = "error"
)

// IsValidDocumentStatus checks if a DocumentStatus is valid
func IsValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusProcessing, DocumentStatusDone, DocumentStatusError:
		return true
	}
	return false
}

// Document represents one uploaded file belonging to a knowledge base. The
// original bytes live in object storage (StorageKey) or, for plain-text
// uploads without storage configured, inline in RawContent.
type Document struct {
	ID              string
	KnowledgeBaseID string
	FileName        string
	FileType        string
	StorageKey      string
	RawContent      string
	Status          DocumentStatus
	ErrorMessage    string
	ChunkCount      int
	TagCount        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}
	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if d.KnowledgeBaseID == "" {
		return fmt.Errorf("document KnowledgeBaseID is required")
	}
	if d.FileName == "" {
		return fmt.Errorf("document FileName is required")
	}
	if !IsValidDocumentStatus(d.Status) {
		return ErrInvalidDocumentStatus
	}
	if d.StorageKey == "" && d.RawContent == "" {
		return fmt.Errorf("document must have either StorageKey or RawContent")
	}
	return nil
}
