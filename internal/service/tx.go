package service

import (
	"context"

	"github.com/veldt-ai/veldt/internal/domain"
)

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Documents() DocumentTxRepository
	KnowledgeBases() KnowledgeBaseTxRepository
}

// DocumentTxRepository is the document write surface available inside a
// transaction.
type DocumentTxRepository interface {
	Create(ctx context.Context, d *domain.Document) error
}

// KnowledgeBaseTxRepository is the knowledge base surface available inside a
// transaction.
type KnowledgeBaseTxRepository interface {
	EnsureForAssistant(ctx context.Context, assistantID, name string) (*domain.KnowledgeBase, error)
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
