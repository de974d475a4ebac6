package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/veldt-ai/veldt/internal/domain"
)

const ocrPrompt = "Extract all readable text from the provided document or image. " +
	"Return only the extracted text without commentary."

// TextExtractor turns raw document bytes into plain text. Text-like MIME
// types decode directly; binary formats (PDF, images) go through the
// multimodal OCR model.
type TextExtractor struct {
	invoker ModelInvoker
	model   string
}

// NewTextExtractor creates a TextExtractor bound to one OCR model.
func NewTextExtractor(invoker ModelInvoker, model string) *TextExtractor {
	return &TextExtractor{
		invoker: invoker,
		model:   model,
	}
}

// ExtractText extracts plain text from content. OCR model failures surface as
// OCR_FAILED domain errors.
func (x *TextExtractor) ExtractText(ctx context.Context, content []byte, mimeType string) (string, error) {
	mime := strings.ToLower(strings.TrimSpace(mimeType))

	if isTextMIME(mime) {
		return decodeUTF8(content), nil
	}

	if mime == "application/pdf" || strings.HasPrefix(mime, "image/") {
		text, err := x.invoker.GenerateWithImage(ctx, x.model, ocrPrompt, content, mime)
		if err != nil {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeOCRFailed, "text extraction failed", err)
		}
		return text, nil
	}

	// Unknown type: best-effort decode.
	return decodeUTF8(content), nil
}

func isTextMIME(mime string) bool {
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch mime {
	case "application/json", "application/csv":
		return true
	}
	return false
}

// decodeUTF8 decodes bytes as UTF-8, substituting the replacement rune for
// invalid sequences.
func decodeUTF8(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), string(utf8.RuneError))
}
