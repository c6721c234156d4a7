package service

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/scyra/scyra/internal/research/domain"
)

// decodeStrict reads exactly one JSON document from raw after stripping
// markdown code fences. Anything else, including trailing content after
// the document, fails closed with ErrMalformedResponse.
func decodeStrict(raw string, out any) error {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", domain.ErrMalformedResponse)
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing content after JSON document", domain.ErrMalformedResponse)
	}
	return nil
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}
