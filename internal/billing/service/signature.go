package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/scyra/scyra/internal/billing/domain"
)

// verifySignature checks a standard-webhooks delivery: the signed content
// is "<id>.<timestamp>.<payload>" and the signature header carries one or
// more space-separated "v1,<base64 hmac>" entries.
func verifySignature(secret string, payload []byte, headers http.Header) error {
	webhookID := strings.TrimSpace(headers.Get("webhook-id"))
	timestamp := strings.TrimSpace(headers.Get("webhook-timestamp"))
	sigHeader := strings.TrimSpace(headers.Get("webhook-signature"))
	if webhookID == "" || timestamp == "" || sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	key, err := signingKey(secret)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.", webhookID, timestamp)
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, entry := range strings.Fields(sigHeader) {
		version, signature, found := strings.Cut(entry, ",")
		if !found || version != "v1" {
			continue
		}
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return domain.ErrInvalidSignature
}

func signingKey(secret string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(secret), "whsec_")
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil {
		return decoded, nil
	}
	if trimmed == "" {
		return nil, domain.ErrInvalidSignature
	}
	return []byte(trimmed), nil
}
