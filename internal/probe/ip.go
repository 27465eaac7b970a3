package probe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// UnknownIPHash is reported when the public IP cannot be resolved.
const UnknownIPHash = "unknown"

// IPHasher resolves the caller's public IP and reduces it to a salted
// one-way digest. The raw IP is never stored or passed on.
type IPHasher struct {
	endpoint string
	salt     string
	http     *http.Client
	timeout  time.Duration
	log      *zap.Logger
}

func NewIPHasher(endpoint, salt string, timeout time.Duration, log *zap.Logger) *IPHasher {
	return &IPHasher{
		endpoint: endpoint,
		salt:     salt,
		http:     &http.Client{Timeout: timeout},
		timeout:  timeout,
		log:      log,
	}
}

// HashedIP fetches the public IP and returns its salted hash, or
// UnknownIPHash if the lookup fails.
func (h *IPHasher) HashedIP(ctx context.Context) string {
	ip, err := h.fetchIP(ctx)
	if err != nil {
		h.log.Warn("Could not resolve public IP", zap.Error(err))
		return UnknownIPHash
	}
	return h.Hash(ip)
}

// Hash digests ip with the configured salt. The result is deterministic
// within a salt epoch and truncated to 16 hex characters.
func (h *IPHasher) Hash(ip string) string {
	sum := sha256.Sum256([]byte(ip + h.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (h *IPHasher) fetchIP(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build IP request: %w", err)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("IP request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			h.log.Warn("Failed to close IP response body", zap.Error(err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("IP service returned %d", resp.StatusCode)
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode IP response: %w", err)
	}
	if payload.IP == "" {
		return "", fmt.Errorf("IP service returned an empty address")
	}

	return payload.IP, nil
}
