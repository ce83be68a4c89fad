package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"bioshield/internal/usecase"
)

// HTTPStore uploads claim evidence blobs to the evidence service and
// returns the content-addressed reference the service assigns.
type HTTPStore struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPStore) Upload(ctx context.Context, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", errors.New("evidence blob is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/evidence", bytes.NewReader(blob))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("evidence service: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var out struct {
		Ref string `json:"ref"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.Ref == "" {
		return "", errors.New("evidence service returned no ref")
	}
	return out.Ref, nil
}

// MemoryStore keeps evidence in process memory, keyed by content hash.
// Used in tests and local development.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", errors.New("evidence blob is empty")
	}
	sum := sha256.Sum256(blob)
	ref := "sha256:" + hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.blobs[ref] = stored
	return ref, nil
}

func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[ref]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, true
}

var (
	_ usecase.EvidenceStore = (*HTTPStore)(nil)
	_ usecase.EvidenceStore = (*MemoryStore)(nil)
)
