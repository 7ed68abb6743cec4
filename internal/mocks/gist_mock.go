//nolint:exhaustruct,revive //ignore
package mocks

import (
	"context"
	"fmt"
	"sync"

	"calfeed.dev/pkg/gist"
)

// MockGistClient records every published document in memory and hands
// back deterministic stable URLs.
type MockGistClient struct {
	mu        sync.Mutex
	Documents map[string]string
	Err       error
}

func NewMockGistClient() *MockGistClient {
	return &MockGistClient{
		Documents: map[string]string{},
	}
}

var _ gist.Client = (*MockGistClient)(nil)

func (client *MockGistClient) UpdateFile(
	_ context.Context,
	filename, content string,
) (string, error) {
	client.mu.Lock()
	defer client.mu.Unlock()

	if client.Err != nil {
		return "", client.Err
	}

	client.Documents[filename] = content

	return fmt.Sprintf(
		"https://gist.githubusercontent.com/tester/abc123/raw/%s", filename,
	), nil
}
