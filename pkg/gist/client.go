package gist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const BaseURL = "https://api.github.com/gists"

// PublishError is returned on any non-success response from the gist
// host. Store mutations of the current sync cycle are already committed
// when publishing fails; the caller resolves the divergence by
// regenerating and republishing.
type PublishError struct {
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf(
		"gist update failed with status %d: %s", e.StatusCode, e.Body,
	)
}

type client struct {
	apiToken string
	gistID   string
	baseURL  string
}

func New(apiToken, gistID string) Client {
	return client{
		apiToken: apiToken,
		gistID:   gistID,
		baseURL:  BaseURL,
	}
}

// NewWithBaseURL exists for tests against a local server.
func NewWithBaseURL(apiToken, gistID, baseURL string) Client {
	return client{
		apiToken: apiToken,
		gistID:   gistID,
		baseURL:  baseURL,
	}
}

type gistFile struct {
	Content string `json:"content"`
	RawURL  string `json:"raw_url,omitempty"`
}

type gistPatch struct {
	Files map[string]gistFile `json:"files"`
}

func (client client) UpdateFile(
	ctx context.Context,
	filename, content string,
) (string, error) {
	body := gistPatch{
		Files: map[string]gistFile{
			filename: {Content: content},
		},
	}

	marshalled, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPatch,
		fmt.Sprintf("%s/%s", client.baseURL, client.gistID),
		bytes.NewBuffer(marshalled),
	)
	if err != nil {
		return "", err
	}

	req.Header.Add("Authorization", fmt.Sprintf("token %s", client.apiToken))
	req.Header.Add("Accept", "application/vnd.github.v3+json")
	req.Header.Add("Content-Type", "application/json")

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return "", &PublishError{
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	var response gistPatch
	err = json.NewDecoder(res.Body).Decode(&response)
	if err != nil {
		return "", err
	}

	file, ok := response.Files[filename]
	if !ok || file.RawURL == "" {
		return "", fmt.Errorf("gist response misses raw_url for %q", filename)
	}

	return StableRawURL(file.RawURL, filename)
}

// StableRawURL strips the revision segment the gist host embeds in
// raw_url. Only the owner and gist segments are kept, so the result keeps
// resolving to the latest revision across republications.
func StableRawURL(rawURL, filename string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid raw_url %q: %w", rawURL, err)
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("unexpected raw_url path %q", parsed.Path)
	}

	owner := segments[0]
	gistID := segments[1]

	return fmt.Sprintf(
		"%s://%s/%s/%s/raw/%s",
		parsed.Scheme, parsed.Host, owner, gistID, filename,
	), nil
}
