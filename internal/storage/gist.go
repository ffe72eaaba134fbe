package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acp-registry/apiserver/config"
)

const defaultGistTimeout = 15 * time.Second

// GistStore keeps the document as one file of a GitHub gist.
type GistStore struct {
	client   *http.Client
	apiURL   string
	gistID   string
	token    string
	filename string
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated,omitempty"`
	RawURL    string `json:"raw_url,omitempty"`
}

type gistPayload struct {
	Files map[string]gistFile `json:"files"`
}

// NewGistStore constructs a gist backend from config. The document is stored
// in the gist file named filename.
func NewGistStore(cfg config.GistConfig, filename string, client *http.Client) (*GistStore, error) {
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, errors.New("gist id is required")
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("github token is required")
	}
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New("gist file name is required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultGistTimeout}
	}
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		apiURL = "https://api.github.com"
	}

	return &GistStore{
		client:   client,
		apiURL:   apiURL,
		gistID:   cfg.ID,
		token:    cfg.Token,
		filename: filename,
	}, nil
}

func (g *GistStore) Read(ctx context.Context) ([]byte, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.gistURL(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkGistResponse(resp); err != nil {
		return nil, err
	}

	var payload gistPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode gist: %w", err)
	}
	file, ok := payload.Files[g.filename]
	if !ok {
		return nil, ErrAbsent
	}
	if file.Truncated && file.RawURL != "" {
		return g.readRaw(ctx, file.RawURL)
	}
	return []byte(file.Content), nil
}

// Write replaces the gist file content with data.
func (g *GistStore) Write(ctx context.Context, data []byte) error {
	body, err := json.Marshal(gistPayload{
		Files: map[string]gistFile{
			g.filename: {Content: string(data)},
		},
	})
	if err != nil {
		return err
	}
	req, err := g.newRequest(ctx, http.MethodPatch, g.gistURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return checkGistResponse(resp)
}

func (g *GistStore) Name() string {
	return fmt.Sprintf("gist:%s/%s", g.gistID, g.filename)
}

func (g *GistStore) readRaw(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := g.newRequest(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkGistResponse(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func (g *GistStore) gistURL() string {
	return g.apiURL + "/gists/" + g.gistID
}

func (g *GistStore) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	return req, nil
}

func checkGistResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("github api failed: %s", resp.Status)
}
