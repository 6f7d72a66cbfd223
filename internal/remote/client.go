package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fieldframe/internal/config"
	"fieldframe/internal/services"
)

const userAgent = "FieldFrame-Go/0.1.0"

// Client is the HTTP ObjectStore implementation.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds an object store client from configuration.
func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.Remote.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.Remote.BaseURL, "/"),
		token:   cfg.Remote.Token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Authenticated reports whether the client carries a session token.
func (c *Client) Authenticated() bool {
	return strings.TrimSpace(c.token) != ""
}

// Ping verifies the remote endpoint accepts the session token.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/session", nil, "")
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping remote: %w", err)
	}
	defer drain(resp)
	return c.checkStatus(resp, "ping remote")
}

// EnsureFolder finds a child folder by name under parentID, creating it when
// absent. An empty parentID addresses the account root.
func (c *Client) EnsureFolder(ctx context.Context, parentID, name string) (Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Folder{}, fmt.Errorf("ensure folder: empty name")
	}

	existing, err := c.findFolder(ctx, parentID, name)
	if err != nil {
		return Folder{}, err
	}
	if existing != nil {
		return *existing, nil
	}

	payload, err := json.Marshal(map[string]string{"parent_id": parentID, "name": name})
	if err != nil {
		return Folder{}, fmt.Errorf("encode folder request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/folders", bytes.NewReader(payload), "application/json")
	if err != nil {
		return Folder{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Folder{}, fmt.Errorf("create folder %q: %w", name, err)
	}
	defer drain(resp)

	// A concurrent creator may win the race; the conflict response carries
	// the existing folder.
	if resp.StatusCode == http.StatusConflict {
		folder, decodeErr := decodeFolder(resp.Body)
		if decodeErr == nil && folder.ID != "" {
			return folder, nil
		}
	}
	if err := c.checkStatus(resp, fmt.Sprintf("create folder %q", name)); err != nil {
		return Folder{}, err
	}
	return decodeFolder(resp.Body)
}

func (c *Client) findFolder(ctx context.Context, parentID, name string) (*Folder, error) {
	query := url.Values{"parent_id": {parentID}, "name": {name}}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/folders?"+query.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("find folder %q: %w", name, err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := c.checkStatus(resp, fmt.Sprintf("find folder %q", name)); err != nil {
		return nil, err
	}

	var folders []Folder
	if err := json.NewDecoder(resp.Body).Decode(&folders); err != nil {
		return nil, fmt.Errorf("decode folder list: %w", err)
	}
	for i := range folders {
		if folders[i].Name == name {
			return &folders[i], nil
		}
	}
	return nil, nil
}

// FindFile looks up a file by name inside a folder. Returns nil when absent.
func (c *Client) FindFile(ctx context.Context, folderID, name string) (*File, error) {
	query := url.Values{"name": {name}}
	path := fmt.Sprintf("/api/folders/%s/files?%s", url.PathEscape(folderID), query.Encode())
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("find file %q: %w", name, err)
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := c.checkStatus(resp, fmt.Sprintf("find file %q", name)); err != nil {
		return nil, err
	}

	var files []File
	if err := json.NewDecoder(resp.Body).Decode(&files); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	for i := range files {
		if files[i].Name == name {
			return &files[i], nil
		}
	}
	return nil, nil
}

// UploadFile streams a local file into the folder as a multipart upload.
func (c *Client) UploadFile(ctx context.Context, folderID, localPath string) (File, error) {
	source, err := os.Open(localPath)
	if err != nil {
		return File{}, fmt.Errorf("open upload source: %w", err)
	}
	defer source.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return File{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, source); err != nil {
		return File{}, fmt.Errorf("read upload source: %w", err)
	}
	if err := writer.Close(); err != nil {
		return File{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	path := fmt.Sprintf("/api/folders/%s/files", url.PathEscape(folderID))
	req, err := c.newRequest(ctx, http.MethodPost, path, &body, writer.FormDataContentType())
	if err != nil {
		return File{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return File{}, fmt.Errorf("upload %s: %w", filepath.Base(localPath), err)
	}
	defer drain(resp)

	if err := c.checkStatus(resp, fmt.Sprintf("upload %s", filepath.Base(localPath))); err != nil {
		return File{}, err
	}

	var uploaded File
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return File{}, fmt.Errorf("decode upload response: %w", err)
	}
	return uploaded, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build remote request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) checkStatus(resp *http.Response, operation string) error {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", operation, services.ErrNotAuthenticated)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%s: remote returned %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func decodeFolder(body io.Reader) (Folder, error) {
	var folder Folder
	if err := json.NewDecoder(body).Decode(&folder); err != nil {
		return Folder{}, fmt.Errorf("decode folder response: %w", err)
	}
	return folder, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
