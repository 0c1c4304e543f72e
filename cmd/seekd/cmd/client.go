package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// defaultServerURL is where a locally started server listens.
const defaultServerURL = "http://localhost:8674"

// client is a thin JSON client for the seekd HTTP surface.
type client struct {
	baseURL string
	http    *http.Client
}

// newClient resolves the server URL from the --server flag, the
// SEEKD_SERVER environment variable, or the default, in that order.
func newClient(serverURL string) *client {
	base := serverURL
	if base == "" {
		base = os.Getenv("SEEKD_SERVER")
	}
	if base == "" {
		base = defaultServerURL
	}
	return &client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// do issues one request and decodes the JSON response into out. Connection
// failures map to DEPENDENCY_UNAVAILABLE; error responses are rebuilt from
// the server's error envelope so exit codes match server-side kinds.
func (c *client) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	contentType := ""
	switch b := body.(type) {
	case nil:
	case []byte:
		reqBody = bytes.NewReader(b)
		contentType = "application/yaml"
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return seekerrors.Internal("encode request", err)
		}
		reqBody = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return seekerrors.InvalidInput("build request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return seekerrors.Unavailable(fmt.Sprintf("seekd server unreachable at %s", c.baseURL), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return seekerrors.Internal("decode response", err)
	}
	return nil
}

func (c *client) get(path string, out any) error {
	return c.do(http.MethodGet, path, nil, out)
}

func (c *client) post(path string, body, out any) error {
	return c.do(http.MethodPost, path, body, out)
}

// decodeError rebuilds a structured error from the server's envelope.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &envelope); err != nil || envelope.Kind == "" {
		return seekerrors.Newf(kindForStatus(resp.StatusCode), "server returned %s", resp.Status)
	}
	return seekerrors.New(seekerrors.Kind(envelope.Kind), envelope.Error)
}

func kindForStatus(status int) seekerrors.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return seekerrors.KindInvalidInput
	case http.StatusNotFound:
		return seekerrors.KindNotFound
	case http.StatusConflict:
		return seekerrors.KindConflict
	case http.StatusServiceUnavailable:
		return seekerrors.KindDependencyUnavailable
	default:
		return seekerrors.KindInternal
	}
}
