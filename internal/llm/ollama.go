package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

// OllamaProvider generates text through a local Ollama server.
type OllamaProvider struct {
	host   string
	model  string
	client *http.Client
}

var _ Provider = (*OllamaProvider)(nil)

// NewOllamaProvider creates an Ollama provider. No credentials are needed;
// reachability is checked by ValidateCredentials.
func NewOllamaProvider(host, model string) *OllamaProvider {
	if host == "" {
		host = "http://localhost:11434"
	}
	return &OllamaProvider{
		host:  host,
		model: model,
		client: &http.Client{
			Transport: &http.Transport{IdleConnTimeout: 30 * time.Second},
		},
	}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Name returns "ollama".
func (p *OllamaProvider) Name() string { return "ollama" }

// Model returns the configured model.
func (p *OllamaProvider) Model() string { return p.model }

// ValidateCredentials checks the host is reachable and serves the model.
func (p *OllamaProvider) ValidateCredentials(ctx context.Context) error {
	models, err := p.ListModels(ctx)
	if err != nil {
		return err
	}
	want := strings.Split(strings.ToLower(p.model), ":")[0]
	for _, m := range models {
		if strings.Split(strings.ToLower(m), ":")[0] == want {
			return nil
		}
	}
	return seekerrors.Newf(seekerrors.KindDependencyUnavailable,
		"model %q not available on %s", p.model, p.host)
}

// ListModels lists the models served by the host.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return nil, seekerrors.Internal("create model list request", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, seekerrors.Unavailable("connect to ollama", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, seekerrors.Newf(seekerrors.KindDependencyFailed,
			"ollama returned status %d: %s", resp.StatusCode, string(body))
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, seekerrors.DependencyFailed("decode model list", err)
	}
	models := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		models[i] = m.Name
	}
	return models, nil
}

// Generate produces a complete response in one call.
func (p *OllamaProvider) Generate(ctx context.Context, messages []Message, opts Options) (string, error) {
	resp, err := p.chat(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", seekerrors.DependencyFailed("decode chat response", err)
	}
	if result.Error != "" {
		return "", seekerrors.Newf(seekerrors.KindDependencyFailed, "ollama: %s", result.Error)
	}
	return result.Message.Content, nil
}

// Stream produces the response incrementally. Ollama streams one JSON object
// per line.
func (p *OllamaProvider) Stream(ctx context.Context, messages []Message, opts Options, fn func(delta string)) (string, error) {
	resp, err := p.chat(ctx, messages, opts, true)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return full.String(), ctx.Err()
		default:
		}

		var part ollamaChatResponse
		if err := json.Unmarshal(scanner.Bytes(), &part); err != nil {
			continue
		}
		if part.Error != "" {
			return full.String(), seekerrors.Newf(seekerrors.KindDependencyFailed, "ollama: %s", part.Error)
		}
		if part.Message.Content != "" {
			full.WriteString(part.Message.Content)
			if fn != nil {
				fn(part.Message.Content)
			}
		}
		if part.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), seekerrors.Transient("read chat stream", err)
	}
	return full.String(), nil
}

func (p *OllamaProvider) chat(ctx context.Context, messages []Message, opts Options, stream bool) (*http.Response, error) {
	reqBody := ollamaChatRequest{
		Model:    p.model,
		Messages: messages,
		Stream:   stream,
	}
	if opts.Temperature > 0 || opts.MaxTokens > 0 {
		reqBody.Options = &ollamaOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, seekerrors.Internal("marshal chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, seekerrors.Internal("create chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, seekerrors.Unavailable("chat request failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, seekerrors.Newf(seekerrors.KindDependencyFailed,
			"ollama chat returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return resp, nil
}
