package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmylchreest/codeindex/pkg/httputil"
	"github.com/jmylchreest/codeindex/pkg/store"
)

// HTTPSummarizer and HTTPEmbeddingClient are example Summarizer/
// EmbeddingClient implementations that call a JSON HTTP endpoint via
// httputil.Client. They exist to demonstrate wiring the interfaces from
// §1/§6; the actual LLM-driven summary and embedding services remain out
// of scope.
//
// Retrying is the Enricher's job, not the transport's: Enricher.withRetry
// already retries a whole failed collaborator call, so the client here is
// built with zero retries of its own (WithMaxRetries(0)) to avoid
// compounding two retry loops into one call.

// HTTPSummarizer posts a symbol's signature and doc comment to
// endpoint and expects back {"summary": "...", "tokens": N}.
type HTTPSummarizer struct {
	client   *httputil.Client
	endpoint string
}

// NewHTTPSummarizer builds a Summarizer backed by an HTTP endpoint, with
// per-request timeout matching cfg's enrichment tunables.
func NewHTTPSummarizer(endpoint string, timeoutSeconds int) *HTTPSummarizer {
	return &HTTPSummarizer{
		endpoint: endpoint,
		client: httputil.NewClient(
			httputil.WithMaxRetries(0),
			httputil.WithHTTPTimeout(time.Duration(timeoutSeconds)*time.Second),
		),
	}
}

type summarizeRequest struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Signature  string `json:"signature"`
	DocComment string `json:"doc_comment"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	Tokens  int    `json:"tokens"`
}

func (h *HTTPSummarizer) Summarize(ctx context.Context, sym store.Symbol) (string, int, error) {
	body, err := json.Marshal(summarizeRequest{
		Name:       sym.Name,
		Kind:       sym.Kind,
		Signature:  sym.Signature,
		DocComment: sym.DocComment,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal summarize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("summarize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", 0, fmt.Errorf("summarize: unexpected status %d: %s", resp.StatusCode, data)
	}

	var out summarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", 0, fmt.Errorf("decode summarize response: %w", err)
	}
	return out.Summary, out.Tokens, nil
}

// HTTPEmbeddingClient posts a summary's text to endpoint and expects
// back {"vector": [...]}.
type HTTPEmbeddingClient struct {
	client   *httputil.Client
	endpoint string
	model    string
}

// NewHTTPEmbeddingClient builds an EmbeddingClient backed by an HTTP
// endpoint, identified by model, with per-request timeout matching cfg's
// enrichment tunables.
func NewHTTPEmbeddingClient(endpoint, model string, timeoutSeconds int) *HTTPEmbeddingClient {
	return &HTTPEmbeddingClient{
		endpoint: endpoint,
		model:    model,
		client: httputil.NewClient(
			httputil.WithMaxRetries(0),
			httputil.WithHTTPTimeout(time.Duration(timeoutSeconds)*time.Second),
		),
	}
}

func (h *HTTPEmbeddingClient) Model() string { return h.model }

type embedRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

func (h *HTTPEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: h.model, Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed: unexpected status %d: %s", resp.StatusCode, data)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	return out.Vector, nil
}
