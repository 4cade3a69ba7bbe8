package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"
)

const embedModel = "text-embedding-004"

// GeminiEmbedder computes text embeddings with the Gemini embedContent API.
// Embedding is best-effort: a failure returns an empty vector so callers can
// degrade to keyword search instead of failing the whole operation.
type GeminiEmbedder struct {
	apiKey string
	client *http.Client
}

func NewGeminiEmbedder(apiKey string) *GeminiEmbedder {
	return &GeminiEmbedder{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type embedRequest struct {
	Model   string       `json:"model"`
	Content embedContent `json:"content"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (g *GeminiEmbedder) Embed(ctx context.Context, text string) []float32 {
	if g.apiKey == "" || text == "" {
		return nil
	}

	url := "https://generativelanguage.googleapis.com/v1beta/models/" + embedModel + ":embedContent?key=" + g.apiKey

	payload := embedRequest{
		Model:   "models/" + embedModel,
		Content: embedContent{Parts: []embedPart{{Text: text}}},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("[Embed] Gemini request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("[Embed] Gemini API error: %s", string(respBody))
		return nil
	}

	var result embedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		log.Printf("[Embed] Failed to parse response: %v", err)
		return nil
	}
	return result.Embedding.Values
}
