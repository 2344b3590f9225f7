package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DeepLClient implements Provider using DeepL's text translation API.
type DeepLClient struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
}

// deepLRequest is the request payload for the DeepL v2 translate endpoint.
type deepLRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

// deepLResponse is the response payload from the DeepL v2 translate endpoint.
type deepLResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// NewDeepLClient creates a new DeepL translation client.
func NewDeepLClient(apiKey, apiURL string) *DeepLClient {
	return &DeepLClient{
		apiKey: apiKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Translate converts a single sentence to the target language. One external
// call, no retry: any failure surfaces as ErrTranslationFailed and the
// caller emits an error event for that sentence only.
func (c *DeepLClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	reqBody := deepLRequest{
		Text:       []string{text},
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrTranslationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrTranslationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: api returned status %d", ErrTranslationFailed, resp.StatusCode)
	}

	var parsed deepLResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTranslationFailed, err)
	}

	if len(parsed.Translations) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrTranslationFailed)
	}

	return parsed.Translations[0].Text, nil
}
