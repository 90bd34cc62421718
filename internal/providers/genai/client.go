package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"veostudio/internal/infra"
	"veostudio/internal/videogen"
)

// Options controls how the Gemini video client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Gemini long-running video generation API. It implements
// the videogen Submitter, StatusPoller and Downloader contracts so the
// orchestration core never touches HTTP directly and tests can substitute
// doubles.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

type predictRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type videoInstance struct {
	Prompt string       `json:"prompt,omitempty"`
	Image  *inlineImage `json:"image,omitempty"`
}

type inlineImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType,omitempty"`
}

type videoParameters struct {
	NumberOfVideos   int    `json:"numberOfVideos,omitempty"`
	AspectRatio      string `json:"aspectRatio,omitempty"`
	NegativePrompt   string `json:"negativePrompt,omitempty"`
	PersonGeneration string `json:"personGeneration,omitempty"`
}

type operationEnvelope struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Error    *operationError    `json:"error,omitempty"`
	Response *operationResponse `json:"response,omitempty"`
}

type operationError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Status  string `json:"status,omitempty"`
}

type operationResponse struct {
	GenerateVideoResponse *generateVideoResponse `json:"generateVideoResponse,omitempty"`
	GeneratedVideos       []generatedVideo       `json:"generatedVideos,omitempty"`
}

type generateVideoResponse struct {
	GeneratedSamples []generatedVideo `json:"generatedSamples"`
}

type generatedVideo struct {
	Video *videoRef `json:"video,omitempty"`
}

type videoRef struct {
	URI string `json:"uri,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
		Status  string `json:"status,omitempty"`
	} `json:"error"`
}

// NewClient constructs a client with sane defaults. Callers may provide a nil
// HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("genai: api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "veo-2.0-generate-001"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     logger,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.model
}

// SubmitVideo starts a long-running video job and returns its operation
// handle. Submission failures are surfaced unmodified; no retries happen at
// this layer.
func (c *Client) SubmitVideo(ctx context.Context, req videogen.GenerationRequest) (videogen.OperationHandle, error) {
	instance := videoInstance{Prompt: req.Prompt}
	if req.Image != nil {
		instance.Image = &inlineImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image.Data),
			MimeType:           req.Image.MIME,
		}
	}
	payload := predictRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			NumberOfVideos:   req.Count,
			AspectRatio:      string(req.Aspect),
			NegativePrompt:   req.NegativePrompt,
			PersonGeneration: req.PersonGeneration,
		},
	}

	var env operationEnvelope
	path := fmt.Sprintf("/models/%s:predictLongRunningGenerateVideo", url.PathEscape(c.model))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &env); err != nil {
		return videogen.OperationHandle{}, err
	}
	if env.Name == "" {
		return videogen.OperationHandle{}, fmt.Errorf("genai: operation name missing from response")
	}

	c.logger.Debug().
		Str("model", c.model).
		Str("operation", env.Name).
		Int("videos", req.Count).
		Msg("genai: submitted video job")
	return videogen.OperationHandle{Name: env.Name}, nil
}

// PollOperation queries the operation once. The returned status carries the
// handle for the next poll, which may differ from the one sent.
func (c *Client) PollOperation(ctx context.Context, handle videogen.OperationHandle) (videogen.OperationStatus, error) {
	if handle.Name == "" {
		return videogen.OperationStatus{}, fmt.Errorf("genai: operation handle is empty")
	}

	var env operationEnvelope
	path := "/" + strings.TrimLeft(handle.Name, "/")
	if err := c.invoke(ctx, http.MethodGet, path, nil, &env); err != nil {
		return videogen.OperationStatus{}, err
	}

	next := handle
	if env.Name != "" {
		next.Name = env.Name
	}
	status := videogen.OperationStatus{Done: env.Done, Handle: next}
	if !env.Done {
		return status, nil
	}
	if env.Error != nil {
		return status, fmt.Errorf("gemini operation error %d %s: %s", env.Error.Code, env.Error.Status, env.Error.Message)
	}
	status.Artifacts = collectArtifacts(env.Response)
	return status, nil
}

// Download fetches the bytes behind an artifact URI with the API key appended
// as a query parameter, the way the files API expects it.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("genai: create download request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("genai: download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("download file status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("genai: read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	endpoint := c.baseURL + path
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("genai: marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("genai: create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genai: invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			if apiErr.Error.Status != "" {
				return fmt.Errorf("gemini status %d %s: %s", resp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
			}
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		data, _ := io.ReadAll(resp.Body)
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("genai: decode gemini response: %w", err)
	}
	return nil
}

// collectArtifacts flattens both response shapes the API has shipped
// (generateVideoResponse.generatedSamples and the newer generatedVideos) into
// ordered refs.
func collectArtifacts(resp *operationResponse) []videogen.ArtifactRef {
	if resp == nil {
		return nil
	}
	samples := resp.GeneratedVideos
	if resp.GenerateVideoResponse != nil {
		samples = resp.GenerateVideoResponse.GeneratedSamples
	}
	var refs []videogen.ArtifactRef
	for _, sample := range samples {
		if sample.Video == nil || strings.TrimSpace(sample.Video.URI) == "" {
			continue
		}
		refs = append(refs, videogen.ArtifactRef{
			URI:   sample.Video.URI,
			Index: len(refs),
			MIME:  "video/mp4",
		})
	}
	return refs
}

var (
	_ videogen.Submitter    = (*Client)(nil)
	_ videogen.StatusPoller = (*Client)(nil)
	_ videogen.Downloader   = (*Client)(nil)
)
