package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"veostudio/internal/videogen"
)

type captureTransport struct {
	responses map[string]responseStub
	lastBody  []byte
	lastURL   string
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.lastURL = req.URL.String()
	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		c.lastBody = body
	}
	if stub, ok := c.responses[req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`)),
	}, nil
}

func (c *captureTransport) setJSONResponse(path string, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (c *captureTransport) setBinaryResponse(path, contentType string, data []byte) {
	c.responses[path] = responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{contentType}},
		body:   data,
	}
}

func (c *captureTransport) setErrorResponse(path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[path] = responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}

func newTestClient(t *testing.T, transport *captureTransport) *Client {
	t.Helper()
	client, err := NewClient(Options{
		APIKey:     "test-key",
		Model:      "veo-2.0-generate-001",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestSubmitVideoPayload(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1beta/models/veo-2.0-generate-001:predictLongRunningGenerateVideo", map[string]any{
		"name": "models/veo-2.0-generate-001/operations/op-123",
	})
	client := newTestClient(t, transport)

	req, err := videogen.BuildRequest("a koi pond at dawn", &videogen.ReferenceImage{
		Data: []byte{0x89, 'P', 'N', 'G'},
		MIME: "image/png",
	}, videogen.Settings{Count: 7, Aspect: videogen.AspectPortrait, NegativePrompt: "blurry"})
	if err != nil {
		t.Fatalf("build request: %v", err)
	}

	handle, err := client.SubmitVideo(context.Background(), req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.Name != "models/veo-2.0-generate-001/operations/op-123" {
		t.Fatalf("handle = %q", handle.Name)
	}
	if !strings.Contains(transport.lastURL, "key=test-key") {
		t.Fatalf("api key missing from request url: %s", transport.lastURL)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	instances := payload["instances"].([]any)
	if len(instances) != 1 {
		t.Fatalf("instances len = %d, want 1", len(instances))
	}
	instance := instances[0].(map[string]any)
	if prompt := instance["prompt"]; prompt != "a koi pond at dawn" {
		t.Fatalf("prompt = %v", prompt)
	}
	image := instance["image"].(map[string]any)
	if mime := image["mimeType"]; mime != "image/png" {
		t.Fatalf("mimeType = %v", mime)
	}
	decoded, err := base64.StdEncoding.DecodeString(image["bytesBase64Encoded"].(string))
	if err != nil || !bytes.Equal(decoded, []byte{0x89, 'P', 'N', 'G'}) {
		t.Fatalf("image bytes not base64 round-trippable: %v", err)
	}
	params := payload["parameters"].(map[string]any)
	if n := params["numberOfVideos"]; n != float64(4) {
		t.Fatalf("numberOfVideos = %v, want the clamped 4", n)
	}
	if aspect := params["aspectRatio"]; aspect != "9:16" {
		t.Fatalf("aspectRatio = %v", aspect)
	}
	if neg := params["negativePrompt"]; neg != "blurry" {
		t.Fatalf("negativePrompt = %v", neg)
	}
}

func TestPollOperationDecodesArtifacts(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1beta/models/veo-2.0-generate-001/operations/op-123", map[string]any{
		"name": "models/veo-2.0-generate-001/operations/op-123",
		"done": true,
		"response": map[string]any{
			"generateVideoResponse": map[string]any{
				"generatedSamples": []any{
					map[string]any{"video": map[string]any{"uri": "https://example.com/files/one"}},
					map[string]any{"video": map[string]any{"uri": "https://example.com/files/two"}},
				},
			},
		},
	})
	client := newTestClient(t, transport)

	status, err := client.PollOperation(context.Background(), videogen.OperationHandle{
		Name: "models/veo-2.0-generate-001/operations/op-123",
	})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if !status.Done {
		t.Fatalf("status not done")
	}
	if len(status.Artifacts) != 2 {
		t.Fatalf("artifacts = %d, want 2", len(status.Artifacts))
	}
	for i, artifact := range status.Artifacts {
		if artifact.Index != i {
			t.Fatalf("artifact %d has index %d", i, artifact.Index)
		}
	}
	if status.Artifacts[0].URI != "https://example.com/files/one" {
		t.Fatalf("artifact order not preserved: %+v", status.Artifacts)
	}
}

func TestPollOperationPendingKeepsHandle(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1beta/operations/op-1", map[string]any{
		"name": "operations/op-2",
		"done": false,
	})
	client := newTestClient(t, transport)

	status, err := client.PollOperation(context.Background(), videogen.OperationHandle{Name: "operations/op-1"})
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Done {
		t.Fatalf("status done, want pending")
	}
	if status.Handle.Name != "operations/op-2" {
		t.Fatalf("rotated handle = %q, want operations/op-2", status.Handle.Name)
	}
}

func TestPollOperationSurfacesOperationError(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setJSONResponse("/v1beta/operations/op-1", map[string]any{
		"name": "operations/op-1",
		"done": true,
		"error": map[string]any{
			"code":    8,
			"message": "Resource has been exhausted (e.g. check quota).",
			"status":  "RESOURCE_EXHAUSTED",
		},
	})
	client := newTestClient(t, transport)

	_, err := client.PollOperation(context.Background(), videogen.OperationHandle{Name: "operations/op-1"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "RESOURCE_EXHAUSTED") {
		t.Fatalf("error %q should carry the status marker", err)
	}
}

func TestInvokeErrorIncludesStatusAndMessage(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setErrorResponse("/v1beta/models/veo-2.0-generate-001:predictLongRunningGenerateVideo", http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{
			"code":    429,
			"message": "Quota exceeded for requests per minute.",
			"status":  "RESOURCE_EXHAUSTED",
		},
	})
	client := newTestClient(t, transport)

	req, _ := videogen.BuildRequest("p", nil, videogen.Settings{})
	_, err := client.SubmitVideo(context.Background(), req)
	if err == nil {
		t.Fatalf("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "429") || !strings.Contains(msg, "RESOURCE_EXHAUSTED") {
		t.Fatalf("error %q should carry both rate limit markers", msg)
	}

	classified := videogen.Classify(client.Model(), err)
	if classified.Kind != videogen.KindRateLimit {
		t.Fatalf("classified kind = %s, want rate_limit", classified.Kind)
	}
}

func TestDownloadAppendsKey(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setBinaryResponse("/files/video-1", "video/mp4", []byte("mp4-bytes"))
	client := newTestClient(t, transport)

	data, mime, err := client.Download(context.Background(), "https://example.com/files/video-1")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "mp4-bytes" {
		t.Fatalf("data = %q", data)
	}
	if mime != "video/mp4" {
		t.Fatalf("mime = %q", mime)
	}
	if !strings.Contains(transport.lastURL, "key=test-key") {
		t.Fatalf("download url missing key: %s", transport.lastURL)
	}
}

func TestDownloadRelativeURIUsesBaseURL(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	transport.setBinaryResponse("/v1beta/files/video-1", "video/mp4", []byte("x"))
	client := newTestClient(t, transport)

	if _, _, err := client.Download(context.Background(), "files/video-1"); err != nil {
		t.Fatalf("download: %v", err)
	}
	if !strings.HasPrefix(transport.lastURL, "https://generativelanguage.googleapis.com/v1beta/files/video-1") {
		t.Fatalf("url = %q", transport.lastURL)
	}
}

func TestDownloadFailureStatus(t *testing.T) {
	transport := &captureTransport{responses: map[string]responseStub{}}
	client := newTestClient(t, transport)

	_, _, err := client.Download(context.Background(), "https://example.com/files/missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "download file status 404") {
		t.Fatalf("err = %v", err)
	}
}
