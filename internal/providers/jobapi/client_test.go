package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"apexgrab/internal/domain"
	"apexgrab/internal/storage"
)

type captureTransport struct {
	responses map[string]responseStub
	requests  []*http.Request
	bodies    [][]byte
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{responses: map[string]responseStub{}}
}

func (c *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		body = raw
	}
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, body)
	if stub, ok := c.responses[req.Method+" "+req.URL.Path]; ok {
		return stub.toResponse(), nil
	}
	return responseStub{status: http.StatusNotFound, body: []byte(`{"error":"job not found"}`)}.toResponse(), nil
}

func (c *captureTransport) setJSONResponse(method, path string, status int, payload any) {
	body, _ := json.Marshal(payload)
	c.responses[method+" "+path] = responseStub{
		status: status,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func (c *captureTransport) setBinaryResponse(path string, header http.Header, data []byte) {
	c.responses[http.MethodGet+" "+path] = responseStub{status: http.StatusOK, header: header, body: data}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		header[k] = append([]string(nil), values...)
	}
	return &http.Response{
		StatusCode:    s.status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(s.body)),
		ContentLength: int64(len(s.body)),
	}
}

func newTestClient(t *testing.T, transport *captureTransport) *Client {
	t.Helper()
	client, err := NewClient(Options{
		BaseURL:    "https://api.example.com/",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "  ", "/relative", "example.com"} {
		if _, err := NewClient(Options{BaseURL: raw}); err == nil {
			t.Fatalf("NewClient(%q) succeeded, want error", raw)
		}
	}
	client, err := NewClient(Options{BaseURL: "http://localhost:8080//"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.BaseURL() != "http://localhost:8080" {
		t.Fatalf("BaseURL = %q", client.BaseURL())
	}
}

func TestSubmitSendsOrderedMultipartForm(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse(http.MethodPost, "/start", http.StatusOK, map[string]string{"job_id": "abc"})
	client := newTestClient(t, transport)

	req, err := domain.NewJobRequest(domain.ToolYouTubeTranscript, "https://youtu.be/x")
	if err != nil {
		t.Fatalf("NewJobRequest: %v", err)
	}
	handle, err := client.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if handle != "abc" {
		t.Fatalf("handle = %q, want abc", handle)
	}

	sent := transport.requests[0]
	if sent.URL.String() != "https://api.example.com/start" {
		t.Fatalf("url = %s", sent.URL)
	}
	mediaType, params, err := mime.ParseMediaType(sent.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		t.Fatalf("content type = %q", sent.Header.Get("Content-Type"))
	}
	reader := multipart.NewReader(bytes.NewReader(transport.bodies[0]), params["boundary"])
	var names []string
	values := map[string]string{}
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		raw, _ := io.ReadAll(part)
		names = append(names, part.FormName())
		values[part.FormName()] = string(raw)
	}
	want := []string{"url", "quality", "language", "timestamps", "tool"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("fields = %v, want %v", names, want)
	}
	if values["tool"] != "yt-transcript" || values["language"] != domain.DefaultLanguage {
		t.Fatalf("values = %v", values)
	}
}

func TestSubmitErrors(t *testing.T) {
	req, _ := domain.NewJobRequest(domain.ToolYouTubeVideo, "https://youtu.be/x")

	t.Run("empty job id", func(t *testing.T) {
		transport := newCaptureTransport()
		transport.setJSONResponse(http.MethodPost, "/start", http.StatusOK, map[string]string{"job_id": " "})
		_, err := newTestClient(t, transport).Submit(context.Background(), req)
		if !errors.Is(err, ErrEmptyJobID) {
			t.Fatalf("err = %v, want ErrEmptyJobID", err)
		}
	})

	t.Run("server error message", func(t *testing.T) {
		transport := newCaptureTransport()
		transport.setJSONResponse(http.MethodPost, "/start", http.StatusBadRequest, map[string]string{"error": "url is required"})
		_, err := newTestClient(t, transport).Submit(context.Background(), req)
		if err == nil || !strings.Contains(err.Error(), "status 400: url is required") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		transport := newCaptureTransport()
		transport.responses["POST /start"] = responseStub{status: http.StatusOK, body: []byte("<html>")}
		_, err := newTestClient(t, transport).Submit(context.Background(), req)
		if err == nil || !strings.Contains(err.Error(), "decode start response") {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestStatusAndCancel(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse(http.MethodGet, "/status/abc", http.StatusOK, map[string]any{"percent": 42.5, "ready": false, "cancelled": false})
	transport.setJSONResponse(http.MethodPost, "/cancel/abc", http.StatusOK, map[string]any{"ok": true})
	client := newTestClient(t, transport)

	status, err := client.Status(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Percent != 42.5 || status.Ready || status.Cancelled {
		t.Fatalf("status = %+v", status)
	}
	if err := client.Cancel(context.Background(), "abc"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := transport.requests[1].Method; got != http.MethodPost {
		t.Fatalf("cancel method = %s", got)
	}
	if _, err := client.Status(context.Background(), "missing"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("missing status err = %v", err)
	}
}

func TestDownloadURLEscapesHandle(t *testing.T) {
	client := newTestClient(t, newCaptureTransport())
	if got := client.DownloadURL("a b/c"); got != "https://api.example.com/download/a%20b%2Fc" {
		t.Fatalf("DownloadURL = %q", got)
	}
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		contentType string
		want        string
	}{
		{name: "disposition filename", disposition: `attachment; filename="clip.mp4"`, contentType: "video/mp4", want: "clip.mp4"},
		{name: "path components stripped", disposition: `attachment; filename="../../etc/passwd"`, want: "passwd"},
		{name: "windows path stripped", disposition: `attachment; filename="C:\\tmp\\song.mp3"`, want: "song.mp3"},
		{name: "fallback to handle with json ext", contentType: "application/json", want: "job-1.json"},
		{name: "unknown type keeps handle", contentType: "application/x-unknown-thing", want: "job-1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := attachmentName(tc.disposition, "job-1", tc.contentType); got != tc.want {
				t.Fatalf("attachmentName() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDownloaderSavesArtifact(t *testing.T) {
	transport := newCaptureTransport()
	header := http.Header{
		"Content-Type":        []string{"audio/mpeg"},
		"Content-Disposition": []string{`attachment; filename="song.mp3"`},
	}
	transport.setBinaryResponse("/download/abc", header, []byte("ID3-data"))
	client := newTestClient(t, transport)

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Write(context.Background(), "song.mp3", []byte("existing")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var saved SavedArtifact
	d := NewDownloader(client, store, func(a SavedArtifact) { saved = a })
	if err := d.Retrieve(context.Background(), "abc"); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if saved.Key != "song-1.mp3" || saved.Size != int64(len("ID3-data")) {
		t.Fatalf("saved = %+v", saved)
	}
	data, err := store.Read(saved.Key)
	if err != nil || string(data) != "ID3-data" {
		t.Fatalf("Read = %q, %v", data, err)
	}
	if existing, _ := store.Read("song.mp3"); string(existing) != "existing" {
		t.Fatalf("existing file overwritten: %q", existing)
	}
}

func TestDownloaderReportsHTTPError(t *testing.T) {
	transport := newCaptureTransport()
	transport.setJSONResponse(http.MethodGet, "/download/abc", http.StatusGone, map[string]string{"error": "job cancelled"})
	store, _ := storage.NewFileStore(t.TempDir())
	d := NewDownloader(newTestClient(t, transport), store, nil)
	err := d.Retrieve(context.Background(), "abc")
	if err == nil || !strings.Contains(err.Error(), "job cancelled") {
		t.Fatalf("err = %v", err)
	}
}

func TestLinkPrinter(t *testing.T) {
	var out bytes.Buffer
	p := NewLinkPrinter(newTestClient(t, newCaptureTransport()), &out)
	if err := p.Retrieve(context.Background(), "abc"); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if out.String() != "https://api.example.com/download/abc\n" {
		t.Fatalf("output = %q", out.String())
	}
}
