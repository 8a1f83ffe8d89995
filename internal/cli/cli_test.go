package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"apexgrab/internal/consent"
	"apexgrab/internal/domain"
	"apexgrab/internal/infra"
	"apexgrab/internal/jobs"
	"apexgrab/internal/jobserver"
	"apexgrab/internal/storage"
)

type harness struct {
	deps     Deps
	registry *jobserver.Registry
	server   *httptest.Server
	output   string
}

func newHarness(t *testing.T, accepted bool) *harness {
	t.Helper()
	registry := jobserver.NewRegistry(30*time.Millisecond, time.Hour, nil)
	srv := httptest.NewServer(jobserver.NewRouter(jobserver.NewApp(registry), jobserver.RouterOptions{
		Logger: zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)

	state, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	gate, err := consent.Load(consent.NewStore(state, "test-session"))
	if err != nil {
		t.Fatalf("consent.Load: %v", err)
	}
	if accepted {
		if err := gate.Accept(context.Background()); err != nil {
			t.Fatalf("Accept: %v", err)
		}
	}

	output := t.TempDir()
	return &harness{
		deps: Deps{
			Config: &infra.Config{
				APIBaseURL:     srv.URL,
				PollInterval:   5 * time.Millisecond,
				RequestTimeout: 5 * time.Second,
				OutputDir:      output,
			},
			Logger:  infra.NopLogger(),
			Consent: gate,
		},
		registry: registry,
		server:   srv,
		output:   output,
	}
}

func (h *harness) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd(h.deps)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestGetDownloadsArtifact(t *testing.T) {
	h := newHarness(t, true)
	stdout, stderr, err := h.run(t, "get", "https://youtu.be/abc", "--tool", "yt-audio", "--format", "FLAC")
	if err != nil {
		t.Fatalf("get: %v (stderr=%q)", err, stderr)
	}
	path := strings.TrimSpace(stdout)
	if filepath.Dir(path) != h.output || !strings.HasPrefix(filepath.Base(path), "yt-audio-") || filepath.Ext(path) != ".flac" {
		t.Fatalf("saved path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !strings.Contains(string(data), "format: FLAC") {
		t.Fatalf("artifact = %q", data)
	}
	if !strings.Contains(stderr, "100%") {
		t.Fatalf("progress not rendered: %q", stderr)
	}
}

func TestGetLinkOnlyPrintsDownloadURL(t *testing.T) {
	h := newHarness(t, true)
	stdout, _, err := h.run(t, "get", "https://youtu.be/abc", "--link-only")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(stdout), h.server.URL+"/download/") {
		t.Fatalf("stdout = %q", stdout)
	}
	entries, _ := os.ReadDir(h.output)
	if len(entries) != 0 {
		t.Fatalf("link-only wrote %d files", len(entries))
	}
}

func TestGetRequiresConsent(t *testing.T) {
	h := newHarness(t, false)
	_, stderr, err := h.run(t, "get", "https://youtu.be/abc")
	if !errors.Is(err, consent.ErrNotAccepted) {
		t.Fatalf("err = %v, want ErrNotAccepted", err)
	}
	if !strings.Contains(stderr, consent.Notice) {
		t.Fatalf("notice not shown: %q", stderr)
	}
	if h.registry.Len() != 0 {
		t.Fatalf("job submitted without consent")
	}

	if _, _, err := h.run(t, "get", "https://youtu.be/abc", "--accept-terms", "--link-only"); err != nil {
		t.Fatalf("get --accept-terms: %v", err)
	}
	if !h.deps.Consent.Accepted() {
		t.Fatalf("consent not recorded")
	}
}

func TestGetRejectsBadInput(t *testing.T) {
	h := newHarness(t, true)
	tests := []struct {
		name string
		args []string
		want error
	}{
		{name: "no url", args: []string{"get"}},
		{name: "blank url", args: []string{"get", "  "}, want: domain.ErrEmptyURL},
		{name: "unknown tool", args: []string{"get", "https://x", "--tool", "vimeo"}, want: domain.ErrUnknownTool},
		{name: "bad language", args: []string{"get", "https://x", "--tool", "yt-transcript", "--language", "not a tag!"}, want: domain.ErrInvalidLanguage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := h.run(t, tc.args...)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if h.registry.Len() != 0 {
		t.Fatalf("invalid input reached the server")
	}
}

func TestGetRunsJobFile(t *testing.T) {
	h := newHarness(t, true)
	file := filepath.Join(t.TempDir(), "jobs.yaml")
	content := "tool: yt-transcript\njobs:\n  - url: https://youtu.be/a\n  - url: https://youtu.be/b\n    quality: PDF\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write job file: %v", err)
	}
	stdout, _, err := h.run(t, "get", "--file", file)
	if err != nil {
		t.Fatalf("get --file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 || filepath.Ext(lines[0]) != ".txt" || filepath.Ext(lines[1]) != ".pdf" {
		t.Fatalf("saved = %q", lines)
	}
}

func TestGetReportsServerCancellation(t *testing.T) {
	h := newHarness(t, true)
	registry := jobserver.NewRegistry(time.Hour, time.Hour, nil)
	router := jobserver.NewRouter(jobserver.NewApp(registry), jobserver.RouterOptions{Logger: zerolog.Nop()})
	polled := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := strings.CutPrefix(r.URL.Path, "/status/"); ok {
			select {
			case polled <- id:
			default:
			}
		}
		router.ServeHTTP(w, r)
	}))
	defer srv.Close()

	done := make(chan error, 1)
	go func() {
		_, _, err := h.run(t, "get", "https://youtu.be/abc", "--api-url", srv.URL)
		done <- err
	}()

	var id string
	select {
	case id = <-polled:
	case <-time.After(2 * time.Second):
		t.Fatalf("job never polled")
	}
	if _, _, err := h.run(t, "status", "missing", "--api-url", srv.URL); err == nil {
		t.Fatalf("status of unknown job succeeded")
	}
	if _, _, err := h.run(t, "cancel", id, "--api-url", srv.URL); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	select {
	case err := <-done:
		if err == nil || !strings.Contains(err.Error(), "cancelled by the server") {
			t.Fatalf("get err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("get did not finish after cancel")
	}

	stdout, _, err := h.run(t, "status", id, "--api-url", srv.URL)
	if err != nil || !strings.Contains(stdout, "cancelled") {
		t.Fatalf("status = %q, %v", stdout, err)
	}
}

func TestToolsListsCatalog(t *testing.T) {
	h := newHarness(t, false)
	stdout, _, err := h.run(t, "tools")
	if err != nil {
		t.Fatalf("tools: %v", err)
	}
	for _, spec := range domain.Tools() {
		if !strings.Contains(stdout, string(spec.Kind)) {
			t.Fatalf("tools output missing %s:\n%s", spec.Kind, stdout)
		}
	}
}

func TestTermsAccept(t *testing.T) {
	h := newHarness(t, false)
	stdout, _, err := h.run(t, "terms", "show")
	if err != nil || !strings.Contains(stdout, "Not accepted") {
		t.Fatalf("terms show = %q, %v", stdout, err)
	}
	if _, _, err := h.run(t, "terms", "accept"); err != nil {
		t.Fatalf("terms accept: %v", err)
	}
	stdout, _, _ = h.run(t, "terms", "show")
	if !strings.Contains(stdout, "Accepted for this session") {
		t.Fatalf("terms show after accept = %q", stdout)
	}
}

func TestProgressViewRendersOncePerPercent(t *testing.T) {
	var buf bytes.Buffer
	view := newProgressView(&buf)
	for _, pct := range []float64{0, 0, 50, 50.4, 100} {
		view.update(jobs.State{Downloading: true, Status: &domain.JobStatus{Percent: pct}})
	}
	view.update(jobs.State{})
	out := buf.String()
	if got := strings.Count(out, "\r"); got != 3 {
		t.Fatalf("rendered %d frames, want 3: %q", got, out)
	}
	if !strings.HasSuffix(out, "100%\n") {
		t.Fatalf("output = %q", out)
	}
}
