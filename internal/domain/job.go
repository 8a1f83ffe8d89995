package domain

import (
	"fmt"
	"strings"
)

// JobRequest is the form state submitted to /start. Secondary fields are only
// meaningful for tools whose ToolSpec declares them.
type JobRequest struct {
	URL        string   `json:"url" yaml:"url"`
	Tool       ToolKind `json:"tool" yaml:"tool"`
	Quality    string   `json:"quality" yaml:"quality"`
	SubQuality string   `json:"subQuality,omitempty" yaml:"sub_quality"`
	Language   string   `json:"language,omitempty" yaml:"language"`
	Timestamps string   `json:"timestamps,omitempty" yaml:"timestamps"`
	Format     string   `json:"format,omitempty" yaml:"format"`
}

// JobHandle is the opaque job identifier returned by the server.
type JobHandle string

// JobStatus is one poll result. It is never persisted.
type JobStatus struct {
	Percent   float64 `json:"percent"`
	Ready     bool    `json:"ready"`
	Cancelled bool    `json:"cancelled"`
}

// Terminal reports whether no further polling should occur.
func (s JobStatus) Terminal() bool {
	return s.Ready || s.Cancelled
}

// FormField is one multipart field of the /start body.
type FormField struct {
	Name  string
	Value string
}

// NewJobRequest builds a request for kind with the tool's default options,
// mirroring what selecting the tool in the picker does.
func NewJobRequest(kind ToolKind, url string) (JobRequest, error) {
	spec, err := LookupTool(kind)
	if err != nil {
		return JobRequest{}, err
	}
	req := JobRequest{URL: url, Tool: kind}
	req.ApplyDefaults(spec)
	return req, nil
}

// ApplyDefaults fills empty option fields from spec.
func (r *JobRequest) ApplyDefaults(spec ToolSpec) {
	if r.Quality == "" {
		r.Quality = spec.DefaultQuality
	}
	if r.SubQuality == "" && spec.UsesSubQuality(r.Quality) {
		r.SubQuality = spec.DefaultSubQuality
	}
	if r.Language == "" && spec.NeedsLanguage {
		r.Language = DefaultLanguage
	}
	if r.Timestamps == "" && spec.NeedsTimestamps {
		r.Timestamps = spec.DefaultTimestamps
	}
	if r.Format == "" && len(spec.Formats) > 0 {
		r.Format = spec.Formats[0]
	}
}

// Validate performs the only client-side checks: a non-empty URL and a known
// tool. Option values are left for the server to judge.
func (r JobRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrEmptyURL
	}
	if !r.Tool.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownTool, r.Tool)
	}
	return nil
}

// FormFields returns the multipart fields in submission order. quality is
// always sent, optional fields only when set.
func (r JobRequest) FormFields() []FormField {
	fields := []FormField{
		{Name: "url", Value: r.URL},
		{Name: "quality", Value: r.Quality},
	}
	optional := []FormField{
		{Name: "subQuality", Value: r.SubQuality},
		{Name: "language", Value: r.Language},
		{Name: "timestamps", Value: r.Timestamps},
		{Name: "format", Value: r.Format},
	}
	for _, f := range optional {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	return append(fields, FormField{Name: "tool", Value: string(r.Tool)})
}
