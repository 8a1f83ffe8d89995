package jobfile

import (
	"fmt"
	"os"

	"apexgrab/internal/domain"

	"gopkg.in/yaml.v3"
)

// File is a batch of downloads described in YAML:
//
//	tool: yt-audio
//	jobs:
//	  - url: https://youtu.be/abc
//	    format: FLAC
//	  - url: https://youtu.be/def
//	    tool: yt-transcript
//	    language: de
type File struct {
	Tool domain.ToolKind     `yaml:"tool"`
	Jobs []domain.JobRequest `yaml:"jobs"`
}

// Parse decodes a job file and returns ready-to-submit requests. Entries
// without a tool use the file-level tool; empty options take the tool
// defaults.
func Parse(data []byte) ([]domain.JobRequest, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Jobs) == 0 {
		return nil, fmt.Errorf("job file lists no jobs")
	}

	out := make([]domain.JobRequest, 0, len(f.Jobs))
	for i, req := range f.Jobs {
		if req.Tool == "" {
			req.Tool = f.Tool
		}
		if req.Tool == "" {
			req.Tool = domain.ToolYouTubeVideo
		}
		spec, err := domain.LookupTool(req.Tool)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		if req.Language != "" {
			lang, err := domain.NormalizeLanguage(req.Language)
			if err != nil {
				return nil, fmt.Errorf("job %d: %w", i+1, err)
			}
			req.Language = lang
		}
		req.ApplyDefaults(spec)
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		out = append(out, req)
	}
	return out, nil
}

// Load reads and parses the job file at path.
func Load(path string) ([]domain.JobRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return Parse(data)
}
