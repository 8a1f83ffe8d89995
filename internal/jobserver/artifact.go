package jobserver

import (
	"fmt"
	"mime"
	"strings"
	"time"

	"apexgrab/internal/domain"
)

// Artifact is the generated download of a finished job.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// renderArtifact produces a small text placeholder named after the output a
// real backend would return for the tool.
func renderArtifact(id string, req domain.JobRequest, createdAt time.Time) Artifact {
	ext := artifactExt(req)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}

	var b strings.Builder
	b.WriteString("ApexGrab development artifact\n")
	fmt.Fprintf(&b, "job: %s\n", id)
	fmt.Fprintf(&b, "created: %s\n", createdAt.UTC().Format(time.RFC3339))
	for _, field := range req.FormFields() {
		fmt.Fprintf(&b, "%s: %s\n", field.Name, field.Value)
	}

	return Artifact{
		Filename:    fmt.Sprintf("%s-%s%s", req.Tool, short, ext),
		ContentType: contentType,
		Body:        []byte(b.String()),
	}
}

func artifactExt(req domain.JobRequest) string {
	switch req.Tool {
	case domain.ToolYouTubeAudio:
		if req.Format != "" {
			return "." + strings.ToLower(req.Format)
		}
		return ".mp3"
	case domain.ToolYouTubeTranscript:
		if strings.EqualFold(req.Quality, "PDF") {
			return ".pdf"
		}
		return ".txt"
	case domain.ToolYouTubeSummary:
		return ".txt"
	}
	if req.Quality == domain.QualityAudio {
		return ".m4a"
	}
	return ".mp4"
}
