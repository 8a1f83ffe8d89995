package domain

import "fmt"

// ToolKind identifies the extraction mode selected for a job. The set is
// closed: every kind has exactly one ToolSpec in the catalog.
type ToolKind string

const (
	ToolYouTubeVideo      ToolKind = "yt-video"
	ToolYouTubeAudio      ToolKind = "yt-audio"
	ToolInstagram         ToolKind = "ig-downloader"
	ToolFacebook          ToolKind = "fb-downloader"
	ToolYouTubeTranscript ToolKind = "yt-transcript"
	ToolYouTubeSummary    ToolKind = "yt-summary"
	ToolTikTok            ToolKind = "tt-downloader"
)

// Option values shared by several tools.
const (
	QualityVideo = "Video"
	QualityAudio = "Audio"

	TimestampsOn  = "True"
	TimestampsOff = "False"

	DefaultLanguage = "English:en"
)

// ToolSpec is the option schema of one tool kind. Empty option lists mean the
// field does not apply and is never sent.
type ToolSpec struct {
	Kind        ToolKind
	Title       string
	Description string
	Placeholder string

	Qualities      []string
	DefaultQuality string

	// SubQualities apply only when the selected quality is QualityVideo.
	SubQualities      []string
	DefaultSubQuality string

	Formats []string

	NeedsLanguage     bool
	NeedsTimestamps   bool
	DefaultTimestamps string
}

var catalog = []ToolSpec{
	{
		Kind:           ToolYouTubeVideo,
		Title:          "YouTube Video",
		Description:    "Ultra HD 4K video downloader",
		Placeholder:    "Paste YouTube video or playlist URL...",
		Qualities:      []string{"480P", "720P", "1080P", "4K"},
		DefaultQuality: "1080P",
	},
	{
		Kind:           ToolYouTubeAudio,
		Title:          "YouTube Audio",
		Description:    "High quality MP3/WAV and many formats audio downloader",
		Placeholder:    "Paste YouTube URL for audio extraction...",
		Qualities:      []string{"Best:320kbps", "High:192kbps", "Mid:128kbps", "Low:64kbps"},
		DefaultQuality: "Best:320kbps",
		Formats:        []string{"MP3", "WAV", "FLAC", "M4A", "OPUS"},
	},
	{
		Kind:              ToolInstagram,
		Title:             "Instagram Downloader",
		Description:       "Save Reels, Stories and Audio of them",
		Placeholder:       "Paste Instagram link here...",
		Qualities:         []string{QualityVideo, QualityAudio},
		DefaultQuality:    QualityVideo,
		SubQualities:      []string{"480P", "720P", "1080P"},
		DefaultSubQuality: "1080P",
	},
	{
		Kind:              ToolFacebook,
		Title:             "Facebook Downloader",
		Description:       "Ultra HD 4k Facebook video and audio saver",
		Placeholder:       "Paste Facebook video link...",
		Qualities:         []string{QualityVideo, QualityAudio},
		DefaultQuality:    QualityVideo,
		SubQualities:      []string{"480P", "720P", "1080P"},
		DefaultSubQuality: "1080P",
	},
	{
		Kind:              ToolYouTubeTranscript,
		Title:             "YouTube Transcript",
		Description:       "Extract subtitles and captions",
		Placeholder:       "Paste YouTube URL to get transcript...",
		Qualities:         []string{"TXT", "PDF"},
		DefaultQuality:    "TXT",
		NeedsLanguage:     true,
		NeedsTimestamps:   true,
		DefaultTimestamps: TimestampsOff,
	},
	{
		Kind:          ToolYouTubeSummary,
		Title:         "YouTube Summarizer",
		Description:   "AI-powered video summarization",
		Placeholder:   "Paste YouTube URL for AI summary...",
		NeedsLanguage: true,
	},
	{
		Kind:           ToolTikTok,
		Title:          "TikTok Downloader",
		Description:    "Download without watermarks",
		Placeholder:    "Paste TikTok video link...",
		Qualities:      []string{"Best", "480P", "720P", "1080P", "4K"},
		DefaultQuality: "Best",
	},
}

// Tools returns the catalog in display order.
func Tools() []ToolSpec {
	out := make([]ToolSpec, len(catalog))
	copy(out, catalog)
	return out
}

// LookupTool returns the spec for kind or ErrUnknownTool.
func LookupTool(kind ToolKind) (ToolSpec, error) {
	for _, spec := range catalog {
		if spec.Kind == kind {
			return spec, nil
		}
	}
	return ToolSpec{}, fmt.Errorf("%w: %q", ErrUnknownTool, kind)
}

// Valid reports whether kind belongs to the catalog.
func (k ToolKind) Valid() bool {
	_, err := LookupTool(k)
	return err == nil
}

// UsesSubQuality reports whether quality unlocks the sub-quality field.
func (s ToolSpec) UsesSubQuality(quality string) bool {
	return len(s.SubQualities) > 0 && quality == QualityVideo
}
