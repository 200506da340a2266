package hostapi

import (
	"time"

	"payloadkeeper/internal/capture"
	"payloadkeeper/internal/layout"
	"payloadkeeper/internal/payload"
)

// GenerationResponse answers POST /api/generation.
type GenerationResponse struct {
	SaveID  string          `json:"save_id"`
	Saved   bool            `json:"saved"`
	Skipped bool            `json:"skipped"`
	Path    string          `json:"path,omitempty"`
	Draft   bool            `json:"draft"`
	Tags    []string        `json:"tags"`
	Error   string          `json:"error,omitempty"`
	Payload payload.Payload `json:"payload"`
}

// FromOutcome converts a recorder outcome into its wire form.
func FromOutcome(out capture.Outcome) GenerationResponse {
	resp := GenerationResponse{
		SaveID:  out.SaveID,
		Saved:   out.Saved,
		Skipped: out.Skipped,
		Path:    out.Result.Path,
		Draft:   out.Result.Draft,
		Tags:    out.Result.Tags.Names(),
		Payload: out.Payload,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	return resp
}

// FileView is one payload file in listings.
type FileView struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Time      string   `json:"time"`
	Tags      []string `json:"tags"`
	Draft     bool     `json:"draft"`
	Canonical bool     `json:"canonical"`
	Size      int64    `json:"size"`
}

// FileListResponse answers GET /api/payloads.
type FileListResponse struct {
	Scope string     `json:"scope"`
	Files []FileView `json:"files"`
}

// FromFiles converts layout listings into their wire form.
func FromFiles(files []layout.File) []FileView {
	views := make([]FileView, 0, len(files))
	for _, f := range files {
		views = append(views, FileView{
			Name:      f.Name,
			Path:      f.Path,
			Time:      f.Time.Format(time.RFC3339),
			Tags:      f.Tags.Names(),
			Draft:     f.Draft,
			Canonical: f.Canonical,
			Size:      f.Size,
		})
	}
	return views
}

// StatusResponse answers GET /api/status.
type StatusResponse struct {
	Root      string   `json:"root"`
	Payloads  int      `json:"payloads"`
	Drafts    int      `json:"drafts"`
	HasLatest bool     `json:"has_latest"`
	Skeletons []string `json:"skeletons"`
	Newest    string   `json:"newest,omitempty"`
}

// FromSummary converts a layout summary into its wire form.
func FromSummary(root string, s layout.Summary) StatusResponse {
	resp := StatusResponse{
		Root:      root,
		Payloads:  s.Payloads,
		Drafts:    s.Drafts,
		HasLatest: s.HasLatest,
		Skeletons: s.Skeletons,
	}
	if resp.Skeletons == nil {
		resp.Skeletons = []string{}
	}
	if !s.Newest.IsZero() {
		resp.Newest = s.Newest.Format(time.RFC3339)
	}
	return resp
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
