package appraisal

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ryanuber/go-glob"
)

// AllowedEvidencePatterns lists the file names accepted as evidence.
var AllowedEvidencePatterns = []string{
	"*.pdf", "*.doc", "*.docx", "*.xls", "*.xlsx", "*.ppt", "*.pptx",
	"*.jpg", "*.jpeg", "*.png", "*.gif", "*.zip", "*.rar",
}

var previewablePatterns = []string{"*.pdf", "*.jpg", "*.jpeg", "*.png", "*.gif"}

// FileStore keeps evidence content outside the database.
type FileStore interface {
	Save(ctx context.Context, name string, r io.Reader) (StoredFile, error)
	Remove(ctx context.Context, reference string) error
}

type StoredFile struct {
	Reference string
	Size      int64
	MimeType  string
}

// Upload is an incoming evidence file.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

func AllowedEvidenceFile(name string) bool {
	return matchesAny(strings.ToLower(name), AllowedEvidencePatterns)
}

func Previewable(name string) bool {
	return matchesAny(strings.ToLower(name), previewablePatterns)
}

func matchesAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if glob.Glob(p, name) {
			return true
		}
	}
	return false
}

// FormatFileSize renders a byte count with binary units.
func FormatFileSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(size))
}

// FileNameFromReference extracts the decoded last path segment of a stored
// file reference.
func FileNameFromReference(ref string) string {
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	name := path.Base(ref)
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// EvidenceView decorates stored evidence for display.
type EvidenceView struct {
	Evidence
	SizeLabel   string `json:"sizeLabel"`
	Previewable bool   `json:"previewable"`
}

func NewEvidenceView(e Evidence) EvidenceView {
	name := e.FileName
	if name == "" {
		name = FileNameFromReference(e.FileReference)
	}
	return EvidenceView{Evidence: e, SizeLabel: FormatFileSize(e.FileSize), Previewable: Previewable(name)}
}

func NewEvidenceViews(list []Evidence) []EvidenceView {
	out := make([]EvidenceView, 0, len(list))
	for _, e := range list {
		out = append(out, NewEvidenceView(e))
	}
	return out
}
