package appraisal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		0:       "0 B",
		-5:      "0 B",
		512:     "512 B",
		1536:    "1.5 KiB",
		5 << 20: "5.0 MiB",
		3 << 30: "3.0 GiB",
	}
	for size, want := range cases {
		assert.Equal(t, want, FormatFileSize(size), "size %d", size)
	}
}

func TestAllowedEvidenceFile(t *testing.T) {
	for _, name := range []string{"report.pdf", "Photo.JPG", "sheet.xlsx", "bundle.zip"} {
		assert.True(t, AllowedEvidenceFile(name), name)
	}
	for _, name := range []string{"run.exe", "notes.txt", "pdf", "archive.tar.gz"} {
		assert.False(t, AllowedEvidenceFile(name), name)
	}
}

func TestPreviewable(t *testing.T) {
	assert.True(t, Previewable("scan.PNG"))
	assert.True(t, Previewable("minutes.pdf"))
	assert.False(t, Previewable("deck.pptx"))
}

func TestFileNameFromReference(t *testing.T) {
	cases := map[string]string{
		"https://files.example.com/evidence/2025/final%20report.pdf": "final report.pdf",
		"/evidence/abc/photo.png":                                   "photo.png",
		"photo.png":                                                 "photo.png",
		"":                                                          "",
	}
	for ref, want := range cases {
		assert.Equal(t, want, FileNameFromReference(ref), ref)
	}
}
