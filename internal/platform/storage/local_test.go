package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pms/internal/domain/appraisal"
)

func newTestStore(t *testing.T, maxBytes int64) *Local {
	t.Helper()
	l := NewLocal(t.TempDir(), "/files/evidence/", maxBytes)
	l.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	return l
}

func TestSaveAndRemove(t *testing.T) {
	l := newTestStore(t, 1<<20)
	ctx := context.Background()

	pdf := "%PDF-1.4\n" + strings.Repeat("x", 4000)
	stored, err := l.Save(ctx, "Q1 report.pdf", strings.NewReader(pdf))
	require.NoError(t, err)
	assert.Equal(t, int64(len(pdf)), stored.Size)
	assert.Equal(t, "application/pdf", stored.MimeType)
	assert.True(t, strings.HasPrefix(stored.Reference, "/files/evidence/20250301/"))
	assert.True(t, strings.HasSuffix(stored.Reference, "-Q1_report.pdf"))

	full, err := l.keyFor(stored.Reference)
	require.NoError(t, err)
	content, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, pdf, string(content))

	require.NoError(t, l.Remove(ctx, stored.Reference))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, l.Remove(ctx, stored.Reference), "removing twice is not an error")
}

func TestSaveRejectsOversizedContent(t *testing.T) {
	l := newTestStore(t, 10)
	_, err := l.Save(context.Background(), "big.png", strings.NewReader(strings.Repeat("a", 11)))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, appraisal.ErrValidation)

	entries, err := os.ReadDir(filepath.Join(l.Dir, "20250301"))
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file is cleaned up")
}

func TestRemoveRejectsForeignReferences(t *testing.T) {
	l := newTestStore(t, 0)
	for _, ref := range []string{
		"https://elsewhere.example.com/a.pdf",
		"/files/evidence/../../etc/passwd",
		"/files/evidence/%2e%2e/secret.pdf",
		"/files/evidence/",
	} {
		assert.ErrorIs(t, l.Remove(context.Background(), ref), ErrForeignRef, ref)
	}
}
