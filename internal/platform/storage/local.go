// Package storage keeps evidence content on local disk and serves it under a
// public base URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"pms/internal/domain/appraisal"
)

var (
	ErrTooLarge   = appraisal.ErrFileTooLarge
	ErrForeignRef = errors.New("reference is not managed by this store")
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_]+`)

const sniffLen = 3072

// Local writes files below Dir. References are BaseURL joined with the
// relative key, each segment path-escaped.
type Local struct {
	Dir      string
	BaseURL  string
	MaxBytes int64
	Now      func() time.Time
}

func NewLocal(dir, baseURL string, maxBytes int64) *Local {
	return &Local{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), MaxBytes: maxBytes, Now: time.Now}
}

func sanitizeFilename(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

func (l *Local) newKey(name string) string {
	day := l.Now().UTC().Format("20060102")
	return day + "/" + uuid.NewString() + "-" + sanitizeFilename(path.Base(name))
}

func (l *Local) Save(ctx context.Context, name string, r io.Reader) (appraisal.StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return appraisal.StoredFile{}, err
	}
	key := l.newKey(name)
	full := filepath.Join(l.Dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return appraisal.StoredFile{}, fmt.Errorf("creating evidence directory: %w", err)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return appraisal.StoredFile{}, err
	}
	head = head[:n]

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return appraisal.StoredFile{}, err
	}
	src := io.MultiReader(bytes.NewReader(head), r)
	if l.MaxBytes > 0 {
		src = io.LimitReader(src, l.MaxBytes+1)
	}
	size, err := io.Copy(f, src)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && l.MaxBytes > 0 && size > l.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return appraisal.StoredFile{}, err
	}

	return appraisal.StoredFile{
		Reference: l.reference(key),
		Size:      size,
		MimeType:  mimetype.Detect(head).String(),
	}, nil
}

func (l *Local) reference(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return l.BaseURL + "/" + strings.Join(parts, "/")
}

// keyFor resolves a reference back to a path below Dir.
func (l *Local) keyFor(ref string) (string, error) {
	rest, ok := strings.CutPrefix(ref, l.BaseURL+"/")
	if !ok {
		return "", ErrForeignRef
	}
	key, err := url.PathUnescape(rest)
	if err != nil {
		return "", err
	}
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", ErrForeignRef
	}
	return filepath.Join(l.Dir, filepath.FromSlash(clean)), nil
}

// Remove deletes stored content. A reference outside this store is an error;
// content that is already gone is not.
func (l *Local) Remove(_ context.Context, ref string) error {
	full, err := l.keyFor(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Handler serves stored content under the base URL path.
func (l *Local) Handler() http.Handler {
	prefix := l.BaseURL
	if u, err := url.Parse(l.BaseURL); err == nil {
		prefix = u.Path
	}
	return http.StripPrefix(prefix, http.FileServer(http.Dir(l.Dir)))
}

var _ appraisal.FileStore = (*Local)(nil)
