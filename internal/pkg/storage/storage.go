package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrInvalidRef is returned for refs that escape the root or are malformed.
var ErrInvalidRef = errors.New("storage: invalid content ref")

// Local keeps downloaded images under Root as
// <provider>/<safe keyword>_<basename>. Refs are slash paths relative to Root.
type Local struct {
	Root string
}

func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{Root: root}, nil
}

// Save writes data and returns its ref. An existing file with the same ref
// is replaced atomically.
func (l *Local) Save(provider, keyword, sourceURL string, data []byte) (string, error) {
	ref := path.Join(SafeName(provider), SafeName(keyword)+"_"+Basename(sourceURL))
	full, err := l.resolve(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("storage: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return "", fmt.Errorf("storage: rename: %w", err)
	}
	return ref, nil
}

// Read returns the bytes stored under ref.
func (l *Local) Read(ref string) ([]byte, error) {
	full, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Exists reports whether ref names a regular file.
func (l *Local) Exists(ref string) bool {
	full, err := l.resolve(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

func (l *Local) resolve(ref string) (string, error) {
	if ref == "" || path.IsAbs(ref) || strings.Contains(ref, `\`) || !fs.ValidPath(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(l.Root, filepath.FromSlash(ref)), nil
}

// SafeName keeps letters, digits, dash and underscore and turns every other
// run of characters into a single underscore.
func SafeName(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "_"
	}
	return out
}

// Basename returns the last path element of a URL without its query,
// sanitised for use as a file name.
func Basename(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		base = "image"
	}
	ext := path.Ext(base)
	stem := SafeName(strings.TrimSuffix(base, ext))
	return stem + SafeExt(ext)
}

// SafeExt returns ext when it is a short alphanumeric extension.
func SafeExt(ext string) string {
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return ""
		}
	}
	return strings.ToLower(ext)
}
