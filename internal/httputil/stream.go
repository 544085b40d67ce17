// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

// PartialSuffix marks a file still being written.
const PartialSuffix = ".part"

// Download streams rawURL into dir and returns its manifest entry. The body
// goes to a temporary file that is renamed on success, and the SHA-256 is
// computed while streaming. A caller-supplied name may be a relative path
// (a repository's folder layout) and is kept under dir through SafeRelPath.
// When name is empty it is taken from Content-Disposition, then the URL
// path, then the sniffed content type, and reduced to a base name.
func (f *FetchContext) Download(ctx context.Context, rawURL string, hdr http.Header, dir, name string) (types.FileEntry, error) {
	resp, err := f.Get(ctx, rawURL, hdr)
	if err != nil {
		return types.FileEntry{}, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.FileEntry{}, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".download-*"+PartialSuffix)
	if err != nil {
		return types.FileEntry{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	h := sha256.New()
	n, copyErr := io.Copy(io.MultiWriter(tmpFile, h), resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return types.FileEntry{}, fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return types.FileEntry{}, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if name != "" {
		name = SafeRelPath(name)
	} else {
		name = ResponseFileName(resp)
		if name == "" {
			name = "download"
			if mt, err := mimetype.DetectFile(tmpPath); err == nil {
				name += mt.Extension()
			}
		}
		name = SafeFileName(name)
	}

	destPath := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		os.Remove(tmpPath)
		return types.FileEntry{}, fmt.Errorf("creating directory for %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return types.FileEntry{}, fmt.Errorf("renaming temp file: %w", err)
	}

	return types.FileEntry{Name: name, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

// ResponseFileName picks a file name from Content-Disposition or the final
// request URL path. It returns "" when neither yields one.
func ResponseFileName(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	if resp.Request != nil && resp.Request.URL != nil {
		return URLFileName(resp.Request.URL.String())
	}
	return ""
}

// URLFileName returns the last path segment of rawURL, or "".
func URLFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return base
}

// SafeFileName strips directory components and characters that are unsafe
// on common filesystems.
func SafeFileName(name string) string {
	name = cleanSegment(filepath.Base(strings.ReplaceAll(name, `\`, "/")))
	if name == "" || name == "/" {
		return "download"
	}
	return name
}

// SafeRelPath sanitizes a relative path such as "raw/data.csv" segment by
// segment and returns it slash-separated. Empty, "." and ".." segments are
// dropped, so the result never leaves the directory it is joined to.
func SafeRelPath(name string) string {
	var parts []string
	for _, seg := range strings.Split(strings.ReplaceAll(name, `\`, "/"), "/") {
		if seg == "." || seg == ".." {
			continue
		}
		if seg = cleanSegment(seg); seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "download"
	}
	return strings.Join(parts, "/")
}

// UniqueName returns name, or name with " (2)", " (3)" and so on inserted
// before the extension, whichever is not yet in used (compared without
// case). The chosen name is added to used.
func UniqueName(used map[string]bool, name string) string {
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

func cleanSegment(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '|', '?', '*', 0:
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	return strings.TrimLeft(strings.TrimSpace(name), ".")
}

// TotalSize sums the sizes in a manifest.
func TotalSize(files []types.FileEntry) int64 {
	var n int64
	for _, f := range files {
		n += f.Size
	}
	return n
}
