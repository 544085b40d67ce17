// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package strategy

import (
	"context"
	"net/url"
	"strings"

	"github.com/pdiddy/dataset-engine/internal/httputil"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// dataExtensions are URL path suffixes treated as direct data files.
var dataExtensions = []string{
	".csv", ".tsv", ".txt", ".json", ".xml", ".xlsx", ".xls",
	".zip", ".tar", ".gz", ".tgz", ".bz2", ".xz", ".7z",
	".h5", ".hdf5", ".nwb", ".mat", ".npy", ".npz", ".nii", ".mgz",
	".tif", ".tiff", ".swc", ".czi", ".ims", ".mrc",
	".fastq", ".fq", ".bam", ".sam", ".vcf", ".bed", ".bw", ".mtx",
	".parquet", ".feather", ".rds", ".rdata", ".pkl",
	".edf", ".bdf", ".abf", ".nev", ".ns5", ".dat", ".bin",
	".obj", ".ply", ".stl",
}

// HasDataExtension reports whether the path of rawURL ends in a recognized
// data file extension.
func HasDataExtension(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	p := strings.ToLower(u.Path)
	for _, ext := range dataExtensions {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}
	return false
}

type directFile struct {
	fetch *httputil.FetchContext
}

// NewDirectFile returns the strategy that streams a URL pointing straight at
// a data file, presenting itself as a browser navigating from the host's
// front page.
func NewDirectFile(f *httputil.FetchContext) Strategy {
	return &directFile{fetch: f}
}

func (s *directFile) Name() string { return NameDirectFile }

func (s *directFile) Attempt(ctx context.Context, ref types.DatasetReference, dir string) (Outcome, error) {
	if ref.URL == "" || !HasDataExtension(ref.URL) {
		return Outcome{}, notApplicable("%q is not a data file URL", ref.URL)
	}

	hdr := s.fetch.BrowserHeaders(httputil.Origin(ref.URL))
	hdr.Set("Accept", "*/*")
	entry, err := s.fetch.Download(ctx, ref.URL, hdr, dir, "")
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Files: []types.FileEntry{entry}}, nil
}
