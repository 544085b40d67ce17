// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/dataset-engine/internal/logging"
	"github.com/pdiddy/dataset-engine/pkg/types"
)

// FromPDF extracts references from the text layer of a PDF file. Each page
// is scanned as its own set of paragraphs; pages whose text cannot be read
// are skipped with a warning.
func (e *Extractor) FromPDF(ctx context.Context, path string, src types.SourceDocument) (refs []types.DatasetReference, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	c := newCollector(src)
	defer func() {
		// The pdf reader panics on some malformed streams.
		if p := recover(); p != nil {
			e.log.Error("pdf extraction aborted",
				logging.String("path", path), logging.Any("panic", p))
			refs, err = c.refs, nil
		}
	}()

	for i := 1; i <= r.NumPage(); i++ {
		if ctx.Err() != nil {
			break
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, perr := page.GetPlainText(nil)
		if perr != nil {
			e.log.Warn("reading pdf page",
				logging.String("path", path), logging.Int("page", i), logging.Err(perr))
			continue
		}
		e.scanParagraphs(c, text)
	}

	out := e.finish(c, nil)
	e.log.Debug("extracted references",
		logging.String("path", path), logging.Int("count", len(out)))
	return out, nil
}
