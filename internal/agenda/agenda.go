// Package agenda downloads meeting agenda PDFs and converts them to
// sanitized, self-contained HTML.
//
// Conversion runs an external pdftohtml-compatible executable against a
// scratch file. The raw converter output is then post-processed so it
// renders legibly in both light and dark clients: the converter hardcodes a
// grey page background and fixed pixel widths, all of which are stripped.
package agenda

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/akkana/mtgmon/internal/faults"
)

// PlaceholderText is the literal body published for meetings without an
// agenda, so downstream RSS consumers always have a <link> target.
const PlaceholderText = "No agenda available."

// Placeholder returns the minimal agenda document for meetings with no
// agenda PDF.
func Placeholder() []byte {
	return []byte("<!DOCTYPE html>\n<html>\n<head><title>No agenda</title></head>\n<body>\n<p>" +
		PlaceholderText + "</p>\n</body>\n</html>\n")
}

// Converter turns a PDF file into a standalone HTML file.
type Converter interface {
	Convert(ctx context.Context, pdfPath, htmlPath string) error
}

// Retriever fetches agenda PDFs and produces sanitized HTML.
type Retriever struct {
	client *http.Client
	conv   Converter
	logger *slog.Logger
}

// NewRetriever creates a Retriever that downloads PDFs with the given
// per-request timeout and converts them with conv.
func NewRetriever(timeout time.Duration, conv Converter, logger *slog.Logger) *Retriever {
	return &Retriever{
		client: &http.Client{Timeout: timeout},
		conv:   conv,
		logger: logger,
	}
}

// Retrieve downloads the agenda PDF at url into scratchDir, converts it,
// and returns the sanitized HTML. Download failures are faults.Network;
// converter failures, timeouts, and empty output are faults.Conversion.
//
// Retrieving the same URL twice yields identical output: everything the
// converter emits nondeterministically is stripped by sanitizing, and
// change detection additionally compares normalized-text fingerprints.
func (r *Retriever) Retrieve(ctx context.Context, url, scratchDir string) ([]byte, error) {
	pdf, err := r.download(ctx, url)
	if err != nil {
		return nil, err
	}

	stem := filepath.Join(scratchDir, uuid.NewString())
	pdfPath := stem + ".pdf"
	htmlPath := stem + ".html"
	if err := os.WriteFile(pdfPath, pdf, 0o644); err != nil {
		return nil, faults.Wrap(faults.Conversion, "write scratch PDF", err)
	}

	if err := r.conv.Convert(ctx, pdfPath, htmlPath); err != nil {
		return nil, faults.WrapURL(faults.Conversion, "convert agenda", url, err)
	}

	raw, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, faults.WrapURL(faults.Conversion, "read converter output", url, err)
	}
	if len(raw) == 0 {
		return nil, faults.WrapURL(faults.Conversion, "converter produced no output", url, nil)
	}

	clean, err := Sanitize(decodeLatin1(raw))
	if err != nil {
		return nil, faults.WrapURL(faults.Conversion, "sanitize agenda HTML", url, err)
	}
	r.logger.Debug("agenda converted", "url", url, "bytes", len(clean))
	return clean, nil
}

func (r *Retriever) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, faults.WrapURL(faults.Network, "build agenda request", url, err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, faults.WrapURL(faults.Network, "fetch agenda", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, faults.WrapURL(faults.Network, fmt.Sprintf("fetch agenda: status %d", resp.StatusCode), url, nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, faults.WrapURL(faults.Network, "read agenda body", url, err)
	}
	return body, nil
}
