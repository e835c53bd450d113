package agenda

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// PDFToHTML runs a poppler pdftohtml-compatible executable: complex layout
// mode, single document, no frames, images ignored.
type PDFToHTML struct {
	// Path is the executable name or path.
	Path string

	// Timeout bounds one invocation, startup included.
	Timeout time.Duration
}

// Convert runs the converter. A non-zero exit or exceeding the timeout is
// reported as an error; the caller classifies it as a conversion fault.
func (c *PDFToHTML) Convert(ctx context.Context, pdfPath, htmlPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path,
		"-c", "-s", "-i", "-noframes", "-enc", "utf-8",
		pdfPath, htmlPath)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timed out after %s", c.Path, c.Timeout)
	}
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", c.Path, err, out)
	}
	return nil
}
