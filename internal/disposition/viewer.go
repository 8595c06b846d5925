package disposition

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// Viewer displays a response body to the user.
type Viewer interface {
	View(body any) error
}

// PagerViewer pipes bodies into an external pager: one for JSON, one for
// text. A pager that is not installed falls back to Stdout.
type PagerViewer struct {
	JSONPager string
	TextPager string
	Stdout    io.Writer
	Stderr    io.Writer
}

// NewPagerViewer returns a PagerViewer bound to the process streams.
func NewPagerViewer(jsonPager, textPager string) *PagerViewer {
	return &PagerViewer{
		JSONPager: jsonPager,
		TextPager: textPager,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

func (v *PagerViewer) View(body any) error {
	data, structured, err := encode(body, false)
	if err != nil {
		return err
	}

	pager := v.TextPager
	if structured {
		pager = v.JSONPager
	}

	fields := strings.Fields(pager)
	if len(fields) == 0 {
		return v.fallback(data)
	}
	path, err := exec.LookPath(fields[0])
	if err != nil {
		logging.Warn("Disposition", "Pager %s not found, writing to stdout", fields[0])
		return v.fallback(data)
	}

	cmd := exec.Command(path, fields[1:]...)
	cmd.Stdin = bytes.NewReader(data)
	cmd.Stdout = v.Stdout
	cmd.Stderr = v.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pager %s failed: %w", fields[0], err)
	}
	return nil
}

func (v *PagerViewer) fallback(data []byte) error {
	_, err := fmt.Fprintln(v.Stdout, string(data))
	return err
}
