package disposition

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/biothings/trapi-testing-tools/pkg/logging"
)

// Prompter asks the user questions. Implementations write prompts to
// stderr so stdout stays clean for pipe mode.
type Prompter interface {
	Confirm(question string, def bool) (bool, error)
	Path(question string) (string, error)
}

// Controller applies Modes to each response body of a batch.
type Controller struct {
	modes    Modes
	prompter Prompter
	viewer   Viewer
	stdout   io.Writer
}

// Option configures a Controller.
type Option func(*Controller)

// WithPrompter sets the prompter used by prompt modes. Without one, prompt
// modes behave as skip.
func WithPrompter(p Prompter) Option {
	return func(c *Controller) { c.prompter = p }
}

// WithViewer replaces the default pager viewer.
func WithViewer(v Viewer) Option {
	return func(c *Controller) { c.viewer = v }
}

// WithStdout redirects pipe output.
func WithStdout(w io.Writer) Option {
	return func(c *Controller) { c.stdout = w }
}

// NewController creates a Controller for the given modes.
func NewController(modes Modes, opts ...Option) *Controller {
	c := &Controller{
		modes:  modes,
		viewer: NewPagerViewer("fx", "less"),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Modes returns the modes the controller was built with.
func (c *Controller) Modes() Modes {
	return c.modes
}

// Dispose views, saves or pipes body according to the modes. name is the
// query name and only shapes saved file names.
func (c *Controller) Dispose(name string, body any) error {
	if body == nil {
		return nil
	}

	if c.modes.View == ViewPipe {
		data, _, err := encode(body, false)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.stdout, string(data))
		return err
	}

	view, err := c.should("View", string(c.modes.View))
	if err != nil {
		return err
	}
	if view {
		if err := c.viewer.View(body); err != nil {
			return fmt.Errorf("failed to view response for %s: %w", name, err)
		}
	}

	save, err := c.should("Save", string(c.modes.Save))
	if err != nil {
		return err
	}
	if !save {
		return nil
	}

	target := c.modes.SavePath
	if target == "" {
		if c.prompter == nil {
			return nil
		}
		target, err = c.prompter.Path("Enter a path to save to:")
		if err != nil {
			return err
		}
		if strings.TrimSpace(target) == "" {
			logging.Warn("Disposition", "No path given, response for %s not saved", name)
			return nil
		}
	}

	written, err := Save(body, SaveTarget(target, name, body, c.modes.Multi))
	if err != nil {
		return err
	}
	logging.Info("Disposition", "Saved response for %s to %s", name, written)
	return nil
}

func (c *Controller) should(action, mode string) (bool, error) {
	switch mode {
	case string(ViewEvery):
		return true, nil
	case string(ViewPrompt):
		if c.prompter == nil {
			return false, nil
		}
		return c.prompter.Confirm(fmt.Sprintf("%s response body?", action), true)
	default:
		return false, nil
	}
}

// SaveTarget computes the file a body is written to. A directory target
// (existing, or ending in a separator) gets "<name>.json" or "<name>.txt"
// inside it. Otherwise, in a multi-query batch, the file name is prefixed
// with the query name.
func SaveTarget(target, name string, body any, multi bool) string {
	target = expandHome(target)
	safe := strings.ReplaceAll(name, "/", "-")

	if isDirTarget(target) {
		ext := ".txt"
		if isStructured(body) {
			ext = ".json"
		}
		return filepath.Join(target, safe+ext)
	}
	if multi && safe != "" {
		dir, file := filepath.Split(target)
		return filepath.Join(dir, safe+"-"+file)
	}
	return target
}

// Save writes body to path, creating parent directories. Structured bodies
// are written as indented JSON, anything else as text.
func Save(body any, path string) (string, error) {
	data, _, err := encode(body, true)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func encode(body any, indent bool) ([]byte, bool, error) {
	switch b := body.(type) {
	case string:
		return []byte(b), false, nil
	case []byte:
		return b, false, nil
	}

	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(body, "", "  ")
	} else {
		data, err = json.Marshal(body)
	}
	if err != nil {
		return nil, true, fmt.Errorf("failed to encode response body: %w", err)
	}
	return data, true, nil
}

func isStructured(body any) bool {
	switch body.(type) {
	case string, []byte:
		return false
	default:
		return true
	}
}

func isDirTarget(target string) bool {
	if strings.HasSuffix(target, string(os.PathSeparator)) || strings.HasSuffix(target, "/") {
		return true
	}
	info, err := os.Stat(target)
	return err == nil && info.IsDir()
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
