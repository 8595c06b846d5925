package disposition

import (
	"fmt"

	"github.com/biothings/trapi-testing-tools/internal/config"
)

// ViewMode decides what happens to a response body on screen.
type ViewMode string

const (
	ViewPrompt ViewMode = "prompt"
	ViewSkip   ViewMode = "skip"
	ViewEvery  ViewMode = "every"
	ViewPipe   ViewMode = "pipe"
)

// SaveMode decides whether a response body is written to disk.
type SaveMode string

const (
	SavePrompt SaveMode = "prompt"
	SaveSkip   SaveMode = "skip"
	SaveEvery  SaveMode = "every"
)

// ErrPipeMultiQuery is returned by Resolve when pipe mode is requested for
// more than one query.
var ErrPipeMultiQuery = &config.ConfigurationError{
	Field:     "pipe",
	ErrorType: "usage",
	Message:   "pipe mode only supports a single query",
	Suggestions: []string{
		"run one query at a time with --pipe",
		"use --save <dir> to keep several responses",
	},
}

// Flags mirrors the command line switches that shape disposition.
type Flags struct {
	// View is nil when neither --view nor --no-view was given.
	View     *bool
	SavePath string
	NoSave   bool
	Pipe     bool
}

// Modes is the resolved disposition for a batch of queries.
type Modes struct {
	View     ViewMode
	Save     SaveMode
	SavePath string
	// Multi is set when the batch holds more than one query.
	Multi bool
}

// Resolve turns flags into modes. It runs before any query is sent.
func Resolve(flags Flags, queryCount int) (Modes, error) {
	m := Modes{
		View:     ViewPrompt,
		Save:     SavePrompt,
		SavePath: flags.SavePath,
		Multi:    queryCount > 1,
	}

	if flags.View != nil {
		if *flags.View {
			m.View = ViewEvery
		} else {
			m.View = ViewSkip
		}
	}
	if flags.SavePath != "" {
		m.Save = SaveEvery
	}
	if flags.NoSave {
		m.Save = SaveSkip
	}
	if flags.Pipe {
		if queryCount > 1 {
			return Modes{}, ErrPipeMultiQuery
		}
		m.View = ViewPipe
		m.Save = SaveSkip
	}
	return m, nil
}

// NonInteractive returns modes that never prompt, view or save.
func NonInteractive() Modes {
	return Modes{View: ViewSkip, Save: SaveSkip}
}

// Interactive reports whether either mode may prompt the user.
func (m Modes) Interactive() bool {
	return m.View == ViewPrompt || m.Save == SavePrompt
}

// Args renders the modes back into the flags that produce them.
func (m Modes) Args() []string {
	var args []string
	switch m.View {
	case ViewEvery:
		args = append(args, "-v")
	case ViewSkip:
		args = append(args, "-V")
	case ViewPipe:
		return []string{"-p"}
	}
	switch m.Save {
	case SaveEvery:
		args = append(args, fmt.Sprintf("-s %s", m.SavePath))
	case SaveSkip:
		args = append(args, "-S")
	}
	return args
}
