package commands

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/thoreinstein/snapkeep/cmd/snapkeep/commands/flags"
	"github.com/thoreinstein/snapkeep/internal/engine"
)

// progressPrinter prints one "[current/total] name" line per file.
type progressPrinter struct {
	w       io.Writer
	counter *color.Color
}

func newProgressPrinter(w io.Writer) engine.ProgressReporter {
	p := &progressPrinter{w: w}
	if flags.ColorMode().Enabled(w) {
		p.counter = color.New(color.FgCyan)
		p.counter.EnableColor()
	}
	return p
}

func (p *progressPrinter) Notify(name string, current, total int) {
	width := len(strconv.Itoa(total))
	counter := fmt.Sprintf("[%*d/%d]", width, current, total)
	if p.counter != nil {
		counter = p.counter.Sprint(counter)
	}
	fmt.Fprintf(p.w, "%s %s\n", counter, name)
}
