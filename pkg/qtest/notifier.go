package qtest

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// maxShown bounds how many values a queue listing prints before eliding the
// rest.
const maxShown = 30

type Notifier struct {
	w io.Writer
}

func NewNotifier(w io.Writer) (n Notifier) {
	n.w = w
	return
}

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
)

func (n Notifier) Echo(line string) {
	cyan.Fprintf(n.w, "cmd> %s\n", line)
}

func (n Notifier) Comment(line string) {
	fmt.Fprintf(n.w, "%s\n", line)
}

func (n Notifier) Info(format string, args ...interface{}) {
	fmt.Fprintf(n.w, format+"\n", args...)
}

func (n Notifier) Warning(format string, args ...interface{}) {
	yellow.Fprintf(n.w, "Warning: "+format+"\n", args...)
}

func (n Notifier) Error(format string, args ...interface{}) {
	red.Fprintf(n.w, "ERROR: "+format+"\n", args...)
}

// Queue prints a queue listing. A nil values slice with absent set prints
// the queue as NULL.
func (n Notifier) Queue(absent bool, values []string) {
	if absent {
		fmt.Fprintln(n.w, "q = NULL")
		return
	}
	shown := values
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	var sb strings.Builder
	sb.WriteString("q = [")
	sb.WriteString(strings.Join(shown, " "))
	if len(values) > maxShown {
		sb.WriteString(" ...")
	}
	sb.WriteString("]")
	fmt.Fprintln(n.w, sb.String())
}

func (n Notifier) Heading(format string, args ...interface{}) {
	bold.Fprintf(n.w, format+"\n", args...)
}

func (n Notifier) Summary(errors int) {
	if errors > 0 {
		red.Fprintf(n.w, "%d error(s) found\n", errors)
		return
	}
	green.Fprintln(n.w, "no errors")
}
