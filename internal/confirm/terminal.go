package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/setevik/safetywatch/internal/event"
)

// Terminal prompts on a text stream and reads y/n answers line by line.
type Terminal struct {
	out io.Writer

	mu     sync.Mutex
	id     string
	answer func(bool)
}

// NewTerminal creates a Terminal prompter and starts reading answers from in.
// Lines that arrive while no prompt is open are discarded.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	t := &Terminal{out: out}
	go t.read(in)
	return t
}

func (t *Terminal) Show(ev *event.SafetyEvent, answer func(bool)) {
	t.mu.Lock()
	t.id = ev.ID
	t.answer = answer
	t.mu.Unlock()

	kinds := make([]string, 0, len(ev.Indicators))
	for _, k := range ev.Kinds() {
		kinds = append(kinds, string(k))
	}
	fmt.Fprintf(t.out, "\n⚠️  Safety Alert Detected (%s, %s)\n", strings.Join(kinds, ", "), ev.MaxSeverity())
	fmt.Fprintln(t.out, "We detected signs of distress. Are you in danger?")
	fmt.Fprintln(t.out, "  y = Yes, I need help    n = No, I'm okay")
	fmt.Fprintln(t.out, "If you don't respond, emergency protocols will be activated.")
	fmt.Fprint(t.out, "> ")
}

func (t *Terminal) Dismiss(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.id != id {
		return
	}
	t.id, t.answer = "", nil
	fmt.Fprintln(t.out, "\nNo response, activating emergency protocols.")
}

func (t *Terminal) read(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		yes, ok := parseAnswer(scanner.Text())
		if !ok {
			continue
		}

		t.mu.Lock()
		answer := t.answer
		t.id, t.answer = "", nil
		t.mu.Unlock()

		if answer != nil {
			answer(yes)
		}
	}
}

func parseAnswer(line string) (yes, ok bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}
