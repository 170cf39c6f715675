package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter asks the user for input on stdin. When disabled (non-interactive
// flag, or stdin is not a terminal) every question returns the empty answer
// and the resolution precedence chain falls through to saved choices and
// catalog defaults.
type prompter struct {
	enabled bool
	in      *bufio.Reader
}

func newPrompter(nonInteractive bool) *prompter {
	return &prompter{
		enabled: !nonInteractive && term.IsTerminal(int(os.Stdin.Fd())),
		in:      bufio.NewReader(os.Stdin),
	}
}

// ask prints the question with its default and returns the trimmed answer.
// An empty answer (or a disabled prompter) returns "", never the default;
// applying defaults is the resolver's job.
func (p *prompter) ask(question, def string) string {
	if !p.enabled {
		return ""
	}

	if def != "" {
		fmt.Printf("%s [%s]: ", question, def)
	} else {
		fmt.Printf("%s: ", question)
	}

	line, err := p.in.ReadString('\n')
	if err != nil {
		// EOF on stdin: behave as if the user accepted every default.
		p.enabled = false
		return ""
	}
	return strings.TrimSpace(line)
}
