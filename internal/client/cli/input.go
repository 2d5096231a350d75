package cli

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// readString prompts and reads one trimmed line from stdin.
func (a *App) readString(prompt string) string {
	fmt.Print(prompt)
	line, err := a.reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

// readPassword prompts and reads a password without echoing it.
func (a *App) readPassword(prompt string) string {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
