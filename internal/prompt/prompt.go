// Package prompt asks the user to confirm a destructive step.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// OverwriteWarning is shown before the input playlist is rewritten in place.
const OverwriteWarning = `
WARNING!
This will remove duplicates from your playlist.
However, it will OVERWRITE your playlist.

We recommend you to make a backup of your playlist.
Do you want to continue? [y/n]: `

// Confirm writes question to out and reads one line from in. Only "y" (any case,
// surrounding space ignored) confirms; any other answer or end of input declines.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	if _, err := fmt.Fprint(out, question); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}
