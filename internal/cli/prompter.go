package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/term"
)

// ErrInputClosed is returned when the input stream ends mid-prompt.
var ErrInputClosed = errors.New("input terminated")

// Prompter asks typed questions on a terminal and re-asks until the answer
// is valid.
type Prompter struct {
	in     io.Reader
	reader *LineReader
	writer io.Writer
}

// NewPrompter creates a prompter with the given reader and writer.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Prompter{
		in:     reader,
		reader: NewLineReader(reader),
		writer: writer,
	}
}

// Writer is where prompts and messages are printed.
func (p *Prompter) Writer() io.Writer {
	return p.writer
}

// Say prints one line of output.
func (p *Prompter) Say(line string) {
	if _, err := fmt.Fprintln(p.writer, line); err != nil {
		slog.Warn("Failed to write output", "error", err)
	}
}

// Ask prints prompt and returns the trimmed answer, which may be empty.
func (p *Prompter) Ask(ctx context.Context, prompt string) (string, error) {
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := p.reader.ReadLine(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", ErrInputClosed
		}
		return "", err
	}
	return line, nil
}

// AskRequired asks until a non-empty answer is given.
func (p *Prompter) AskRequired(ctx context.Context, prompt string) (string, error) {
	for {
		answer, err := p.Ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		p.retry("An answer is required. Please try again.")
	}
}

// Choose asks until the answer matches one of valid, ignoring case. The
// matching entry of valid is returned.
func (p *Prompter) Choose(ctx context.Context, prompt string, valid []string) (string, error) {
	for {
		answer, err := p.Ask(ctx, prompt)
		if err != nil {
			return "", err
		}
		for _, v := range valid {
			if strings.EqualFold(answer, v) {
				return v, nil
			}
		}
		p.retry(fmt.Sprintf("Invalid choice. Options: %s", strings.Join(valid, ", ")))
	}
}

// AskInt asks for a whole number in [minValue, maxValue].
func (p *Prompter) AskInt(ctx context.Context, prompt string, minValue, maxValue int) (int, error) {
	for {
		answer, err := p.Ask(ctx, prompt)
		if err != nil {
			return 0, err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr == nil && n >= minValue && n <= maxValue {
			return n, nil
		}
		p.retry(fmt.Sprintf("Enter a number between %d and %d.", minValue, maxValue))
	}
}

// AskAmount asks for a non-negative euro amount. Both "12.50" and "12,50"
// are accepted.
func (p *Prompter) AskAmount(ctx context.Context, prompt string) (decimal.Decimal, error) {
	for {
		answer, err := p.Ask(ctx, prompt)
		if err != nil {
			return decimal.Zero, err
		}
		amount, parseErr := ParseAmount(answer)
		if parseErr == nil {
			return amount, nil
		}
		p.retry(parseErr.Error())
	}
}

// Confirm asks a yes/no question. S (sí) and Y both count as yes.
func (p *Prompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	answer, err := p.Choose(ctx, prompt+" [S/N]", []string{"S", "Y", "N"})
	if err != nil {
		return false, err
	}
	return answer != "N", nil
}

// AskSecret reads a line without echo when the input is a terminal.
func (p *Prompter) AskSecret(ctx context.Context, prompt string) (string, error) {
	f, ok := p.in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return p.Ask(ctx, prompt)
	}
	if _, err := fmt.Fprint(p.writer, FormatPrompt(prompt)); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	secret, err := term.ReadPassword(int(f.Fd()))
	p.Say("")
	if err != nil {
		return "", fmt.Errorf("failed to read secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}

func (p *Prompter) retry(message string) {
	if _, err := fmt.Fprintln(p.writer, FormatError(message)); err != nil {
		slog.Warn("Failed to write error message", "error", err)
	}
}

// ParseAmount parses a non-negative amount with at most two decimals.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "€"))
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not an amount", s)
	}
	if amount.IsNegative() {
		return decimal.Zero, errors.New("amount cannot be negative")
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, errors.New("amount has more than two decimals")
	}
	return amount, nil
}
