package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"gatewayctl/internal/commands"
	"gatewayctl/internal/notify"
)

// newGateway builds the command layer for one mode. Config is reloaded before
// every start.
func newGateway(cfg *Config, notifier notify.Notifier, confirmer commands.Confirmer) *commands.App {
	return commands.New(commands.Options{
		Config:    *cfg.Gateway,
		Reload:    cfg.load,
		Notifier:  notifier,
		Confirmer: confirmer,
	})
}

// promptConfirmer asks on the terminal and accepts only y or yes.
func promptConfirmer(in io.Reader, out io.Writer) commands.Confirmer {
	reader := bufio.NewReader(in)
	return commands.ConfirmFunc(func(ctx context.Context, message string) (bool, error) {
		fmt.Fprintf(out, "%s [y/N] ", message)

		type result struct {
			line string
			err  error
		}
		answer := make(chan result, 1)
		go func() {
			line, err := reader.ReadString('\n')
			answer <- result{line: line, err: err}
		}()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case r := <-answer:
			if r.err != nil && r.err != io.EOF {
				return false, r.err
			}
			switch strings.ToLower(strings.TrimSpace(r.line)) {
			case "y", "yes":
				return true, nil
			default:
				return false, nil
			}
		}
	})
}
