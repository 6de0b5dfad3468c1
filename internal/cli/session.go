package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// SessionOptions holds flags for the session command.
type SessionOptions struct {
	*RootOptions

	// Exact watches only the given addresses, not their descendants.
	Exact bool
}

// NewSessionCommand creates the session command.
func NewSessionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "session [watch-address...]",
		Short: "Run requests from stdin and print the changes they announce",
		Long: `Open the provider once and execute one JSON request per input line,
printing each response followed by the changes delivered to the watched
addresses. Watches default to the whole store.

Request fields: op (query|insert|update|delete|type), address, values,
selection, args, columns, sort, distinct.

Example:
  echo '{"op":"insert","address":"images","values":{"image_id":"k1"}}' |
    dataprovider session images`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Exact, "exact", false, "watch only the given addresses, not their descendants")

	return cmd
}

func runSession(opts *SessionOptions, watches []string, cmd *cobra.Command) error {
	e, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := e.Close(); closeErr != nil {
			e.logger.Error("error closing store", "error", closeErr)
		}
	}()

	if len(watches) == 0 {
		watches = []string{"/"}
	}
	for _, w := range watches {
		addr, err := e.address(w)
		if err != nil {
			return err
		}
		if err := e.watch(addr, !opts.Exact); err != nil {
			return WrapExitError(ExitCommandError, "failed to watch", err)
		}
		e.logger.Debug("watching", "address", addr.String(), "descendants", !opts.Exact)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			e.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	f := opts.formatter(cmd)
	failed := 0

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return WrapExitError(ExitCommandError, "failed to read input", err)
				}
				if failed > 0 {
					err := NewExitError(ExitFailure, fmt.Sprintf("%d request(s) failed", failed))
					err.Reported = true
					return err
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !handleLine(ctx, e, f, line) {
				failed++
			}
		}
	}
}

// handleLine runs one request line and reports whether it succeeded.
// Failures are written to the output and the session continues.
func handleLine(ctx context.Context, e *env, f *OutputFormatter, line string) bool {
	var req request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		_ = f.Error("INVALID_REQUEST", fmt.Sprintf("invalid request JSON: %v", err), nil)
		return false
	}

	resp, err := e.do(ctx, req)
	if err != nil {
		_ = f.Fail(err)
		return false
	}
	if err := writeResponse(f, resp); err != nil {
		e.logger.Error("write response", "error", err)
		return false
	}
	return true
}
