package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sales-assistant/internal/assistant"

	"github.com/spf13/cobra"
)

func newReplCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Read prompts from stdin and print one JSON outcome per line",
		Long: "Each input line is either a plain prompt or a JSON object " +
			`{"prompt": "...", "params": {...}}. Blank lines are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, opts.log)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			return runRepl(cmd.Context(), a.assistant, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

type handler interface {
	Handle(ctx context.Context, req assistant.Request) *assistant.Outcome
}

func runRepl(ctx context.Context, h handler, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		req, err := parseLine(line)
		if err != nil {
			if err := enc.Encode(map[string]string{"status": "error", "error": err.Error()}); err != nil {
				return err
			}
			continue
		}
		if err := enc.Encode(h.Handle(ctx, req)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func parseLine(line string) (assistant.Request, error) {
	if !strings.HasPrefix(line, "{") {
		return assistant.Request{Prompt: line}, nil
	}
	var req assistant.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		return assistant.Request{}, fmt.Errorf("invalid request line: %w", err)
	}
	return req, nil
}
