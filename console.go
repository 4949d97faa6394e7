package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
)

// readConsole forwards lines typed on r to the tracker's console queue
// until r is exhausted or ctx is done.
func readConsole(ctx context.Context, r io.Reader, console Submitter, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if !console.Submit(line) {
			logger.Warn("Console line dropped, queue full", "line", line)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Error("Console read failed", "error", err)
	}
}
