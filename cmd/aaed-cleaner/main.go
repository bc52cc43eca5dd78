// Command aaed-cleaner serves the AAED source-data cleaning workflow:
// upload a spreadsheet of dictionary entries, review duplicated word
// forms group by group, and export the file with homophone labels.
//
// Configuration comes from CONFIG_PATH (YAML) and environment variables;
// see internal/config. The working session lives in memory only; the
// exported spreadsheet is the single artifact.
//
// Exit codes: 0 = clean shutdown, 1 = error.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/heartmarshall/aaed-cleaner/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("aaed-cleaner: %v", err)
	}
}
