package main

import (
	"context"
	"errors"
	"filingscraper/cmd/filingscraper/commands"
	"filingscraper/lib/telemetry"
	"filingscraper/lib/util/serviceutil"
	"log/slog"
	"os"
	"time"
)

func main() {
	telemetry.InitSlog(false)

	ctx := serviceutil.SignalContext()
	err := telemetry.SetupFromEnv(ctx, "filingscraper")
	if err != nil && !errors.Is(err, telemetry.ErrNotConfigured) {
		slog.Warn("failed to setup telemetry", "err", err.Error())
	}
	if err == nil {
		telemetry.InstrumentPerfStats(ctx, time.Second*15)
	}

	code := commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	err = telemetry.Shutdown(shutdownCtx)
	cancel()
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err.Error())
	}
	os.Exit(code)
}
