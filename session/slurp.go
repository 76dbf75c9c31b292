package session

import (
	"context"
	"log/slog"

	"github.com/rtts/ialauncher/catalog"
	"github.com/rtts/ialauncher/game"
)

// SlurpReport counts the outcome of a Slurp run
type SlurpReport struct {
	Fetched int
	Skipped int // already ready or without source locations
	Failed  int
}

// Slurp downloads the assets of every entry in catalog order, one entry at a
// time. observe, when set, is called after each finished download. A
// cancelled context abandons the running task and returns ctx.Err().
func Slurp(ctx context.Context, cat *catalog.Catalog, f Fetcher, observe func(*game.Entry, game.FetchResult)) (SlurpReport, error) {
	var report SlurpReport
	for _, e := range cat.Entries() {
		if e.IsReady() || len(e.SourceLocations()) == 0 {
			report.Skipped++
			continue
		}

		task := f.Start(e)
		var res game.FetchResult
		select {
		case res = <-task.Done():
		case <-ctx.Done():
			task.Cancel()
			return report, ctx.Err()
		}

		if e.IsReady() {
			report.Fetched++
		} else {
			report.Failed++
			slog.Warn("slurp left entry not ready", "entry", e.Identifier, "errors", len(res.Errors))
		}
		if observe != nil {
			observe(e, res)
		}
	}
	return report, nil
}
