package main

import (
	"context"

	"isingstat/infra/config"
	"isingstat/infra/observe/log/staticLog"
	"isingstat/storage/sqlite"
)

// openRun output.sqlite_path 为空时返回 nil, 调用方跳过入库
func openRun(ctx context.Context, cfg *config.Config, command string) (*sqlite.Store, string, error) {
	if cfg.Output.SqlitePath == "" {
		return nil, "", nil
	}
	store, err := sqlite.Open(ctx, cfg.Output.SqlitePath)
	if err != nil {
		return nil, "", err
	}
	runID, err := store.BeginRun(ctx, command)
	if err != nil {
		store.Close()
		return nil, "", err
	}
	staticLog.Log.WithField("run", runID).Infof("recording %s into %s", command, cfg.Output.SqlitePath)
	return store, runID, nil
}
