package main

import (
	"github.com/fenilsonani/uploads-maintenance/internal/daemon"
	"github.com/fenilsonani/uploads-maintenance/internal/maintenance"
)

func newDaemon(expr string, env *environment) (*daemon.Daemon, error) {
	opts := []daemon.Option{
		daemon.WithRunHook(func(summary *maintenance.RunSummary) {
			env.logger.Info("scheduled run complete",
				"run_id", summary.RunID,
				"deleted_files", summary.DeletedFiles(),
				"warnings", len(summary.Warnings()),
				"errors", summary.Errors(),
			)
		}),
	}
	if pidFile != "" {
		opts = append(opts, daemon.WithPidFile(pidFile))
	}
	return daemon.New(expr, env.runner, env.logger.Component("daemon"), opts...)
}
