package cron

import (
	"fmt"
	log "log/slog"
)

// InitCron 注册并启动全部任务，注册失败时不启动引擎
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}
	mgr.Start()
	for _, e := range mgr.engine.Entries() {
		log.Info("cron job scheduled", "entry", e.ID, "next", e.Next)
	}
	return nil
}
