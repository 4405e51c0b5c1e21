package cron

import (
	"Helpdock/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine      *cron.Cron
	recountSpec string
	recountJob  *job.WorkspaceRecountJob
}

func NewCronManager(recountSpec string, recountJob *job.WorkspaceRecountJob) *Manager {
	if recountSpec == "" {
		recountSpec = "0 */10 * * * *"
	}
	return &Manager{
		engine:      cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		recountSpec: recountSpec,
		recountJob:  recountJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.recountSpec, s.recountJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动", "recount_spec", s.recountSpec)
	s.engine.Start()
}

// Stop 等待正在执行的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
