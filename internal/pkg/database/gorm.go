package database

import (
	"Helpdock/internal/api/config"
	"Helpdock/internal/model"
	"Helpdock/internal/pkg/logger"
	"fmt"
	log "log/slog"
	"time"

	drv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewGormDB 初始化并返回 *gorm.DB 实例，处理连接池配置与表结构迁移
func NewGormDB(cfg *config.DBConfig) (*gorm.DB, error) {
	dsn, err := drv.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid database dsn: %w", err)
	}
	// 时间字段统一按 UTC 读写
	dsn.ParseTime = true
	dsn.Loc = time.UTC

	db, err := gorm.Open(mysql.Open(dsn.FormatDSN()), &gorm.Config{
		Logger:      logger.NewGormLogger(),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	// 只有三张低频表，启动时迁移
	if err = db.AutoMigrate(&model.Tenant{}, &model.PlanConfig{}, &model.UpgradeRequest{}); err != nil {
		return nil, fmt.Errorf("auto migrate failed: %w", err)
	}

	log.Info("Database connection established successfully.", "addr", dsn.Addr, "db", dsn.DBName)
	return db, nil
}
