package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"study-tracker/backend/config"
	"study-tracker/backend/internal/repository"
	"study-tracker/backend/internal/service"
	"study-tracker/backend/pkg/database"
	applogger "study-tracker/backend/pkg/logger"
)

// env 子命令共享的运行环境
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		e          env
	)

	cmd := &cobra.Command{
		Use:           "importctl",
		Short:         "Bulk import tools for the study tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := applogger.NewLogger(&cfg.Log)
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("STUDY_CONFIG"), "Config file path (default ./config/config.yaml)")

	cmd.AddCommand(newMigrateCmd(&e))
	cmd.AddCommand(newParseCmd(&e))
	cmd.AddCommand(newPreviewCmd(&e))
	cmd.AddCommand(newIngestCmd(&e))
	cmd.AddCommand(newTokenCmd(&e))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openImportService 连接数据库并装配 ImportService；返回的 close 释放连接
func (e *env) openImportService() (service.ImportService, func(), error) {
	db, err := database.NewDB(&e.cfg.Database, e.cfg.Log.Level, e.logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	repo := repository.NewRepository(db)
	svc, err := service.NewService(e.cfg, repo, e.logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc.Import, closeFn, nil
}
