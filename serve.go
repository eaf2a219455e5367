package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/chaos-io/bgremover/cache"
	"github.com/chaos-io/bgremover/config"
	"github.com/chaos-io/bgremover/matte"
	"github.com/chaos-io/bgremover/server"
	"github.com/chaos-io/bgremover/util"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		configPath string
		addr       string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload / process / live websocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			// 命令行显式指定的日志参数优先于配置文件
			if !cmd.Flags().Changed("log-level") {
				g.logLevel = cfg.Log.Level
			}
			if !cmd.Flags().Changed("log-format") {
				g.logFormat = cfg.Log.Format
			}
			logger, err := util.NewLogger(cmd.ErrOrStderr(), g.logLevel, g.logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			matte.SetLogger(logger)

			backend, err := matte.NewBackend(cfg.Pipeline.Backend, cfg.Pipeline.Workers)
			if err != nil {
				return err
			}
			results, err := cache.New(cfg.Cache.Size)
			if err != nil {
				return err
			}
			proc := cache.NewProcessor(matte.New(matte.WithBackend(backend)), results)
			srv, err := server.New(cfg, proc, logger)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address, overrides server.addr")
	return cmd
}
