package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/ccp-p/emotion-clipper/internal/controller"
	"github.com/ccp-p/emotion-clipper/internal/server"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var (
		addr      string
		uploadDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动HTTP服务，上传媒体文件后返回高光检测结果",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := controller.NewProcessorController(flags.options())
			if err != nil {
				return err
			}
			defer pc.Cleanup()

			printWelcome()
			srv := server.New(pc.DetectFile, pc.Exporters, uploadDir)
			go srv.StartCleanupTask(pc.Context(), 6*time.Hour, 24*time.Hour)
			return srv.ListenAndServe(pc.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "监听地址")
	cmd.Flags().StringVar(&uploadDir, "upload-dir", "./uploads", "上传文件存储目录")
	return cmd
}
