// Package cli 实现 graphdoc 命令行。
package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/lk2023060901/graphdoc-go/application"
	"github.com/lk2023060901/graphdoc-go/pkg/log"
)

// NewRootCommand 创建根命令，文档输出写入 out。
func NewRootCommand(out io.Writer) *cobra.Command {
	var configPath string
	var app *application.Application

	root := &cobra.Command{
		Use:          "graphdoc",
		Short:        "graphdoc renders object graphs as YAML or JSON documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app = application.New(configPath)
			if err := app.Run(); err != nil {
				return err
			}
			log.Ctx(cmd.Context()).Debug("configuration loaded", log.FieldComponent("cli"))
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&configPath, "config", "", "path of the config file (yaml, json or toml)")

	root.AddCommand(newRenderCmd(func() *application.Application { return app }))
	return root
}
