package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lk2023060901/graphdoc-go/application"
	"github.com/lk2023060901/graphdoc-go/pkg/emitter"
	"github.com/lk2023060901/graphdoc-go/pkg/log"
	"github.com/lk2023060901/graphdoc-go/pkg/metrics"
	"github.com/lk2023060901/graphdoc-go/pkg/serialization"
	"github.com/lk2023060901/graphdoc-go/pkg/store"
	"github.com/lk2023060901/graphdoc-go/pkg/util/conc"
	"github.com/lk2023060901/graphdoc-go/pkg/util/merr"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

type renderOptions struct {
	outputDir       string
	format          string
	roundtrip       bool
	disableAliases  bool
	emitDefaults    bool
	jsonCompatible  bool
	indent          int
	maxRecursion    int
	workers         int
	publish         bool
	metricsTextfile string
}

type rendered struct {
	source  string
	name    string
	content []byte
}

func newRenderCmd(getApp func() *application.Application) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render [files...]",
		Short: "Render JSON, TOML or YAML inputs through the object graph serializer",
		Long: `Render decodes every input file into a generic object graph and serializes it
as YAML or JSON. Inputs are rendered concurrently, outputs keep the input order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, getApp(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "write one file per input into this directory instead of stdout")
	flags.StringVar(&opts.format, "format", formatYAML, "output format: yaml or json")
	flags.BoolVar(&opts.roundtrip, "roundtrip", false, "emit type tags and require writable properties")
	flags.BoolVar(&opts.disableAliases, "disable-aliases", false, "do not emit anchors and aliases")
	flags.BoolVar(&opts.emitDefaults, "emit-defaults", false, "emit properties holding zero values")
	flags.BoolVar(&opts.jsonCompatible, "json-compatible", false, "restrict scalars and collections to JSON-compatible forms")
	flags.IntVar(&opts.indent, "indent", 0, "indentation width, 0 uses the configured value")
	flags.IntVar(&opts.maxRecursion, "max-recursion", 0, "maximum traversal depth, 0 uses the configured value")
	flags.IntVar(&opts.workers, "workers", 0, "number of concurrent renders, 0 uses the configured value")
	flags.BoolVar(&opts.publish, "publish", false, "publish rendered documents to etcd")
	flags.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "write prometheus metrics to this file when done")

	return cmd
}

// mergeSettings 用命令行显式指定的参数覆盖配置文件中的值。
func mergeSettings(cmd *cobra.Command, settings application.SerializerSettings, opts renderOptions) application.SerializerSettings {
	flags := cmd.Flags()
	if flags.Changed("roundtrip") {
		settings.Roundtrip = opts.roundtrip
	}
	if flags.Changed("disable-aliases") {
		settings.DisableAliases = opts.disableAliases
	}
	if flags.Changed("emit-defaults") {
		settings.EmitDefaults = opts.emitDefaults
	}
	if flags.Changed("json-compatible") {
		settings.JSONCompatible = opts.jsonCompatible
	}
	if opts.indent > 0 {
		settings.Indent = opts.indent
	}
	if opts.maxRecursion > 0 {
		settings.MaxRecursion = opts.maxRecursion
	}
	if opts.workers > 0 {
		settings.Workers = opts.workers
	}
	return settings
}

func runRender(cmd *cobra.Command, app *application.Application, opts renderOptions, files []string) error {
	ctx := cmd.Context()
	logger := app.Logger("cli")

	if opts.format != formatYAML && opts.format != formatJSON {
		return merr.WrapErrParameterInvalidMsg("unsupported output format %q", opts.format)
	}
	if opts.metricsTextfile != "" {
		metrics.Register(prometheus.DefaultRegisterer)
	}

	settings := mergeSettings(cmd, app.Settings(), opts)
	ser, err := app.NewSerializer(serialization.WithMaxRecursion(settings.MaxRecursion))
	if err != nil {
		return err
	}

	var publisher *store.EtcdPublisher
	if opts.publish {
		publisher, err = app.NewPublisher()
		if err != nil {
			return err
		}
		if publisher == nil {
			return merr.WrapErrInvalidConfiguration("serializer.etcd.endpoints", "publishing requires at least one etcd endpoint")
		}
		defer publisher.Close()
	}

	pool, err := conc.NewPool[*rendered](settings.Workers)
	if err != nil {
		return err
	}
	defer pool.Release()

	options := settings.Options()
	futures := make([]*conc.Future[*rendered], 0, len(files))
	for _, file := range files {
		futures = append(futures, pool.Submit(func() (*rendered, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			graph, err := decodeFile(file)
			if err != nil {
				return nil, err
			}
			var buf bytes.Buffer
			if err := ser.SerializeTo(ctx, newSink(&buf, opts.format, settings.Indent), graph, options); err != nil {
				return nil, errors.Wrapf(err, "render %s", file)
			}
			return &rendered{source: file, name: documentName(file), content: buf.Bytes()}, nil
		}))
	}
	if err := conc.AwaitAll(futures...); err != nil {
		return err
	}

	for i, f := range futures {
		doc := f.Value()
		if err := writeOutput(cmd.OutOrStdout(), opts, doc, i); err != nil {
			return err
		}
		if publisher != nil {
			rev, err := publisher.Publish(ctx, store.Document{
				Name:    doc.name,
				Format:  opts.format,
				Content: string(doc.content),
			})
			if err != nil {
				return err
			}
			logger.Info("document published", zap.String("name", doc.name), zap.Int64("revision", rev))
		}
	}
	logger.Info("render finished",
		zap.Int("documents", len(futures)),
		log.FieldMode(options.String()),
		zap.String("format", opts.format))

	if opts.metricsTextfile != "" {
		if err := metrics.WriteTextfile(opts.metricsTextfile, prometheus.DefaultGatherer); err != nil {
			return merr.WrapErrIoFailed(opts.metricsTextfile, err)
		}
	}
	return nil
}

func newSink(w io.Writer, format string, indent int) emitter.Emitter {
	if format == formatJSON {
		if indent > 0 {
			return emitter.NewJSONEmitter(w, emitter.WithJSONIndent("", strings.Repeat(" ", indent)))
		}
		return emitter.NewJSONEmitter(w)
	}
	return emitter.NewYAMLEmitter(w, emitter.WithIndent(indent))
}

// writeOutput 写到输出目录时每个输入对应一个文件，写到 stdout 时 YAML 文档之间以 "---" 分隔。
func writeOutput(out io.Writer, opts renderOptions, doc *rendered, index int) error {
	if opts.outputDir != "" {
		if err := os.MkdirAll(opts.outputDir, 0o755); err != nil {
			return merr.WrapErrIoFailed(opts.outputDir, err)
		}
		path := filepath.Join(opts.outputDir, doc.name+"."+opts.format)
		if err := os.WriteFile(path, doc.content, 0o644); err != nil {
			return merr.WrapErrIoFailed(path, err)
		}
		return nil
	}

	if index > 0 && opts.format == formatYAML {
		if _, err := io.WriteString(out, "---\n"); err != nil {
			return merr.WrapErrIoFailed("stdout", err)
		}
	}
	if _, err := out.Write(doc.content); err != nil {
		return merr.WrapErrIoFailed("stdout", err)
	}
	return nil
}

func documentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
