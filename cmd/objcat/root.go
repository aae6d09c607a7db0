package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/objectfs/readpath/internal/config"
	"github.com/objectfs/readpath/internal/filesystem"
	"github.com/objectfs/readpath/pkg/utils"
)

const copyBufferSize = 256 << 10

// options holds the command line flags
type options struct {
	configFile string
	offset     string
	length     string
	trace      bool
	proxy      string
	transport  string
	logLevel   string
	logFormat  string
	stats      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "objcat [flags] URI",
		Short: "Stream a byte range of a remote object to stdout",
		Long: `objcat opens an s3://, http:// or https:// resource through a seekable stream and
copies the requested byte range to standard output. Logs go to standard error.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, args[0], stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&opts.offset, "offset", "0", "start offset (accepts K, M, G suffixes)")
	flags.StringVar(&opts.length, "length", "", "number of bytes to copy, default to end of object")
	flags.BoolVar(&opts.trace, "trace", false, "emit a structured trace record per stream operation")
	flags.StringVar(&opts.proxy, "proxy", "", "HTTP proxy as host:port or scheme://host:port")
	flags.StringVar(&opts.transport, "transport", "", "transport implementation (simple, pooled)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format (text, json)")
	flags.BoolVar(&opts.stats, "stats", false, "print read statistics to stderr when done")

	return cmd
}

// loadConfig applies the config file, then the environment, then explicitly set flags.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Configuration, error) {
	cfg := config.NewDefault()

	if opts.configFile != "" {
		if err := cfg.LoadFromFile(opts.configFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("trace") {
		cfg.Read.TraceLogEnabled = opts.trace
	}
	if flags.Changed("proxy") {
		cfg.Transport.ProxyAddress = opts.proxy
	}
	if flags.Changed("transport") {
		cfg.Transport.Kind = opts.transport
	}
	if flags.Changed("log-level") {
		cfg.Global.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Global.LogFormat = opts.logFormat
	}

	return cfg, nil
}

func run(ctx context.Context, cfg *config.Configuration, opts *options, uri string, stdout, stderr io.Writer) error {
	offset, err := utils.ParseBytes(opts.offset)
	if err != nil {
		return fmt.Errorf("invalid --offset: %w", err)
	}
	length := int64(-1)
	if opts.length != "" {
		if length, err = utils.ParseBytes(opts.length); err != nil {
			return fmt.Errorf("invalid --length: %w", err)
		}
	}

	logger, closeLog, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	session, err := filesystem.NewSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	st, err := session.Open(ctx, uri)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if offset > 0 {
		if _, err := st.Seek(offset, io.SeekStart); err != nil {
			return err
		}
	}

	var src io.Reader = st
	if length >= 0 {
		src = io.LimitReader(st, length)
	}

	n, err := io.CopyBuffer(stdout, src, make([]byte, copyBufferSize))
	if err != nil {
		return err
	}

	logger.Debug("Copy finished", "path", uri, "bytes", n, "stream_id", st.ID().String())

	if opts.stats {
		stats := session.Metrics().Snapshot()
		fmt.Fprintf(stderr, "%s: %s in %d read ops (%d bytes)\n",
			uri, utils.FormatBytes(stats.BytesRead), stats.ReadOps, stats.BytesRead)
	}
	return nil
}

// newLogger writes to LogFile when configured and to stderr otherwise.
func newLogger(cfg *config.Configuration, stderr io.Writer) (*slog.Logger, func(), error) {
	lcfg := cfg.LoggerConfig()
	lcfg.Output = stderr
	closeFn := func() {}

	if cfg.Global.LogFile != "" {
		f, err := os.OpenFile(cfg.Global.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		lcfg.Output = f
		closeFn = func() { _ = f.Close() }
	}

	logger, err := utils.NewLogger(lcfg)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return logger, closeFn, nil
}
