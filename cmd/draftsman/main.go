package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/draftsman/internal/blueprint"
	"github.com/l1jgo/draftsman/internal/config"
	"github.com/l1jgo/draftsman/internal/data"
	"github.com/l1jgo/draftsman/internal/exchange"
	"github.com/l1jgo/draftsman/internal/scripting"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfgPath string

	cfg     *config.Config
	log     *zap.Logger
	cat     *data.Catalog
	codec   *exchange.Codec
	version blueprint.Version
	engine  *scripting.Engine
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "draftsman",
		Short:        "Decode, edit and store blueprint exchange strings",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default $"+config.EnvPath+" or "+config.DefaultPath+")")

	root.AddCommand(decodeCmd(a))
	root.AddCommand(encodeCmd(a))
	root.AddCommand(inspectCmd(a))
	root.AddCommand(libraryCmd(a))
	return root
}

func (a *app) setup() error {
	cfg, path, err := config.Resolve(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	a.log, err = newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if path != "" {
		a.log.Debug("config loaded", zap.String("path", path))
	}

	a.version, err = cfg.Codec.Version()
	if err != nil {
		return err
	}

	if cfg.Catalog.Path == "" && cfg.Catalog.ScriptsDir == "" {
		a.cat = data.DefaultCatalog()
	} else {
		a.engine, err = scripting.NewEngine(cfg.Catalog.ScriptsDir, a.log)
		if err != nil {
			return fmt.Errorf("load merge scripts: %w", err)
		}
		if cfg.Catalog.Path != "" {
			a.cat, err = data.LoadCatalog(cfg.Catalog.Path, a.engine, a.log)
		} else {
			a.cat, err = data.ParseCatalog(data.Builtin(), a.engine, a.log)
		}
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
	}
	a.log.Debug("catalog ready", zap.Int("entities", a.cat.Count()), zap.Int("tiles", a.cat.TileCount()))

	a.codec = exchange.New(a.cat, exchange.Options{
		Level:    cfg.Codec.CompressionLevel,
		CellSize: cfg.Spatial.CellSize,
		Logger:   a.log,
	})
	return nil
}

func (a *app) close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, arg string) (string, error) {
	var (
		raw []byte
		err error
	)
	if arg == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(arg)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", arg, err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}

	return zapCfg.Build()
}
