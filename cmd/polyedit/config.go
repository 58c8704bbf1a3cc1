package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jward/polyedit"
)

// configName is the base name of the optional config file in the root,
// read as .polyedit.yaml, .polyedit.toml or .polyedit.json.
const configName = ".polyedit"

// config is the resolved configuration. Precedence, lowest first: flag
// defaults, config file, POLYEDIT_* environment variables, explicit flags.
type config struct {
	Root       string `mapstructure:"root"`
	Index      string `mapstructure:"index"`
	ScriptsDir string `mapstructure:"scripts_dir"`
	Format     string `mapstructure:"format"`
	LogLevel   string `mapstructure:"log_level"`
}

// flagKeys maps persistent flag names to config keys.
var flagKeys = map[string]string{
	"root":        "root",
	"index":       "index",
	"scripts-dir": "scripts_dir",
	"format":      "format",
	"log-level":   "log_level",
}

func (a *app) bindFlags() {
	a.v.SetEnvPrefix("POLYEDIT")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	for flag, key := range flagKeys {
		// Lookup cannot fail for flags registered in newApp.
		_ = a.v.BindPFlag(key, a.root.PersistentFlags().Lookup(flag))
	}
}

func (a *app) loadConfig() (*config, error) {
	root := a.v.GetString("root")
	a.v.SetConfigName(configName)
	a.v.AddConfigPath(root)
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	var cfg config
	if err := a.v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving root %q", cfg.Root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Newf("root not found: %s", abs)
	}
	if !info.IsDir() {
		return nil, errors.Newf("root is not a directory: %s", abs)
	}
	cfg.Root = abs
	return &cfg, nil
}

// newLogger builds a console logger writing to the app's stderr at the
// configured level.
func (a *app) newLogger() (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(a.cfg.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", a.cfg.LogLevel)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(a.stderr), level)
	return zap.New(core).Sugar().Named("polyedit"), nil
}

// newService creates a Service for the configured root.
func (a *app) newService() (*polyedit.Service, error) {
	opts := []polyedit.Option{
		polyedit.WithRoot(a.cfg.Root),
		polyedit.WithLogger(a.logger),
	}
	if a.cfg.Index != "" {
		opts = append(opts, polyedit.WithIndexPath(a.cfg.Index))
	}
	if a.cfg.ScriptsDir != "" {
		opts = append(opts, polyedit.WithScriptsDir(a.cfg.ScriptsDir))
	}
	svc, err := polyedit.New(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating service")
	}
	return svc, nil
}
