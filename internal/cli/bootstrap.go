package cli

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"vitals-alert/internal/config"
	"vitals-alert/internal/logger"
)

// DefaultConfigPath is where the tools look for their YAML file.
const DefaultConfigPath = "etc/app.yaml"

// Bootstrap loads the config file and builds the logger named after tool.
func Bootstrap(configPath, tool string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.App.ServiceName)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log.Named(tool), nil
}

// FlagsSet returns the names of the flags given on the command line, so
// only explicit flags override config values.
func FlagsSet(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// Fatal prints err to stderr and exits with code.
func Fatal(code int, format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(code)
}
