// Package cli implements the calview command-line interface.
package cli

import (
	"context"
	"encoding/base64"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"calview/internal/config"
	appLog "calview/internal/log"
)

const (
	appName = "calview"

	// envConfig names the environment variable holding the default
	// config path.
	envConfig = "CALVIEW_CONFIG"

	defaultConfigPath = "./config.yaml"
)

var version = "dev"

// CLI holds shared state for all commands.
type CLI struct {
	configPath string
	verbose    bool
}

func New() *CLI {
	return &CLI{}
}

// Execute builds the command tree and runs it with ctx.
func Execute(ctx context.Context) error {
	return New().RootCommand().ExecuteContext(ctx)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "calview renders ICS calendars as day and week timelines",
		Long:         `calview fetches ICS subscriptions, expands recurring events and lays overlapping events out side by side in day and week views, served over HTTP and captured to PNG.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if c.verbose {
				appLog.SetLevel(appLog.LevelDebug)
			}
		},
	}

	defaultPath := os.Getenv(envConfig)
	if defaultPath == "" {
		defaultPath = defaultConfigPath
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultPath, "path to config YAML (env "+envConfig+")")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.captureCommand())

	return root
}

// loadConfig reads the config file, applies its log level unless
// --verbose was given, and resolves the display timezone.
func (c *CLI) loadConfig() (*config.Config, *time.Location, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", c.configPath)
		return nil, nil, err
	}
	if !c.verbose {
		appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	}

	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("unknown timezone, using UTC", "timezone", cfg.Timezone, "err", err)
	}
	return cfg, loc, nil
}

// localURL turns a listen address into a URL reachable from this host.
func localURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// authHeaders returns the Authorization header for the configured basic
// auth, or nil.
func authHeaders(cfg *config.Config) map[string]string {
	if cfg.BasicAuth == nil || cfg.BasicAuth.Username == "" || cfg.BasicAuth.Password == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(cfg.BasicAuth.Username + ":" + cfg.BasicAuth.Password))
	return map[string]string{"Authorization": "Basic " + token}
}
