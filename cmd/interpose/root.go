package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/polyipseity/obsidian-plugin-library-sub001/internal/config"
)

const envPrefix = "INTERPOSE"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "interpose",
		Short:        "Reversible interception of a live plugin host",
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file path, TOML or YAML (optional).")
	flags.String("log-level", "", "Log level: debug, info, warn, error.")
	flags.String("log-format", "", "Log format: text or json.")
	flags.String("locale", "", "Locale for user-facing messages.")
	flags.StringSlice("allow", nil, "Command ids kept when hotkeys are rebaked (comma separated).")
	flags.String("target", "", "Id of the plugin to intercept.")
	_ = viper.BindPFlag("config", flags.Lookup("config"))

	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

// flagPaths maps persistent flags to config paths.
var flagPaths = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"locale":     "locale",
	"allow":      "hotkeys.allow",
	"target":     "plugins.target",
}

// loadOptions builds loader options from the config path and every flag
// the user set explicitly.
func loadOptions(cmd *cobra.Command) config.Options {
	opts := config.Options{
		Path:      strings.TrimSpace(viper.GetString("config")),
		Overrides: make(map[string]any),
	}
	flags := cmd.Flags()
	for name, path := range flagPaths {
		if !flags.Changed(name) {
			continue
		}
		if name == "allow" {
			v, _ := flags.GetStringSlice(name)
			opts.Overrides[path] = v
			continue
		}
		v, _ := flags.GetString(name)
		opts.Overrides[path] = v
	}
	return opts
}

func loadConfig(cmd *cobra.Command) (config.Config, config.Options, error) {
	opts := loadOptions(cmd)
	cfg, err := config.Load(opts)
	if err != nil {
		return config.Config{}, opts, fmt.Errorf("load config: %w", err)
	}
	return cfg, opts, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			if out == nil {
				out = os.Stdout
			}
			_, _ = fmt.Fprintf(out, "interpose %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
