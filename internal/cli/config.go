package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/fastertools/wasm-pkg/pkg/deps"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the registry routing config",
		Long: `Manage the config that maps package namespaces to registries.

The config is TOML and lives at $XDG_CONFIG_HOME/wasm-pkg/config.toml unless
--config is given.`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var configPath string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(configPath, force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/wasm-pkg/config.toml)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config")

	return cmd
}

func runConfigInit(configPath string, force bool) error {
	path, err := resolveConfigPath(configPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
	}

	if err := deps.DefaultConfig().Save(path); err != nil {
		return err
	}

	Success("Wrote default config to %s", path)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var configPath, format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective registry routing",
		Long: `Show the default namespace and the registry used for each namespace.
Passwords are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(configPath, format)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/wasm-pkg/config.toml)")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format (table, json, yaml)")

	return cmd
}

// routeView is a registry route without its password
type routeView struct {
	Namespace       string `json:"namespace" yaml:"namespace"`
	Registry        string `json:"registry" yaml:"registry"`
	Protocol        string `json:"protocol" yaml:"protocol"`
	RegistrySubpath string `json:"registrySubpath,omitempty" yaml:"registrySubpath,omitempty"`
	Auth            bool   `json:"auth" yaml:"auth"`
}

type configView struct {
	Path             string      `json:"path" yaml:"path"`
	DefaultNamespace string      `json:"defaultNamespace" yaml:"defaultNamespace"`
	Routes           []routeView `json:"routes" yaml:"routes"`
}

const defaultRouteName = "(default)"

func newRouteView(namespace string, rc deps.RegistryConfig) routeView {
	return routeView{
		Namespace:       namespace,
		Registry:        rc.Registry,
		Protocol:        rc.ProtocolValue().String(),
		RegistrySubpath: rc.RegistrySubpath,
		Auth:            rc.Auth != nil,
	}
}

func runConfigShow(configPath, format string) error {
	of, err := ParseOutputFormat(format)
	if err != nil {
		return err
	}

	path, err := resolveConfigPath(configPath)
	if err != nil {
		return err
	}
	cfg, err := loadRoutingConfig(path)
	if err != nil {
		return err
	}

	view := configView{
		Path:             path,
		DefaultNamespace: cfg.DefaultNamespace,
		Routes:           []routeView{newRouteView(defaultRouteName, cfg.DefaultConfig)},
	}
	for _, ns := range sortedNamespaces(cfg) {
		view.Routes = append(view.Routes, newRouteView(ns, cfg.Namespaces[ns]))
	}

	dw := NewDataWriter(colorOutput, of)
	if of != OutputFormatTable {
		return dw.WriteStruct(view)
	}

	if err := NewKeyValueBuilder("Config").
		Add("Path", view.Path).
		Add("Default namespace", view.DefaultNamespace).
		Write(dw); err != nil {
		return err
	}

	tb := NewTableBuilder("NAMESPACE", "REGISTRY", "PROTOCOL", "SUBPATH", "AUTH")
	for _, r := range view.Routes {
		tb.AddRow(r.Namespace, r.Registry, r.Protocol, r.RegistrySubpath, yesNo(r.Auth))
	}
	return tb.Write(dw)
}

// resolveConfigPath returns path, or the default config location when empty
func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return deps.DefaultConfigPath()
}

// loadRoutingConfig loads the config at path (or the default location),
// warning about protocols that fall back to https
func loadRoutingConfig(path string) (*deps.Config, error) {
	path, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}

	cfg, err := deps.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	Debug("Loaded config from %s", path)

	for _, p := range cfg.UnknownProtocols() {
		Warn("Unknown protocol %s, using https", p)
	}
	return cfg, nil
}

func sortedNamespaces(cfg *deps.Config) []string {
	keys := make([]string, 0, len(cfg.Namespaces))
	for k := range cfg.Namespaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
