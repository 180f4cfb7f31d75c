// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/sunpkg/sunpkg/internal/issue"
	"github.com/sunpkg/sunpkg/internal/publish"
	"github.com/sunpkg/sunpkg/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "sunpkg"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes every environment override, e.g. SUNPKG_IPS_PUBLISHER.
	EnvPrefix = "SUNPKG"
)

//go:embed config_schema.cue
var configSchema []byte

// lookupUserEnv reads $HOME and $LOGNAME for the defaults.
var lookupUserEnv = os.Getenv

// ConfigDir returns the sunpkg configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux, Solaris, illumos and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// DefaultPath returns the config file path inside dir, or inside ConfigDir
// when dir is empty.
func DefaultPath(dir string) (string, error) {
	dir, err := configDirWithOverride(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// loadWithOptions performs option-driven config loading and returns the
// resolved config file path ("" when only defaults and environment apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	// An explicit --config path is used exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'sunpkg config init' to write a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		cfgPath, err := DefaultPath(opts.ConfigDirPath)
		if err != nil {
			return nil, "", err
		}
		localPath := ConfigFileName + "." + ConfigFileExt
		switch {
		case fileExists(cfgPath):
			resolvedPath = cfgPath
		case fileExists(localPath):
			resolvedPath = localPath
		}
		// No config file: defaults and environment only.
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'sunpkg config show' to see the effective configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	// SUNPKG_PUBLISH_DISTROS="el/7, el/8" arrives as one comma-split list.
	cfg.Publish.Distros = publish.ParseDistros(strings.Join(cfg.Publish.Distros, ","))

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// setDefaults registers every key so that AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("ui.verbose", d.UI.Verbose)
	v.SetDefault("ui.color", d.UI.Color)
	v.SetDefault("staging.base_dir", d.Staging.BaseDir)
	v.SetDefault("staging.keep", d.Staging.Keep)
	v.SetDefault("tools.timeout", d.Tools.Timeout)
	v.SetDefault("tools.paths", d.Tools.Paths)
	v.SetDefault("solaris.filesystem_list", d.Solaris.FilesystemList)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("ips.repository", d.IPS.Repository)
	v.SetDefault("ips.publisher", d.IPS.Publisher)
	v.SetDefault("ips.lint_repository", d.IPS.LintRepository)
	v.SetDefault("ips.fmri_timestamp", d.IPS.FMRITimestamp)
	v.SetDefault("publish.backend", d.Publish.Backend)
	v.SetDefault("publish.repository", d.Publish.Repository)
	v.SetDefault("publish.distros", d.Publish.Distros)
	v.SetDefault("publish.policy", d.Publish.Policy)
	v.SetDefault("packagecloud.user", d.Packagecloud.User)
	v.SetDefault("packagecloud.token", d.Packagecloud.Token)
	v.SetDefault("packagecloud.url", d.Packagecloud.URL)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.access_key_id", d.S3.AccessKeyID)
	v.SetDefault("s3.secret_access_key", d.S3.SecretAccessKey)
	v.SetDefault("s3.path_style", d.S3.PathStyle)
}

// loadCUEIntoViper validates a CUE file against the #Config schema and
// merges its contents into Viper. Fields are optional, so the file is not
// required to be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default configuration to path unless a file
// already exists there. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := Save(DefaultConfig(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as CUE, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// sunpkg configuration file\n")
	sb.WriteString("// Every key can be overridden with a SUNPKG_ environment variable.\n\n")

	sb.WriteString("log: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	fmt.Fprintf(&sb, "\tcolor:   %q\n", cfg.UI.Color)
	sb.WriteString("}\n")

	sb.WriteString("\nstaging: {\n")
	if cfg.Staging.BaseDir != "" {
		fmt.Fprintf(&sb, "\tbase_dir: %q\n", cfg.Staging.BaseDir)
	}
	fmt.Fprintf(&sb, "\tkeep: %v\n", cfg.Staging.Keep)
	sb.WriteString("}\n")

	sb.WriteString("\ntools: {\n")
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Tools.Timeout.String())
	if len(cfg.Tools.Paths) > 0 {
		tools := make([]string, 0, len(cfg.Tools.Paths))
		for tool := range cfg.Tools.Paths {
			tools = append(tools, tool)
		}
		sort.Strings(tools)
		sb.WriteString("\tpaths: {\n")
		for _, tool := range tools {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", tool, cfg.Tools.Paths[tool])
		}
		sb.WriteString("\t}\n")
	}
	sb.WriteString("}\n")

	if cfg.Solaris.FilesystemList != "" {
		sb.WriteString("\nsolaris: {\n")
		fmt.Fprintf(&sb, "\tfilesystem_list: %q\n", cfg.Solaris.FilesystemList)
		sb.WriteString("}\n")
	}

	sb.WriteString("\noutput: {\n")
	fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Output.Dir)
	sb.WriteString("}\n")

	sb.WriteString("\nips: {\n")
	fmt.Fprintf(&sb, "\trepository:      %q\n", cfg.IPS.Repository)
	fmt.Fprintf(&sb, "\tpublisher:       %q\n", cfg.IPS.Publisher)
	fmt.Fprintf(&sb, "\tlint_repository: %q\n", cfg.IPS.LintRepository)
	fmt.Fprintf(&sb, "\tfmri_timestamp:  %q\n", cfg.IPS.FMRITimestamp)
	sb.WriteString("}\n")

	sb.WriteString("\npublish: {\n")
	fmt.Fprintf(&sb, "\tbackend:    %q\n", cfg.Publish.Backend)
	fmt.Fprintf(&sb, "\trepository: %q\n", cfg.Publish.Repository)
	sb.WriteString("\tdistros: [")
	for i, d := range cfg.Publish.Distros {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%q", d)
	}
	sb.WriteString("]\n")
	fmt.Fprintf(&sb, "\tpolicy: %q\n", cfg.Publish.Policy)
	sb.WriteString("}\n")

	sb.WriteString("\npackagecloud: {\n")
	fmt.Fprintf(&sb, "\tuser:  %q\n", cfg.Packagecloud.User)
	fmt.Fprintf(&sb, "\ttoken: %q\n", cfg.Packagecloud.Token)
	fmt.Fprintf(&sb, "\turl:   %q\n", cfg.Packagecloud.URL)
	sb.WriteString("}\n")

	sb.WriteString("\ns3: {\n")
	fmt.Fprintf(&sb, "\tregion:            %q\n", cfg.S3.Region)
	fmt.Fprintf(&sb, "\tendpoint:          %q\n", cfg.S3.Endpoint)
	fmt.Fprintf(&sb, "\taccess_key_id:     %q\n", cfg.S3.AccessKeyID)
	fmt.Fprintf(&sb, "\tsecret_access_key: %q\n", cfg.S3.SecretAccessKey)
	fmt.Fprintf(&sb, "\tpath_style:        %v\n", cfg.S3.PathStyle)
	sb.WriteString("}\n")

	return sb.String()
}
