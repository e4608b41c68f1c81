package commands

import (
	"encoding/json"
	"fmt"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/emberline/curator/config"
	"github.com/emberline/curator/sym"
)

// ConfigCmd represents the config command
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: sym.State + " Manage curator configuration",
	Long: sym.State + ` config — manage curator configuration.

Display and manage configuration settings for zones, extraction,
validation, scoring, migration, and logging.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (CURATOR_* prefix)
3. Project config (./curator.toml, searches up directories)
4. User config (~/.curator/curator.toml)
5. System config (/etc/curator/config.toml)
6. Default values

Examples:
  curator config show                   # Show current configuration
  curator config show --format json     # Show configuration in JSON format
  curator config get zones.raw          # Get specific config value
  curator config set extraction.limit 500
  curator config init                   # Write a starter user config
  curator config validate               # Validate current configuration`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current curator configuration from all sources",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., zones.raw, extraction.base_url)",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in the user config",
	Long: `Write a configuration value to the user config file
(~/.curator/curator.toml), creating it if needed. The previous file is
backed up first. Project config and environment variables still take
precedence over what is set here.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter user config file",
	Long:  "Write a commented starter config to ~/.curator/curator.toml if none exists",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	Long:  "Validate that the current curator configuration is valid",
	RunE:  runConfigValidate,
}

var configWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and which files were checked.

Lists all configuration sources in order of precedence, showing
which setting came from which file.`,
	RunE: runConfigWhere,
}

var configFormat string

func init() {
	configShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configValidateCmd)
	ConfigCmd.AddCommand(configWhereCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
		fmt.Printf("# curator configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config to TOML: %w", err)
		}
		fmt.Printf("# curator configuration\n%s", string(data))

	default:
		return fmt.Errorf("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := config.GetViper()
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}

	value := config.Get(key)
	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	if err := config.SetKey(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.InitUserConfig()
	if err != nil {
		return err
	}

	fmt.Printf("Wrote starter config to %s\n", path)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Println("✓ Configuration is valid")
	return nil
}

func runConfigWhere(cmd *cobra.Command, args []string) error {
	intro, err := config.GetConfigIntrospection()
	if err != nil {
		return fmt.Errorf("failed to get config introspection: %w", err)
	}

	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")
	fmt.Println("  2. [SYSTEM]   /etc/curator/config.toml")
	fmt.Println("  3. [USER]     ~/.curator/curator.toml")
	fmt.Println("  4. [PROJECT]  ./curator.toml (searches up directories)")
	fmt.Println("  5. [ENV]      CURATOR_* environment variables")
	fmt.Println()

	// Group settings by source so each file prints once with its keys.
	bySource := make(map[config.ConfigSource][]config.SettingInfo)
	paths := make(map[config.ConfigSource]string)
	for _, setting := range intro.Settings {
		bySource[setting.Source] = append(bySource[setting.Source], setting)
		if setting.SourcePath != "" {
			paths[setting.Source] = setting.SourcePath
		}
	}

	sourceOrder := []config.ConfigSource{
		config.SourceDefault,
		config.SourceSystem,
		config.SourceUser,
		config.SourceProject,
		config.SourceEnvironment,
	}

	fmt.Println("Active configuration:")
	for _, source := range sourceOrder {
		settings := bySource[source]
		if len(settings) == 0 {
			continue
		}

		switch {
		case paths[source] != "":
			fmt.Printf("\n%s: %d settings from %s\n", source, len(settings), paths[source])
		case source == config.SourceEnvironment:
			fmt.Printf("\n%s: %d settings from environment variables\n", source, len(settings))
		default:
			fmt.Printf("\n%s: %d settings\n", source, len(settings))
		}

		for _, setting := range settings {
			valueStr := fmt.Sprintf("%v", setting.Value)
			if len(valueStr) > 50 {
				valueStr = valueStr[:47] + "..."
			}
			fmt.Printf("  %s = %s\n", setting.Key, valueStr)
		}
	}

	return nil
}
