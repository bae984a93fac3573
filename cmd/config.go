package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage scholar configuration",
}

var setProviderCmd = &cobra.Command{
	Use:   "set-provider <google|lmstudio|openrouter|gateway>",
	Short: "Choose the chat provider (resets the model to the provider's default)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ParseProvider(args[0])
		if err != nil {
			return err
		}
		if err := config.SetProvider(p); err != nil {
			return fmt.Errorf("failed to save provider: %w", err)
		}
		fmt.Printf("Provider set to %s.\n", p)
		if !p.Native() {
			fmt.Println("Pick a model with: scholar models, then scholar config set-model <id>")
		}
		return nil
	},
}

var setKeyCmd = &cobra.Command{
	Use:   "set-key <provider> <api-key>",
	Short: "Set the API key for google, openrouter or gateway",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ParseProvider(args[0])
		if err != nil {
			return err
		}
		if err := config.SetAPIKey(p, args[1]); err != nil {
			return fmt.Errorf("failed to save API key: %w", err)
		}
		fmt.Printf("API key for %s saved successfully.\n", p)
		return nil
	},
}

var setBaseURLCmd = &cobra.Command{
	Use:   "set-base-url <provider> <url>",
	Short: "Set the endpoint of an OpenAI-compatible provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.ParseProvider(args[0])
		if err != nil {
			return err
		}
		if err := config.SetBaseURL(p, args[1]); err != nil {
			return fmt.Errorf("failed to save base URL: %w", err)
		}
		fmt.Printf("Base URL for %s set to %s.\n", p, args[1])
		return nil
	},
}

var setModelCmd = &cobra.Command{
	Use:   "set-model <model-id>",
	Short: "Set the model (default for google: " + config.DefaultGoogleModel + ")",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetModel(args[0]); err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		fmt.Printf("Model set to %s.\n", args[0])
		return nil
	},
}

var setTargetCmd = &cobra.Command{
	Use:   "set-target <standard|remote> [remote-url]",
	Short: "Choose which LM Studio address to use",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var url string
		if len(args) == 2 {
			url = args[1]
		}
		if err := config.SetLMStudioTarget(args[0], url); err != nil {
			return err
		}
		fmt.Printf("LM Studio target set to %s.\n", args[0])
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		model := cfg.Model
		if model == "" {
			model = "(not set)"
		}
		fmt.Printf("Provider:       %s\n", cfg.Provider)
		fmt.Printf("Model:          %s\n", model)
		if !cfg.Provider.Native() {
			fmt.Printf("Base URL:       %s\n", cfg.BaseURL())
		}
		if cfg.Provider == config.ProviderLMStudio {
			fmt.Printf("LM Studio:      %s\n", cfg.LMStudioTarget)
		}
		fmt.Printf("Google key:     %s\n", config.Masked(cfg.GoogleAPIKey))
		fmt.Printf("OpenRouter key: %s\n", config.Masked(cfg.OpenRouterAPIKey))
		fmt.Printf("Gateway key:    %s\n", config.Masked(cfg.GatewayAPIKey))
		fmt.Printf("Log level:      %s\n", cfg.LogLevel)
		fmt.Printf("Config Dir:     %s\n", config.Dir())
		if err := cfg.Validate(); err != nil {
			fmt.Printf("\nWarning: %v\n", err)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(setProviderCmd)
	configCmd.AddCommand(setKeyCmd)
	configCmd.AddCommand(setBaseURLCmd)
	configCmd.AddCommand(setModelCmd)
	configCmd.AddCommand(setTargetCmd)
	configCmd.AddCommand(showCmd)
}
