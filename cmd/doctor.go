package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arin/scholar/internal/ai"
	"github.com/arin/scholar/internal/config"
	"github.com/arin/scholar/internal/history"
	"github.com/arin/scholar/internal/wikimedia"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and connectivity",
	Long: `Run a health check on your scholar setup.
Verifies the provider settings, that the provider answers, the Google key used
for voice, speech and cross references, Wikimedia Commons and the state files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		green := color.New(color.FgGreen)
		red := color.New(color.FgRed)
		yellow := color.New(color.FgYellow)
		dim := color.New(color.FgHiBlack)
		cyan := color.New(color.FgCyan, color.Bold)

		cyan.Fprintf(os.Stderr, "\n  🩺 scholar doctor\n\n")

		pass, fail, warn := 0, 0, 0

		check := func(name string, fn func() (string, error)) {
			detail, err := fn()
			if err != nil {
				if strings.HasPrefix(err.Error(), "warn:") {
					yellow.Fprintf(os.Stderr, "  ⚠ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", strings.TrimPrefix(err.Error(), "warn:"))
					warn++
				} else {
					red.Fprintf(os.Stderr, "  ✗ %s\n", name)
					dim.Fprintf(os.Stderr, "    %s\n", err.Error())
					fail++
				}
			} else {
				green.Fprintf(os.Stderr, "  ✓ %s", name)
				if detail != "" {
					dim.Fprintf(os.Stderr, " — %s", detail)
				}
				fmt.Fprintln(os.Stderr)
				pass++
			}
		}

		cfg, _ := config.Load()

		// 1. Provider settings
		check(fmt.Sprintf("Provider configured (%s)", cfg.Provider), func() (string, error) {
			if err := cfg.Validate(); err != nil {
				return "", err
			}
			if cfg.Provider.Native() {
				return cfg.Model, nil
			}
			return fmt.Sprintf("%s at %s", cfg.Model, cfg.BaseURL()), nil
		})

		// 2. Provider reachable
		check("Provider reachable", func() (string, error) {
			if cfg.Provider.Native() {
				return "", fmt.Errorf("warn:not probed for google — send a question to verify the key")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			models, err := ai.ListModels(ctx, cfg)
			if err != nil {
				return "", err
			}
			for _, m := range models {
				if m.ID == cfg.Model {
					return fmt.Sprintf("%d models, %s available", len(models), cfg.Model), nil
				}
			}
			return "", fmt.Errorf("warn:%d models listed but %q is not among them — run: scholar models", len(models), cfg.Model)
		})

		// 3. Google key for the native helpers
		check("Voice, speech and cross references", func() (string, error) {
			if cfg.GoogleAPIKey == "" {
				return "", fmt.Errorf("warn:need a Google API key — run: scholar config set-key google <key>")
			}
			return config.Masked(cfg.GoogleAPIKey), nil
		})

		// 4. Wikimedia Commons
		check("Wikimedia Commons reachable", func() (string, error) {
			client := &http.Client{Timeout: 3 * time.Second}
			resp, err := client.Get(wikimedia.DefaultEndpoint)
			if err != nil {
				return "", fmt.Errorf("warn:could not connect — image requests will fail")
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return "", fmt.Errorf("warn:unexpected status %d", resp.StatusCode)
			}
			return "commons.wikimedia.org", nil
		})

		// 5. Config directory
		check("Config directory", func() (string, error) {
			dir := config.Dir()
			info, err := os.Stat(dir)
			if err != nil {
				return "", fmt.Errorf("warn:~/.scholar not found — will be created on first use")
			}
			if !info.IsDir() {
				return "", fmt.Errorf("~/.scholar exists but is not a directory")
			}
			return dir, nil
		})

		// 6. Conversation state
		check("Conversation state", func() (string, error) {
			store, err := history.Open()
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d conversations, %d notes, %d journal entries",
				len(store.List()), len(store.Notes()), len(store.Journal())), nil
		})

		// 7. OS and arch
		check("System info", func() (string, error) {
			return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH), nil
		})

		fmt.Fprintln(os.Stderr)
		total := pass + fail + warn
		if fail == 0 && warn == 0 {
			green.Fprintf(os.Stderr, "  All %d checks passed. You're good to go.\n\n", total)
		} else if fail == 0 {
			yellow.Fprintf(os.Stderr, "  %d passed, %d warnings. Everything works, but some things could be better.\n\n", pass, warn)
		} else {
			red.Fprintf(os.Stderr, "  %d passed, %d failed, %d warnings. Fix the failures above.\n\n", pass, fail, warn)
		}

		return nil
	},
}
