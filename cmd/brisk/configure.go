package main

import (
	"fmt"
	"runtime"

	"github.com/rohankatakam/burnrisk/internal/config"
	"github.com/spf13/cobra"
)

var removeKey bool

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store an LLM API key for an actor in the OS keychain",
	Long: `Save the API key that AI narratives use for one actor. Keys are kept in the
OS keychain, one entry per actor, so several people can share a machine without
sharing credentials. An environment variable (OPENAI_API_KEY or GEMINI_API_KEY)
always takes precedence.

Examples:
  brisk configure --actor alice
  brisk configure --actor alice --remove`,
	Args: cobra.NoArgs,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().BoolVar(&removeKey, "remove", false, "delete the actor's stored key")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	km := config.NewKeyringManager()

	if removeKey {
		if err := km.DeleteAPIKey(actor); err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed stored API key for %s\n", actor)
		return nil
	}

	if cfg.AI.Provider == "" || cfg.AI.Provider == "none" {
		return fmt.Errorf("ai.provider is %q; set it to openai or gemini in your config first", cfg.AI.Provider)
	}

	creds := config.NewCredentialManager(cfg)
	current := creds.Source(actor)
	fmt.Fprintf(out, "Provider: %s\nActor: %s\nCurrent source: %s\n\n", cfg.AI.Provider, actor, current.Source)

	key, err := creds.PromptForKey(actor)
	if err != nil {
		return err
	}
	if err := creds.SaveLLMKey(actor, key); err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ API key %s saved for %s\n", config.MaskAPIKey(key), actor)
	fmt.Fprintf(out, "   📍 %s\n", keychainLocation())
	if !cfg.AI.UseKeychain {
		fmt.Fprintln(out, "⚠️  ai.use_keychain is false in your config; enable it so the stored key is used")
	}
	return nil
}

func keychainLocation() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain (service: " + config.KeyringService + ")"
	case "windows":
		return "Windows Credential Manager (target: " + config.KeyringService + ")"
	default:
		return "Secret Service keyring (service: " + config.KeyringService + ")"
	}
}
