package config

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rohankatakam/burnrisk/internal/errors"
	"golang.org/x/term"
)

// CredentialChecker reports whether an actor may use the AI enhancer.
// The pipeline only needs this one question answered.
type CredentialChecker interface {
	HasLLMCredential(ctx context.Context, actor string) bool
}

// CredentialManager resolves LLM credentials with a priority chain:
// environment variable, then the actor's keychain entry, then the config file.
type CredentialManager struct {
	cfg     *Config
	keyring *KeyringManager
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager(cfg *Config) *CredentialManager {
	return &CredentialManager{
		cfg:     cfg,
		keyring: NewKeyringManager(),
	}
}

// ResolveLLMKey returns the API key for the configured provider on behalf of actor
func (cm *CredentialManager) ResolveLLMKey(actor string) (string, error) {
	provider := cm.cfg.AI.Provider
	if provider == "" || provider == "none" {
		return "", errors.ConfigError("AI provider is disabled")
	}

	// 1. Environment variable (highest priority)
	if key := providerEnvKey(provider); key != "" {
		return key, nil
	}

	// 2. Keychain, per actor
	if cm.cfg.AI.UseKeychain {
		if key, err := cm.keyring.GetAPIKey(actor); err == nil && key != "" {
			return key, nil
		}
	}

	// 3. Config file
	if key := configKey(cm.cfg); key != "" {
		return key, nil
	}

	return "", errors.ConfigErrorf(
		"no %s API key for actor %q. Set it via:\n"+
			"  1. Environment variable: export %s=...\n"+
			"  2. Run: brisk configure --actor %s",
		provider, actor, envVarName(provider), actor)
}

// HasLLMCredential reports whether actor has a usable credential. It never
// prompts and never fails; a false answer simply disables AI for the run.
func (cm *CredentialManager) HasLLMCredential(ctx context.Context, actor string) bool {
	if ctx.Err() != nil {
		return false
	}
	key, err := cm.ResolveLLMKey(actor)
	return err == nil && key != ""
}

// SaveLLMKey stores an actor's key in the keychain
func (cm *CredentialManager) SaveLLMKey(actor, key string) error {
	if !cm.keyring.IsAvailable() {
		return errors.ConfigError("OS keychain is not available; export " + envVarName(cm.cfg.AI.Provider) + " instead")
	}
	if err := cm.keyring.SaveAPIKey(actor, key); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
			"failed to save API key to keychain")
	}
	return nil
}

// PromptForKey reads an API key from the terminal without echoing it
func (cm *CredentialManager) PromptForKey(actor string) (string, error) {
	fmt.Printf("Enter %s API key for %s: ", cm.cfg.AI.Provider, actor)
	key, err := readSecurely()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", errors.ValidationError("API key is required")
	}
	if cm.cfg.AI.Provider == "openai" && !strings.HasPrefix(key, "sk-") {
		return "", errors.ValidationError("OpenAI API key should start with 'sk-'")
	}
	return key, nil
}

// Source describes where the actor's key would be resolved from
func (cm *CredentialManager) Source(actor string) KeySourceInfo {
	return cm.keyring.GetAPIKeySource(cm.cfg, actor)
}

func envVarName(provider string) string {
	if provider == "gemini" {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// readSecurely reads a password/token from stdin without echoing
func readSecurely() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Piped input
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
