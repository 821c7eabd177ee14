package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "BurnRisk"

	// KeyringAPIKeyItem prefixes the per-actor LLM API key item
	KeyringAPIKeyItem = "llm-api-key"

	// DefaultActor is used when no actor is given
	DefaultActor = "default"
)

// KeyringManager handles secure credential storage in OS keychain.
// Credentials are stored per actor so several people can share one machine.
type KeyringManager struct {
	logger *slog.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		logger: slog.Default().With("component", "keyring"),
	}
}

func apiKeyItem(actor string) string {
	if actor == "" {
		actor = DefaultActor
	}
	return fmt.Sprintf("%s:%s", KeyringAPIKeyItem, actor)
}

// SaveAPIKey stores an actor's LLM API key in the OS keychain
func (km *KeyringManager) SaveAPIKey(actor, apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key cannot be empty")
	}

	if err := keyring.Set(KeyringService, apiKeyItem(actor), apiKey); err != nil {
		km.logger.Error("failed to save API key to keychain", "actor", actor, "error", err)
		return fmt.Errorf("failed to save to OS keychain: %w", err)
	}

	km.logger.Info("api key saved to keychain", "service", KeyringService, "actor", actor)
	return nil
}

// GetAPIKey retrieves an actor's API key. A missing key is not an error.
func (km *KeyringManager) GetAPIKey(actor string) (string, error) {
	apiKey, err := keyring.Get(KeyringService, apiKeyItem(actor))
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.Debug("failed to get API key from keychain", "actor", actor, "error", err)
		return "", fmt.Errorf("failed to read from OS keychain: %w", err)
	}
	return apiKey, nil
}

// DeleteAPIKey removes an actor's API key from OS keychain
func (km *KeyringManager) DeleteAPIKey(actor string) error {
	err := keyring.Delete(KeyringService, apiKeyItem(actor))
	if err == keyring.ErrNotFound {
		// Already deleted, not an error
		return nil
	}
	if err != nil {
		km.logger.Error("failed to delete API key from keychain", "actor", actor, "error", err)
		return fmt.Errorf("failed to delete from OS keychain: %w", err)
	}

	km.logger.Info("api key deleted from keychain", "actor", actor)
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems (CI/CD) where keychain isn't available.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound || err == nil {
		return true
	}
	km.logger.Debug("keychain not available", "error", err)
	return false
}

// KeySourceInfo returns information about where the API key is stored
type KeySourceInfo struct {
	Source      string // "env", "keychain", "config", "none"
	Secure      bool
	Recommended string
}

// GetAPIKeySource determines where an actor's API key would come from
func (km *KeyringManager) GetAPIKeySource(cfg *Config, actor string) KeySourceInfo {
	if providerEnvKey(cfg.AI.Provider) != "" {
		return KeySourceInfo{
			Source:      "env",
			Secure:      true,
			Recommended: "Using environment variable (good for CI/CD)",
		}
	}

	if key, _ := km.GetAPIKey(actor); key != "" {
		return KeySourceInfo{
			Source:      "keychain",
			Secure:      true,
			Recommended: "Stored securely in OS keychain",
		}
	}

	if configKey(cfg) != "" {
		return KeySourceInfo{
			Source:      "config",
			Secure:      false,
			Recommended: "Plaintext storage detected. Run: brisk configure",
		}
	}

	return KeySourceInfo{
		Source:      "none",
		Secure:      false,
		Recommended: "No API key configured. Run: brisk configure",
	}
}

func providerEnvKey(provider string) string {
	switch provider {
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

func configKey(cfg *Config) string {
	if cfg == nil {
		return ""
	}
	switch cfg.AI.Provider {
	case "gemini":
		return cfg.AI.GeminiKey
	case "openai":
		return cfg.AI.OpenAIKey
	}
	return ""
}

// MaskAPIKey masks an API key for display
// Shows first 7 chars and last 4 chars: "sk-proj...abc123"
func MaskAPIKey(apiKey string) string {
	if apiKey == "" {
		return "(not set)"
	}
	if len(apiKey) < 12 {
		return "***"
	}
	return fmt.Sprintf("%s...%s", apiKey[:7], apiKey[len(apiKey)-4:])
}
