package providers

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Registry holds references to chat clients. It supports config-driven
// instantiation, hot-reload, and provides thread-safe access.
type Registry struct {
	mu          sync.RWMutex
	chatClients map[string]ChatClient
	defaultName string
	logger      *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		chatClients: make(map[string]ChatClient),
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterChat registers a chat client by name.
func (r *Registry) RegisterChat(name string, client ChatClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chatClients[name] = client
	if r.defaultName == "" {
		r.defaultName = name
	}
	if r.logger != nil {
		r.logger.Info("registered chat client", "name", name)
	}
}

// GetChat returns a chat client by name.
func (r *Registry) GetChat(name string) (ChatClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.chatClients[name]
	if !ok {
		return nil, fmt.Errorf("chat client not found: %s", name)
	}
	return client, nil
}

// DefaultChat returns the configured default chat client.
func (r *Registry) DefaultChat() (ChatClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.defaultName == "" {
		return nil, fmt.Errorf("no chat clients registered")
	}
	client, ok := r.chatClients[r.defaultName]
	if !ok {
		return nil, fmt.Errorf("default chat client not found: %s", r.defaultName)
	}
	return client, nil
}

// ListChat returns all registered chat client names.
func (r *Registry) ListChat() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chatClients))
	for name := range r.chatClients {
		names = append(names, name)
	}
	return names
}

// HasChat checks if a chat client is registered.
func (r *Registry) HasChat(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.chatClients[name]
	return ok
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	// Default names the provider used when a request does not pick one.
	Default string

	// ChatProviders maps provider names to their config.
	ChatProviders map[string]ChatProviderConfig
}

// ChatProviderConfig holds one provider entry with its resolved API key.
type ChatProviderConfig struct {
	Type    string // "openai" covers every OpenAI-compatible backend
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
	Enabled bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.applyConfig(cfg)
	return r
}

// Reload updates the registry based on new configuration. Providers that are
// no longer configured will be unregistered, and providers with changed
// settings will be recreated.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, provCfg := range cfg.ChatProviders {
		if !provCfg.Enabled {
			continue
		}
		want[name] = true

		existing, hasExisting := r.chatClients[name]
		if !hasExisting || needsChatUpdate(existing, provCfg) {
			client := createChatClient(name, provCfg)
			if client == nil {
				continue
			}
			r.chatClients[name] = client
			if r.logger != nil {
				if hasExisting {
					r.logger.Info("updated chat client", "name", name, "type", provCfg.Type)
				} else {
					r.logger.Info("registered chat client", "name", name, "type", provCfg.Type)
				}
			}
		}
	}

	for name := range r.chatClients {
		if !want[name] {
			delete(r.chatClients, name)
			if r.logger != nil {
				r.logger.Info("unregistered chat client", "name", name)
			}
		}
	}

	if cfg.Default != "" {
		r.defaultName = cfg.Default
	}
}

// applyConfig applies configuration without locking (used during init).
func (r *Registry) applyConfig(cfg RegistryConfig) {
	for name, provCfg := range cfg.ChatProviders {
		if !provCfg.Enabled {
			continue
		}
		client := createChatClient(name, provCfg)
		if client != nil {
			r.chatClients[name] = client
		}
	}
	r.defaultName = cfg.Default
	if r.defaultName == "" {
		for name := range r.chatClients {
			r.defaultName = name
			break
		}
	}
}

// createChatClient creates a chat client based on provider type.
func createChatClient(name string, cfg ChatProviderConfig) ChatClient {
	switch cfg.Type {
	case "openai", "openai-compatible", "ollama", "openrouter":
		return NewOpenAIChatClient(OpenAIChatConfig{
			Name:    name,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	default:
		return nil
	}
}

// needsChatUpdate checks if a chat client needs to be recreated.
func needsChatUpdate(client ChatClient, cfg ChatProviderConfig) bool {
	switch c := client.(type) {
	case *OpenAIChatClient:
		return c.apiKey != cfg.APIKey ||
			c.baseURL != cfg.BaseURL ||
			c.model != cfg.Model
	default:
		return true
	}
}
