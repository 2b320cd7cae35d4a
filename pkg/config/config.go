package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/credvault"
	ConfigFileName    = "credvault.yml"

	envPrefix = "CREDVAULT_"
)

// Secrets never come from the config file.
const (
	SecretKeyEnv    = "CREDVAULT_SECRET_KEY"
	SMTPPasswordEnv = "CREDVAULT_SMTP_PASSWORD"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Config holds all credvault server settings.
type Config struct {
	// AccessTokenTTLMinutes is the lifetime of issued bearer tokens
	AccessTokenTTLMinutes int `yaml:"access_token_ttl_minutes" json:"access_token_ttl_minutes"`

	// APIListLimitDefault is the page size used when a list request gives none
	APIListLimitDefault int `yaml:"api_list_limit_default" json:"api_list_limit_default"`

	// APIListLimitMax caps the page size of list requests
	APIListLimitMax int `yaml:"api_list_limit_max" json:"api_list_limit_max"`

	// ThrottleRate is the sustained requests per second allowed per client
	ThrottleRate float64 `yaml:"throttle_rate" json:"throttle_rate"`

	// ThrottleBurst is the request burst allowed per client
	ThrottleBurst int `yaml:"throttle_burst" json:"throttle_burst"`

	// TrustedProxies is a list of CIDR ranges whose X-Forwarded-For is honoured
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	NotifyWorkers    int `yaml:"notify_workers" json:"notify_workers"`
	NotifyQueueSize  int `yaml:"notify_queue_size" json:"notify_queue_size"`
	NotifyMaxRetries int `yaml:"notify_max_retries" json:"notify_max_retries"`

	// SMTPHost enables e-mail notification when set; otherwise notifications are logged
	SMTPHost           string `yaml:"smtp_host" json:"smtp_host"`
	SMTPPort           int    `yaml:"smtp_port" json:"smtp_port"`
	SMTPUsername       string `yaml:"smtp_username" json:"smtp_username"`
	SMTPFrom           string `yaml:"smtp_from" json:"smtp_from"`
	SMTPTimeoutSeconds int    `yaml:"smtp_timeout_seconds" json:"smtp_timeout_seconds"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogFormat string `yaml:"log_format" json:"log_format"`

	// sources tracks where each value came from
	sources map[string]string

	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			globalConfig = Default()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return cfg, nil
}

func newDefault() *Config {
	return &Config{
		AccessTokenTTLMinutes: 15,
		APIListLimitDefault:   100,
		APIListLimitMax:       1000,
		ThrottleRate:          20,
		ThrottleBurst:         40,
		TrustedProxies:        []string{},
		NotifyWorkers:         4,
		NotifyQueueSize:       256,
		NotifyMaxRetries:      3,
		SMTPPort:              587,
		SMTPTimeoutSeconds:    10,
		LogLevel:              "info",
		LogFormat:             "text",
		sources:               make(map[string]string),
	}
}

// Default returns the built-in configuration without reading the file or
// environment.
func Default() *Config {
	cfg := newDefault()
	for _, name := range attributeNames() {
		cfg.sources[name] = "default"
	}
	return cfg
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	cfg := Default()

	configPath := os.Getenv("CREDVAULT_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	cfg.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(cfg.configFilePath); err == nil {
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", cfg.configFilePath, err)
		}
		cfg.applyFileConfig(&fileConfig)
	}

	cfg.applyEnvConfig()

	return cfg, nil
}

func attributeNames() []string {
	return []string{
		"access_token_ttl_minutes", "api_list_limit_default", "api_list_limit_max",
		"throttle_rate", "throttle_burst", "trusted_proxies",
		"notify_workers", "notify_queue_size", "notify_max_retries",
		"smtp_host", "smtp_port", "smtp_username", "smtp_from", "smtp_timeout_seconds",
		"log_level", "log_format",
	}
}

func (c *Config) setInt(name string, dst *int, v int, source string) {
	if v != 0 {
		*dst = v
		c.sources[name] = source
	}
}

func (c *Config) setString(name string, dst *string, v string, source string) {
	if v != "" {
		*dst = v
		c.sources[name] = source
	}
}

func (c *Config) applyFileConfig(file *Config) {
	c.setInt("access_token_ttl_minutes", &c.AccessTokenTTLMinutes, file.AccessTokenTTLMinutes, "file")
	c.setInt("api_list_limit_default", &c.APIListLimitDefault, file.APIListLimitDefault, "file")
	c.setInt("api_list_limit_max", &c.APIListLimitMax, file.APIListLimitMax, "file")
	if file.ThrottleRate != 0 {
		c.ThrottleRate = file.ThrottleRate
		c.sources["throttle_rate"] = "file"
	}
	c.setInt("throttle_burst", &c.ThrottleBurst, file.ThrottleBurst, "file")
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
	c.setInt("notify_workers", &c.NotifyWorkers, file.NotifyWorkers, "file")
	c.setInt("notify_queue_size", &c.NotifyQueueSize, file.NotifyQueueSize, "file")
	c.setInt("notify_max_retries", &c.NotifyMaxRetries, file.NotifyMaxRetries, "file")
	c.setString("smtp_host", &c.SMTPHost, file.SMTPHost, "file")
	c.setInt("smtp_port", &c.SMTPPort, file.SMTPPort, "file")
	c.setString("smtp_username", &c.SMTPUsername, file.SMTPUsername, "file")
	c.setString("smtp_from", &c.SMTPFrom, file.SMTPFrom, "file")
	c.setInt("smtp_timeout_seconds", &c.SMTPTimeoutSeconds, file.SMTPTimeoutSeconds, "file")
	c.setString("log_level", &c.LogLevel, file.LogLevel, "file")
	c.setString("log_format", &c.LogFormat, file.LogFormat, "file")
}

func envName(attribute string) string {
	return envPrefix + strings.ToUpper(attribute)
}

func (c *Config) applyEnvConfig() {
	for _, name := range []string{
		"access_token_ttl_minutes", "api_list_limit_default", "api_list_limit_max",
		"throttle_burst", "notify_workers", "notify_queue_size", "notify_max_retries",
		"smtp_port", "smtp_timeout_seconds",
	} {
		val := os.Getenv(envName(name))
		if val == "" {
			continue
		}
		if i, err := strconv.Atoi(val); err == nil {
			*c.intField(name) = i
			c.sources[name] = "environment"
		}
	}

	if val := os.Getenv(envName("throttle_rate")); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.ThrottleRate = f
			c.sources["throttle_rate"] = "environment"
		}
	}
	if val := os.Getenv(envName("trusted_proxies")); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	c.setString("smtp_host", &c.SMTPHost, os.Getenv(envName("smtp_host")), "environment")
	c.setString("smtp_username", &c.SMTPUsername, os.Getenv(envName("smtp_username")), "environment")
	c.setString("smtp_from", &c.SMTPFrom, os.Getenv(envName("smtp_from")), "environment")
	c.setString("log_level", &c.LogLevel, os.Getenv(envName("log_level")), "environment")
	c.setString("log_format", &c.LogFormat, os.Getenv(envName("log_format")), "environment")
}

func (c *Config) intField(name string) *int {
	switch name {
	case "access_token_ttl_minutes":
		return &c.AccessTokenTTLMinutes
	case "api_list_limit_default":
		return &c.APIListLimitDefault
	case "api_list_limit_max":
		return &c.APIListLimitMax
	case "throttle_burst":
		return &c.ThrottleBurst
	case "notify_workers":
		return &c.NotifyWorkers
	case "notify_queue_size":
		return &c.NotifyQueueSize
	case "notify_max_retries":
		return &c.NotifyMaxRetries
	case "smtp_port":
		return &c.SMTPPort
	case "smtp_timeout_seconds":
		return &c.SMTPTimeoutSeconds
	}
	panic("config: unknown integer attribute " + name)
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// AccessTokenTTL returns the bearer token lifetime as a duration
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// SMTPTimeout returns the per-message SMTP timeout
func (c *Config) SMTPTimeout() time.Duration {
	return time.Duration(c.SMTPTimeoutSeconds) * time.Second
}

// SecretKey returns the master secret used to sign tokens and derive the
// envelope key.
func (c *Config) SecretKey() string {
	return os.Getenv(SecretKeyEnv)
}

// SMTPPassword returns the SMTP password from the environment.
func (c *Config) SMTPPassword() string {
	return os.Getenv(SMTPPasswordEnv)
}

// ClampLimit turns a requested page size into one within bounds.
func (c *Config) ClampLimit(requested int) int {
	if requested <= 0 {
		return c.APIListLimitDefault
	}
	if requested > c.APIListLimitMax {
		return c.APIListLimitMax
	}
	return requested
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *Config) IsTrustedProxy(ip string) bool {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			if cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	if c.AccessTokenTTLMinutes <= 0 {
		return fmt.Errorf("access_token_ttl_minutes must be positive")
	}
	if c.APIListLimitDefault <= 0 || c.APIListLimitMax < c.APIListLimitDefault {
		return fmt.Errorf("api_list_limit_default must be between 1 and api_list_limit_max")
	}
	if c.ThrottleRate <= 0 || c.ThrottleBurst <= 0 {
		return fmt.Errorf("throttle_rate and throttle_burst must be positive")
	}
	if c.NotifyWorkers <= 0 || c.NotifyQueueSize < 0 || c.NotifyMaxRetries < 0 {
		return fmt.Errorf("invalid notifier settings")
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("smtp_from is required when smtp_host is set")
	}

	valid := false
	for _, l := range validLogLevels {
		if c.LogLevel == l {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s", c.LogFormat)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	attr := func(name, value string) Attribute {
		return Attribute{Name: name, Value: value, Source: c.Source(name)}
	}
	return []Attribute{
		attr("access_token_ttl_minutes", strconv.Itoa(c.AccessTokenTTLMinutes)),
		attr("api_list_limit_default", strconv.Itoa(c.APIListLimitDefault)),
		attr("api_list_limit_max", strconv.Itoa(c.APIListLimitMax)),
		attr("throttle_rate", strconv.FormatFloat(c.ThrottleRate, 'f', -1, 64)),
		attr("throttle_burst", strconv.Itoa(c.ThrottleBurst)),
		attr("trusted_proxies", strings.Join(c.TrustedProxies, ",")),
		attr("notify_workers", strconv.Itoa(c.NotifyWorkers)),
		attr("notify_queue_size", strconv.Itoa(c.NotifyQueueSize)),
		attr("notify_max_retries", strconv.Itoa(c.NotifyMaxRetries)),
		attr("smtp_host", c.SMTPHost),
		attr("smtp_port", strconv.Itoa(c.SMTPPort)),
		attr("smtp_username", c.SMTPUsername),
		attr("smtp_from", c.SMTPFrom),
		attr("smtp_timeout_seconds", strconv.Itoa(c.SMTPTimeoutSeconds)),
		attr("log_level", c.LogLevel),
		attr("log_format", c.LogFormat),
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Config file: %s\n\n", c.configFilePath)
	fmt.Fprintf(&sb, "%-30s %-30s %s\n", "NAME", "VALUE", "SOURCE")
	fmt.Fprintf(&sb, "%-30s %-30s %s\n", "----", "-----", "------")

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		fmt.Fprintf(&sb, "%-30s %-30s %s\n", attr.Name, value, attr.Source)
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
