// Package config provides configuration management for credvault.
//
// # Configuration Sources
//
// Configuration is resolved in order, later sources winning:
//
//   - built-in defaults
//   - $CREDVAULT_CONFIG_PATH/credvault.yml (default /etc/credvault)
//   - CREDVAULT_<ATTRIBUTE> environment variables
//
// The source of every attribute is tracked and shown by
// "credvaultctl configuration show".
//
// # Secrets
//
// Secrets are read from the environment only:
//
//   - CREDVAULT_SECRET_KEY: master secret for token signing and the envelope key
//   - CREDVAULT_SMTP_PASSWORD: SMTP password for owner notifications
//   - DATABASE_URL: database connection
//
// # Reloading
//
// Watch follows the config file with fsnotify; the server uses it to retune
// request throttling without a restart.
package config
