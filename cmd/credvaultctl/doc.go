// Command credvaultctl runs the credvault server and its maintenance tasks.
//
// credvault stores service credentials for a team. Passwords are encrypted
// at rest with a key derived from a single master secret, every read is
// logged, and owners are e-mailed when someone else reads their
// credential.
//
// # Quick Start
//
//	# Generate the master secret
//	export CREDVAULT_SECRET_KEY=$(credvaultctl secret-key generate)
//
//	# Run database migrations
//	credvaultctl db migrate
//
//	# Start the server
//	credvaultctl server
//
//	# Give the first registered user staff rights
//	credvaultctl user promote alice
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - CREDVAULT_SECRET_KEY: master secret for tokens and password encryption
//   - CREDVAULT_SMTP_PASSWORD: SMTP relay password
//   - CREDVAULT_CONFIG_PATH: directory holding credvault.yml
//   - AUDIT_DATABASE_URL: optional database for audit records
//   - PORT: server port (default: 8000)
package main
