// Package audit records security events (logins, registrations,
// credential reads and writes, grants) as RFC5424 syslog lines.
//
// Events go to stdout through DefaultLogger. When AUDIT_DATABASE_URL is
// set they are also inserted into the audit_messages table:
//
//	audit.Log(audit.FetchEvent{Username: "alice", CredentialID: 7, Success: true})
//
// Set CREDVAULT_AUDIT_ENABLED=false to turn the stream off.
package audit
