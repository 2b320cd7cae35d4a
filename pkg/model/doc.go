// Package model defines the database models for credvault.
//
// # Core Models
//
//   - User: accounts, with staff and active flags
//   - Service: external systems credentials belong to
//   - Tag: labels attached to credentials
//   - Credential: a sealed password plus metadata, owned by a user and
//     optionally shared with allowed users
//   - AccessLog: one row per credential read
//
// # Database Schema
//
//   - users, services, tags, credentials, access_logs
//   - credential_tags: credential to tag links
//   - credential_allowed_users: credential to grantee links
//
// Every foreign key cascades on delete.
package model
