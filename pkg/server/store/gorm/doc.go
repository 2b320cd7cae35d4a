// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
//
// Writes that must be safe under concurrency (allowed-user grants, tag
// links) are single INSERT ... ON CONFLICT DO NOTHING statements rather
// than read-modify-write cycles.
package gorm
