// Package notify records credential reads and tells owners about them.
//
// Reads are handed to a Dispatcher, which returns immediately. A pool of
// workers then, for each event:
//
//  1. appends an AccessLog row (retried with exponential backoff)
//  2. if the reader is not the owner, sends the owner a message built from
//     that row's timestamp through a Sink (retried the same way)
//
// Failures are logged and counted but never reach the reader. Sinks are
// SMTPSink for real delivery and LogSink for development.
package notify
