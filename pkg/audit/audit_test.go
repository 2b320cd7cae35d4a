package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	logger.hostname = "vault-1"
	logger.pid = 42
	logger.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	logger.Log(AuthenticateEvent{
		Username: "alice",
		ClientIP: "192.168.1.1",
		Success:  true,
	})

	want := `<86>1 2024-03-01T12:00:00.000Z vault-1 credvault 42 authn ` +
		`[action@32473 operation="authenticate" result="success"][auth@32473 user="alice"][client@32473 ip="192.168.1.1"] ` +
		"alice successfully authenticated\n"
	if got := buf.String(); got != want {
		t.Errorf("unexpected line:\n got %q\nwant %q", got, want)
	}
}

func TestLoggerNoHostname(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)
	logger.hostname = ""

	logger.Log(ListEvent{Username: "bob", Count: 3, Success: true})

	fields := strings.Fields(buf.String())
	if len(fields) < 4 || fields[2] != "-" {
		t.Errorf("expected '-' hostname, got %q", buf.String())
	}
}

func TestEvents(t *testing.T) {
	tests := []struct {
		name      string
		event     Event
		wantMsg   string
		wantSev   Severity
		wantFac   int
		wantMsgID string
		wantOp    string
	}{
		{
			name:      "failed authentication",
			event:     AuthenticateEvent{Username: "alice", Success: false, ErrorMessage: "invalid credentials"},
			wantMsg:   "alice failed to authenticate: invalid credentials",
			wantSev:   SeverityWarning,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "authn",
			wantOp:    "authenticate",
		},
		{
			name:      "registration",
			event:     RegisterEvent{Username: "carol", Success: true},
			wantMsg:   "carol registered",
			wantSev:   SeverityNotice,
			wantFac:   FacilityAuth,
			wantMsgID: "register",
			wantOp:    "register",
		},
		{
			name:      "fetch",
			event:     FetchEvent{Username: "alice", CredentialID: 7, Success: true},
			wantMsg:   "alice fetched credential 7",
			wantSev:   SeverityInfo,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "fetch",
			wantOp:    "fetch",
		},
		{
			name:      "denied fetch",
			event:     FetchEvent{Username: "mallory", CredentialID: 7, ErrorMessage: "forbidden"},
			wantMsg:   "mallory tried to fetch credential 7: forbidden",
			wantSev:   SeverityWarning,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "fetch",
			wantOp:    "fetch",
		},
		{
			name:      "list",
			event:     ListEvent{Username: "alice", Count: 2, Success: true},
			wantMsg:   "alice listed 2 credentials",
			wantSev:   SeverityInfo,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "list",
			wantOp:    "list",
		},
		{
			name:      "delete",
			event:     UpdateEvent{Username: "alice", CredentialID: 3, Operation: "delete", Success: true},
			wantMsg:   "alice deleted credential 3",
			wantSev:   SeverityInfo,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "update",
			wantOp:    "delete",
		},
		{
			name:      "grant",
			event:     GrantEvent{Username: "admin", CredentialID: 3, TargetUserID: 9, Success: true},
			wantMsg:   "admin granted user 9 access to credential 3",
			wantSev:   SeverityNotice,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "grant",
			wantOp:    "grant",
		},
		{
			name:      "failed revoke",
			event:     GrantEvent{Username: "bob", CredentialID: 3, TargetUserID: 9, Revoke: true, ErrorMessage: "forbidden"},
			wantMsg:   "bob tried to revoke access to credential 3 for user 9: forbidden",
			wantSev:   SeverityWarning,
			wantFac:   FacilityAuthPriv,
			wantMsgID: "grant",
			wantOp:    "revoke",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.Message(); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.event.Severity(); got != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", got, tt.wantSev)
			}
			if got := tt.event.Facility(); got != tt.wantFac {
				t.Errorf("Facility() = %v, want %v", got, tt.wantFac)
			}
			if got := tt.event.MessageID(); got != tt.wantMsgID {
				t.Errorf("MessageID() = %q, want %q", got, tt.wantMsgID)
			}
			if got := tt.event.StructuredData()[SDIDAction]["operation"]; got != tt.wantOp {
				t.Errorf("operation = %q, want %q", got, tt.wantOp)
			}
		})
	}
}

func TestEscapeSDValue(t *testing.T) {
	tests := map[string]string{
		`plain`:    `"plain"`,
		`a"b`:      `"a\"b"`,
		`a\b`:      `"a\\b"`,
		`[x]`:      `"[x\]"`,
		`"quoted"`: `"\"quoted\""`,
	}
	for in, want := range tests {
		if got := escapeSDValue(in); got != want {
			t.Errorf("escapeSDValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatStructuredDataEmpty(t *testing.T) {
	if got := formatStructuredData(nil); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestSetEnabled(t *testing.T) {
	var buf bytes.Buffer
	DefaultLogger.SetWriter(&buf)
	defer func() {
		SetEnabled(true)
	}()

	SetEnabled(false)
	Log(FetchEvent{Username: "alice", CredentialID: 1, Success: true})
	if buf.Len() != 0 {
		t.Errorf("expected no output while disabled, got %q", buf.String())
	}
}
