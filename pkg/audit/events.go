package audit

import "fmt"

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func severity(success bool) Severity {
	if success {
		return SeverityInfo
	}
	return SeverityWarning
}

func withError(msg, errMsg string) string {
	if errMsg != "" {
		return msg + ": " + errMsg
	}
	return msg
}

// AuthenticateEvent is a login attempt.
type AuthenticateEvent struct {
	Username     string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e AuthenticateEvent) MessageID() string {
	return "authn"
}

func (e AuthenticateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s successfully authenticated", e.Username)
	}
	return withError(fmt.Sprintf("%s failed to authenticate", e.Username), e.ErrorMessage)
}

func (e AuthenticateEvent) Severity() Severity {
	return severity(e.Success)
}

func (e AuthenticateEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AuthenticateEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:   {"user": e.Username},
		SDIDClient: {"ip": e.ClientIP},
		SDIDAction: {"operation": "authenticate", "result": result(e.Success)},
	}
}

// RegisterEvent is an account registration attempt.
type RegisterEvent struct {
	Username     string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e RegisterEvent) MessageID() string {
	return "register"
}

func (e RegisterEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s registered", e.Username)
	}
	return withError(fmt.Sprintf("registration of %s failed", e.Username), e.ErrorMessage)
}

func (e RegisterEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e RegisterEvent) Facility() int {
	return FacilityAuth
}

func (e RegisterEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:   {"user": e.Username},
		SDIDClient: {"ip": e.ClientIP},
		SDIDAction: {"operation": "register", "result": result(e.Success)},
	}
}

// FetchEvent is a read of one credential's secret.
type FetchEvent struct {
	Username     string
	ClientIP     string
	CredentialID uint
	Success      bool
	ErrorMessage string
}

func (e FetchEvent) MessageID() string {
	return "fetch"
}

func (e FetchEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s fetched credential %d", e.Username, e.CredentialID)
	}
	return withError(fmt.Sprintf("%s tried to fetch credential %d", e.Username, e.CredentialID), e.ErrorMessage)
}

func (e FetchEvent) Severity() Severity {
	return severity(e.Success)
}

func (e FetchEvent) Facility() int {
	return FacilityAuthPriv
}

func (e FetchEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": e.Username},
		SDIDSubject: {"credential": fmt.Sprint(e.CredentialID)},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": "fetch", "result": result(e.Success)},
	}
}

// ListEvent is a credential listing. Count is the number of secrets
// returned.
type ListEvent struct {
	Username     string
	ClientIP     string
	Count        int
	Success      bool
	ErrorMessage string
}

func (e ListEvent) MessageID() string {
	return "list"
}

func (e ListEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s listed %d credentials", e.Username, e.Count)
	}
	return withError(fmt.Sprintf("%s tried to list credentials", e.Username), e.ErrorMessage)
}

func (e ListEvent) Severity() Severity {
	return severity(e.Success)
}

func (e ListEvent) Facility() int {
	return FacilityAuthPriv
}

func (e ListEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": e.Username},
		SDIDSubject: {"count": fmt.Sprint(e.Count)},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": "list", "result": result(e.Success)},
	}
}

// UpdateEvent is a credential create, update or delete.
type UpdateEvent struct {
	Username     string
	ClientIP     string
	CredentialID uint
	Operation    string // "create", "update", "delete"
	Success      bool
	ErrorMessage string
}

func (e UpdateEvent) MessageID() string {
	return "update"
}

func (e UpdateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s %sd credential %d", e.Username, e.Operation, e.CredentialID)
	}
	return withError(fmt.Sprintf("%s tried to %s credential %d", e.Username, e.Operation, e.CredentialID), e.ErrorMessage)
}

func (e UpdateEvent) Severity() Severity {
	return severity(e.Success)
}

func (e UpdateEvent) Facility() int {
	return FacilityAuthPriv
}

func (e UpdateEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth:    {"user": e.Username},
		SDIDSubject: {"credential": fmt.Sprint(e.CredentialID)},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": e.Operation, "result": result(e.Success)},
	}
}

// GrantEvent is a change to a credential's allowed users.
type GrantEvent struct {
	Username     string
	ClientIP     string
	CredentialID uint
	TargetUserID uint
	Revoke       bool
	Success      bool
	ErrorMessage string
}

func (e GrantEvent) MessageID() string {
	return "grant"
}

func (e GrantEvent) operation() string {
	if e.Revoke {
		return "revoke"
	}
	return "grant"
}

func (e GrantEvent) Message() string {
	verb := "granted user %d access to credential %d"
	if e.Revoke {
		verb = "revoked access of user %d to credential %d"
	}
	msg := fmt.Sprintf("%s "+verb, e.Username, e.TargetUserID, e.CredentialID)
	if e.Success {
		return msg
	}
	return withError(fmt.Sprintf("%s tried to %s access to credential %d for user %d", e.Username, e.operation(), e.CredentialID, e.TargetUserID), e.ErrorMessage)
}

func (e GrantEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e GrantEvent) Facility() int {
	return FacilityAuthPriv
}

func (e GrantEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {"user": e.Username},
		SDIDSubject: {
			"credential": fmt.Sprint(e.CredentialID),
			"target":     fmt.Sprint(e.TargetUserID),
		},
		SDIDClient: {"ip": e.ClientIP},
		SDIDAction: {"operation": e.operation(), "result": result(e.Success)},
	}
}
