package policy

import "github.com/credvault/credvault/pkg/model"

// Operation is an action a user may attempt on a credential.
type Operation string

const (
	Read  Operation = "read"
	Write Operation = "write"
	Grant Operation = "grant"
)

// Can decides whether user may perform op on cred. A nil user is anonymous
// and may do nothing.
//
//	read  : staff, owner, or allowed user
//	write : staff or owner
//	grant : staff only
func Can(user *model.User, cred *model.Credential, op Operation) bool {
	if user == nil || cred == nil {
		return false
	}
	if user.IsStaff {
		return true
	}

	switch op {
	case Read:
		return cred.IsOwnedBy(user.ID) || cred.IsSharedWith(user.ID)
	case Write:
		return cred.IsOwnedBy(user.ID)
	default:
		return false
	}
}

// Visible keeps the credentials user may read, preserving order.
func Visible(user *model.User, creds []model.Credential) []model.Credential {
	out := make([]model.Credential, 0, len(creds))
	for i := range creds {
		if Can(user, &creds[i], Read) {
			out = append(out, creds[i])
		}
	}
	return out
}

// CanModifyOwned covers catalog entries (services, tags) that only carry an
// owner: staff or the creator may change them.
func CanModifyOwned(user *model.User, ownerID uint) bool {
	if user == nil {
		return false
	}
	return user.IsStaff || user.ID == ownerID
}
