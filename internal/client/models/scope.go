package models

import "fmt"

// ScopeKind discriminates between the anonymous guest partition and a
// partition bound to an authenticated account.
type ScopeKind string

const (
	ScopeGuest ScopeKind = "guest"
	ScopeUser  ScopeKind = "user"
)

// Scope partitions all local persistence and remote predicates. Switching
// the active scope is a lifecycle event; data never leaks between scopes.
type Scope struct {
	Kind   ScopeKind
	UserID string
}

func GuestScope() Scope {
	return Scope{Kind: ScopeGuest}
}

func UserScope(userID string) Scope {
	return Scope{Kind: ScopeUser, UserID: userID}
}

// IsUser reports whether the scope is bound to an authenticated account.
// Only user scopes participate in the outbox and sync.
func (s Scope) IsUser() bool {
	return s.Kind == ScopeUser
}

// Key returns the partition key all per-scope records are stored under.
func (s Scope) Key() string {
	if s.Kind == ScopeUser {
		return fmt.Sprintf("user_%s", s.UserID)
	}
	return "guest"
}
