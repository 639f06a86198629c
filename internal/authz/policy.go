// Package authz implements the declarative access policy engine. A Policy
// maps each CRUD action category (plus named custom actions) to a set of
// grant tokens; evaluation is a pure function of (principal, action, object)
// and always fails closed.
package authz

import (
	"strings"

	"github.com/diogopelaes/cemep-digital/internal/models"
)

// Token is a single grant in a rule set: either a role tag from the closed
// role vocabulary or one of the sentinels below.
type Token string

const (
	// Authenticated grants any logged-in principal.
	Authenticated Token = "AUTHENTICATED"
	// Owner grants the principal recorded as the object's owner. It is
	// only decidable once the object is available, so the coarse admission
	// phase reports it as conditional.
	Owner Token = "OWNER"
	// None grants nobody and explicitly disables an action even when other
	// tokens are present.
	None Token = "NONE"
)

// RoleToken converts a role tag into its grant token form.
func RoleToken(role models.UserRole) Token {
	return Token(role)
}

// RuleSet is the set of grant tokens configured for one action category.
// An empty rule set denies everyone.
type RuleSet []Token

func (rs RuleSet) contains(t Token) bool {
	for _, token := range rs {
		if token == t {
			return true
		}
	}
	return false
}

// Principal is the evaluation input describing the requester. A zero
// Principal is an anonymous, unauthenticated caller.
type Principal struct {
	UserID        string
	Role          models.UserRole
	Authenticated bool
}

// PrincipalFromClaims builds a Principal from validated JWT claims. A nil
// claims value yields the anonymous principal.
func PrincipalFromClaims(claims *models.JWTClaims) Principal {
	if claims == nil {
		return Principal{}
	}
	return Principal{UserID: claims.UserID, Role: claims.Role, Authenticated: true}
}

// Decision is the outcome of the coarse admission phase.
type Decision int

const (
	// Deny rejects the request outright.
	Deny Decision = iota
	// Allow admits the request with no further checks required.
	Allow
	// Conditional means admission depends on an object-level ownership
	// comparison that must run once the target row has been fetched.
	Conditional
)

// OwnedByCreator is implemented by objects carrying a created-by reference.
type OwnedByCreator interface {
	CreatorID() string
}

// OwnedByUser is implemented by objects carrying a belongs-to-user
// reference, consulted when no created-by reference is present.
type OwnedByUser interface {
	OwnerUserID() string
}

// Policy holds one rule set per CRUD action category plus an optional
// mapping for named non-CRUD actions.
type Policy struct {
	Create RuleSet
	Read   RuleSet
	Update RuleSet
	Delete RuleSet
	Custom map[string]RuleSet
}

// rulesFor resolves an action name to its rule set. Unrecognised actions
// fall through to the custom mapping; absence means deny.
func (p Policy) rulesFor(action string) RuleSet {
	switch strings.ToLower(action) {
	case "create":
		return p.Create
	case "read", "list", "retrieve":
		return p.Read
	case "update", "partial_update":
		return p.Update
	case "delete", "destroy":
		return p.Delete
	}
	if p.Custom != nil {
		return p.Custom[strings.ToLower(action)]
	}
	return nil
}

// Admit runs the coarse, object-free admission phase. It returns Allow when
// the principal is granted unconditionally, Conditional when only an
// ownership comparison could still grant access, and Deny otherwise.
func (p Policy) Admit(pr Principal, action string) Decision {
	rules := p.rulesFor(action)
	if len(rules) == 0 {
		return Deny
	}
	if rules.contains(None) {
		return Deny
	}
	if rules.contains(Authenticated) && pr.Authenticated {
		return Allow
	}
	if pr.Authenticated && rules.contains(RoleToken(pr.Role)) {
		return Allow
	}
	if rules.contains(Owner) && pr.Authenticated {
		return Conditional
	}
	return Deny
}

// Authorize runs the full two-phase check. The object may be nil for
// actions that never reach a concrete row; a Conditional admission with no
// object denies. The boolean collapses every deny reason into false.
func (p Policy) Authorize(pr Principal, action string, object any) bool {
	switch p.Admit(pr, action) {
	case Allow:
		return true
	case Conditional:
		owner, ok := ownerOf(object)
		return ok && owner == pr.UserID
	}
	return false
}

// ownerOf resolves the owner-identifying attribute on the object: the
// created-by reference first, then the belongs-to-user reference.
func ownerOf(object any) (string, bool) {
	if object == nil {
		return "", false
	}
	if creator, ok := object.(OwnedByCreator); ok {
		if id := creator.CreatorID(); id != "" {
			return id, true
		}
	}
	if owned, ok := object.(OwnedByUser); ok {
		if id := owned.OwnerUserID(); id != "" {
			return id, true
		}
	}
	return "", false
}
