// Package guard decides whether a request may reach a protected route tree.
//
// Decide is pure: it performs no I/O and reads nothing but its arguments.
// Session resolution and role lookup happen before it, in the gate middleware.
package guard

import (
	"net/url"
	"strings"

	"github.com/guildhall/guildhall/internal/model"
)

// RedirectParam is the query parameter carrying the originally requested path.
const RedirectParam = "redirect"

// PathClass classifies a request path for access control.
type PathClass int

const (
	Unprotected PathClass = iota
	AdminProtected
	MemberProtected
)

// String returns the class name used in logs and metrics.
func (c PathClass) String() string {
	switch c {
	case AdminProtected:
		return "admin"
	case MemberProtected:
		return "member"
	default:
		return "public"
	}
}

// Action is the outcome kind of a guard decision.
type Action int

const (
	Allow Action = iota
	RedirectLogin
	RedirectDashboard
)

// String returns the action name used in logs and metrics.
func (a Action) String() string {
	switch a {
	case RedirectLogin:
		return "redirect_login"
	case RedirectDashboard:
		return "redirect_dashboard"
	default:
		return "allow"
	}
}

// Decision is the result of Decide. Location is empty when Action is Allow.
type Decision struct {
	Action   Action
	Location string
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Action == Allow
}

// Paths holds the route prefixes the guard protects.
type Paths struct {
	AdminPrefix  string
	AdminLogin   string
	MemberPrefix string
	MemberLogin  string
	Dashboard    string
}

// DefaultPaths returns the routes served by this application.
func DefaultPaths() Paths {
	return Paths{
		AdminPrefix:  "/admin",
		AdminLogin:   "/admin/login",
		MemberPrefix: "/dashboard",
		MemberLogin:  "/login",
		Dashboard:    "/dashboard",
	}
}

// Classify maps a request path to its protection class.
// The admin login page is carved out so unauthenticated users can reach it.
func (p Paths) Classify(path string) PathClass {
	switch {
	case path == p.AdminLogin || path == p.AdminLogin+"/":
		return Unprotected
	case hasSegmentPrefix(path, p.AdminPrefix):
		return AdminProtected
	case hasSegmentPrefix(path, p.MemberPrefix):
		return MemberProtected
	default:
		return Unprotected
	}
}

// Decide maps (path, identity, record) to allow or a redirect.
//
// Admin paths need an identity and an admin record; a missing record is
// treated as non-admin. Member paths need an identity only: account status
// is checked by the member pages themselves so a pending member sees an
// approval notice instead of a bare redirect.
func Decide(p Paths, path string, identity *model.Identity, record *model.AuthorizationRecord) Decision {
	switch p.Classify(path) {
	case AdminProtected:
		if identity == nil {
			return Decision{Action: RedirectLogin, Location: loginLocation(p.AdminLogin, path)}
		}
		if !record.IsAdmin() {
			return Decision{Action: RedirectDashboard, Location: p.Dashboard}
		}
		return Decision{Action: Allow}
	case MemberProtected:
		if identity == nil {
			return Decision{Action: RedirectLogin, Location: loginLocation(p.MemberLogin, path)}
		}
		return Decision{Action: Allow}
	default:
		return Decision{Action: Allow}
	}
}

// NeedsRecord reports whether Decide reads the authorization record for path.
// The gate uses it to skip the role lookup where the outcome cannot depend on it.
func (p Paths) NeedsRecord(path string) bool {
	return p.Classify(path) == AdminProtected
}

func loginLocation(loginPath, original string) string {
	q := url.Values{}
	q.Set(RedirectParam, original)
	return loginPath + "?" + q.Encode()
}

// hasSegmentPrefix matches prefix as a whole path segment: "/admin" matches
// "/admin" and "/admin/x" but not "/administrator".
func hasSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	rest := path[len(prefix):]
	return rest == "" || rest[0] == '/'
}
