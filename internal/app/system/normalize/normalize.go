// Package normalize canonicalizes user-supplied identifiers before they are
// stored or compared.
package normalize

import "strings"

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name. Case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role trims and lowercases a role.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Status trims and lowercases a profile status.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-text query parameter. Case is preserved.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Tab maps a user-list tab name to the role it filters on. "all" and
// unknown tabs map to "".
func Tab(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admins":
		return "admin"
	case "specialists":
		return "specialist"
	case "clients":
		return "client"
	}
	return ""
}
