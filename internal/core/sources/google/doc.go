// Package google holds the pieces shared by the Gmail and Drive listers:
// OAuth token loading and persistence, service construction, and error mapping.
package google
