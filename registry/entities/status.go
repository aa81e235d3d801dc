package entities

import "strings"

// RegStatus is the registration status of a product in the state registry.
type RegStatus string

const (
	RegStatusRegistered RegStatus = "registered"
	RegStatusSuspended  RegStatus = "suspended"
	RegStatusCancelled  RegStatus = "cancelled"
	RegStatusUnknown    RegStatus = "unknown"
)

// ParseRegStatus maps a feed value onto the status enum. The feeds are not
// consistent about language or case, so both English and Russian registry
// spellings are accepted. Anything else is RegStatusUnknown.
func ParseRegStatus(s string) RegStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "registered", "действующее", "действует":
		return RegStatusRegistered
	case "suspended", "приостановлено":
		return RegStatusSuspended
	case "cancelled", "canceled", "отменено", "аннулировано":
		return RegStatusCancelled
	default:
		return RegStatusUnknown
	}
}
