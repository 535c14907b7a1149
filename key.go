package lotmatch

import (
	"errors"
	"fmt"
	"strings"
)

// SecurityKey identifies one independent FIFO queue. Transactions for
// different keys never interact.
type SecurityKey struct {
	Security string `json:"security"`         // ISIN or CUSIP of the security.
	Fund     string `json:"fund,omitempty"`   // Fund number the position belongs to.
	Entity   string `json:"entity,omitempty"` // Legal entity holding the position.
}

// NewSecurityKey builds a key from its three components.
func NewSecurityKey(security, fund, entity string) SecurityKey {
	return SecurityKey{Security: security, Fund: fund, Entity: entity}
}

// String formats the key as "security/fund/entity", the form used in logs
// and error messages.
func (k SecurityKey) String() string {
	return strings.Join([]string{k.Security, k.Fund, k.Entity}, "/")
}

// Validate checks that the key has at least a security identifier.
func (k SecurityKey) Validate() error {
	if k.Security == "" {
		return errors.New("security identifier is missing")
	}
	return nil
}

// compare orders keys lexicographically on (security, fund, entity).
// It is used to make per-key work dispatch deterministic.
func (k SecurityKey) compare(o SecurityKey) int {
	if c := strings.Compare(k.Security, o.Security); c != 0 {
		return c
	}
	if c := strings.Compare(k.Fund, o.Fund); c != 0 {
		return c
	}
	return strings.Compare(k.Entity, o.Entity)
}

var _ fmt.Stringer = SecurityKey{}
