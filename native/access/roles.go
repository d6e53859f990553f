// Package access implements the role checks consulted by every privileged
// ledger entry point.
package access

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Role is the closed set of privileged roles.
type Role uint8

const (
	RoleOwner Role = iota + 1
	RoleDev
	RoleAdmin
)

var (
	ErrOwnerForbidden = errors.New("owner forbidden")
	ErrDevForbidden   = errors.New("dev forbidden")
	ErrAdminForbidden = errors.New("admin forbidden")
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleDev:
		return "dev"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// AdminRegistry is the external collaborator that resolves admin privileges.
type AdminRegistry interface {
	IsAdmin(addr common.Address) bool
}

// Holders exposes the locally stored role holders.
type Holders struct {
	Owner common.Address
	Dev   common.Address
}

// Check returns nil when caller holds role. Owner and dev are compared with
// the stored holders; admin is delegated to the registry. A nil registry
// grants admin to nobody.
func Check(role Role, caller common.Address, holders Holders, admins AdminRegistry) error {
	switch role {
	case RoleOwner:
		if caller == (common.Address{}) || caller != holders.Owner {
			return ErrOwnerForbidden
		}
	case RoleDev:
		if caller == (common.Address{}) || caller != holders.Dev {
			return ErrDevForbidden
		}
	case RoleAdmin:
		if admins == nil || !admins.IsAdmin(caller) {
			return ErrAdminForbidden
		}
	default:
		return fmt.Errorf("access: unknown role %s", role)
	}
	return nil
}

// Forbidden reports whether err is one of the role rejections.
func Forbidden(err error) bool {
	return errors.Is(err, ErrOwnerForbidden) || errors.Is(err, ErrDevForbidden) || errors.Is(err, ErrAdminForbidden)
}
