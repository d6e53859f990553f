package access

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestCheck(t *testing.T) {
	owner := common.HexToAddress("0x01")
	dev := common.HexToAddress("0x02")
	admin := common.HexToAddress("0x03")
	stranger := common.HexToAddress("0x04")
	holders := Holders{Owner: owner, Dev: dev}
	admins := NewStaticRegistry(admin)

	cases := []struct {
		name   string
		role   Role
		caller common.Address
		want   error
	}{
		{"owner ok", RoleOwner, owner, nil},
		{"owner rejects dev", RoleOwner, dev, ErrOwnerForbidden},
		{"dev ok", RoleDev, dev, nil},
		{"dev rejects owner", RoleDev, owner, ErrDevForbidden},
		{"admin ok", RoleAdmin, admin, nil},
		{"admin rejects stranger", RoleAdmin, stranger, ErrAdminForbidden},
		{"zero caller never owner", RoleOwner, common.Address{}, ErrOwnerForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.role, tc.caller, holders, admins)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Check(%s, %s) = %v, want %v", tc.role, tc.caller.Hex(), err, tc.want)
			}
		})
	}
}

func TestCheckZeroHoldersDenyZeroCaller(t *testing.T) {
	if err := Check(RoleDev, common.Address{}, Holders{}, nil); !errors.Is(err, ErrDevForbidden) {
		t.Fatalf("unset dev must not match the zero caller: %v", err)
	}
	if err := Check(RoleAdmin, common.HexToAddress("0x05"), Holders{}, nil); !errors.Is(err, ErrAdminForbidden) {
		t.Fatalf("nil registry must deny admin: %v", err)
	}
}

func TestStaticRegistryGrantRevoke(t *testing.T) {
	reg := NewStaticRegistry()
	addr := common.HexToAddress("0x09")
	if reg.IsAdmin(addr) {
		t.Fatalf("unexpected admin")
	}
	reg.Grant(addr)
	if !reg.IsAdmin(addr) {
		t.Fatalf("grant not applied")
	}
	reg.Revoke(addr)
	if reg.IsAdmin(addr) {
		t.Fatalf("revoke not applied")
	}
	if !Forbidden(ErrAdminForbidden) || Forbidden(errors.New("other")) {
		t.Fatalf("Forbidden classification wrong")
	}
}
