package payment

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestResolveOrCreateBinding(t *testing.T) {
	account := common.HexToHash("0xaa")
	other := common.HexToHash("0xbb")
	primary := common.HexToAddress("0x01")
	wallet := common.HexToAddress("0x02")

	cases := []struct {
		name     string
		current  BindingState
		autoBind bool
		want     Binding
		err      error
	}{
		{
			name:     "bound account resolves to primary",
			current:  BindingState{AccountWallets: []common.Address{primary, wallet}},
			autoBind: false,
			want:     Binding{Account: account, Wallet: primary},
		},
		{
			name:     "auto bind creates binding",
			autoBind: true,
			want:     Binding{Account: account, Wallet: wallet, Created: true},
		},
		{
			name:     "auto bind disabled",
			autoBind: false,
			err:      ErrNoBind,
		},
		{
			name:     "depositor bound elsewhere",
			current:  BindingState{WalletAccount: &other},
			autoBind: true,
			err:      ErrAlreadyBound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveOrCreateBinding(account, wallet, tc.current, tc.autoBind)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestResolveOrCreateBindingZeroWallet(t *testing.T) {
	_, err := ResolveOrCreateBinding(common.HexToHash("0xaa"), common.Address{}, BindingState{}, true)
	if !errors.Is(err, ErrNoBind) {
		t.Fatalf("expected ErrNoBind, got %v", err)
	}
}

func TestResolveOrCreateBindingZeroAccount(t *testing.T) {
	_, err := ResolveOrCreateBinding(common.Hash{}, common.HexToAddress("0x02"), BindingState{}, true)
	if !errors.Is(err, ErrZero) {
		t.Fatalf("expected ErrZero, got %v", err)
	}
}
