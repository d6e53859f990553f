package rpc

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"payledger/native/payment"
)

// MutationResult acknowledges an applied envelope.
type MutationResult struct {
	Status    string `json:"status"`
	NextNonce uint64 `json:"nextNonce"`
}

// SettingsResult is the wire form of the ledger settings.
type SettingsResult struct {
	Owner           string `json:"owner"`
	Dev             string `json:"dev"`
	Signer          string `json:"signer"`
	FeeTo           string `json:"feeTo"`
	SignerContract  string `json:"signerContract"`
	DomainHash      string `json:"domainHash"`
	Enabled         bool   `json:"enabled"`
	NoSnEnabled     bool   `json:"noSnEnabled"`
	AutoBindEnabled bool   `json:"autoBindEnabled"`
	MaxWalletCount  uint64 `json:"maxWalletCount"`
	ChainID         string `json:"chainId"`
	Ledger          string `json:"ledger"`
}

// UserAccountResult reports one (account, token) balance.
type UserAccountResult struct {
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
}

// WalletsResult lists the wallets bound to an account, primary first.
type WalletsResult struct {
	Account string   `json:"account"`
	Wallets []string `json:"wallets"`
}

// NonceResult reports the next envelope nonce of a wallet.
type NonceResult struct {
	Wallet string `json:"wallet"`
	Nonce  uint64 `json:"nonce"`
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAddress(addr common.Address) string {
	return addr.Hex()
}

func formatHash(h common.Hash) string {
	return strings.ToLower(h.Hex())
}

func formatUserAccount(acct payment.UserAccount) UserAccountResult {
	return UserAccountResult{
		Available: formatAmount(acct.Available),
		Frozen:    formatAmount(acct.Frozen),
	}
}

func formatSettings(s payment.Settings, domain payment.Domain) SettingsResult {
	return SettingsResult{
		Owner:           formatAddress(s.Owner),
		Dev:             formatAddress(s.Dev),
		Signer:          formatAddress(s.Signer),
		FeeTo:           formatAddress(s.FeeTo),
		SignerContract:  formatAddress(s.SignerContract),
		DomainHash:      formatHash(s.DomainHash),
		Enabled:         s.Enabled,
		NoSnEnabled:     s.NoSnEnabled,
		AutoBindEnabled: s.AutoBindEnabled,
		MaxWalletCount:  s.MaxWalletCount,
		ChainID:         formatAmount(domain.ChainID),
		Ledger:          formatAddress(domain.Contract),
	}
}
