package payment

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const moduleName = "payment"

// DefaultMaxWalletCount caps the wallets an account may bind unless the dev
// raises it.
const DefaultMaxWalletCount = 1

// Settings is the configuration aggregate of the ledger. It is written once
// by Initialize and afterwards only through the role-gated setters.
type Settings struct {
	Owner           common.Address
	Dev             common.Address
	Signer          common.Address
	FeeTo           common.Address
	SignerContract  common.Address
	DomainHash      common.Hash
	Enabled         bool
	NoSnEnabled     bool
	AutoBindEnabled bool
	MaxWalletCount  uint64
}

// IsEnabled satisfies the module guard.
func (s *Settings) IsEnabled(module string) bool {
	return s != nil && module == moduleName && s.Enabled
}

// UserAccount is the balance record of one (account, token) pair.
type UserAccount struct {
	Available *big.Int
	Frozen    *big.Int
}

func (u *UserAccount) normalize() *UserAccount {
	if u == nil {
		u = &UserAccount{}
	}
	if u.Available == nil {
		u.Available = new(big.Int)
	}
	if u.Frozen == nil {
		u.Frozen = new(big.Int)
	}
	return u
}

// Clone returns a deep copy.
func (u UserAccount) Clone() UserAccount {
	return UserAccount{Available: cloneBigInt(u.Available), Frozen: cloneBigInt(u.Frozen)}
}

// Msg describes the wallet submitting a call and the native value attached
// to it.
type Msg struct {
	Sender common.Address
	Value  *big.Int
}

// DepositRequest credits Amount of Token to Account, Frozen of which lands in
// the frozen balance.
type DepositRequest struct {
	Account common.Hash
	Token   common.Address
	Amount  *big.Int
	Frozen  *big.Int
}

// WithdrawRequest pays Available+Frozen of Token out of From to the wallet
// To. A zero To pays the account's primary wallet.
type WithdrawRequest struct {
	From      common.Hash
	To        common.Address
	Token     common.Address
	Available *big.Int
	Frozen    *big.Int
}

// FreezeRequest moves Amount between the available and frozen balances.
type FreezeRequest struct {
	Account common.Hash
	Token   common.Address
	Amount  *big.Int
}

// Deal is the economic content of a transfer. Available+Frozen is debited
// from the sender and must equal Amount+Fee.
type Deal struct {
	Token     common.Address
	From      common.Hash
	To        common.Hash
	Available *big.Int
	Frozen    *big.Int
	Amount    *big.Int
	Fee       *big.Int
}

// TradeData is one party of a cancelled trade: Amount leaves the frozen
// balance and Amount-Fee returns to available.
type TradeData struct {
	Account common.Hash
	Token   common.Address
	Amount  *big.Int
	Fee     *big.Int
}

// Domain binds a canonical hash to one chain and ledger instance.
type Domain struct {
	ChainID  *big.Int
	Contract common.Address
}

type authMode uint8

const (
	modeSigned authMode = iota
	modeTrusted
)

// Authorization selects how a mutating call is authorised: by an off-chain
// signature over the canonical hash, or by the trusted owner.
type Authorization struct {
	mode      authMode
	SN        common.Hash
	Expired   uint64
	Signature []byte
}

// Signed authorises a call with a single-use serial number, a unix expiry and
// a compact signature.
func Signed(sn common.Hash, expired uint64, signature []byte) Authorization {
	return Authorization{mode: modeSigned, SN: sn, Expired: expired, Signature: append([]byte(nil), signature...)}
}

// Trusted authorises a call by the owner without signature or serial number.
func Trusted() Authorization {
	return Authorization{mode: modeTrusted}
}

// IsTrusted reports whether the authorisation bypasses signature checks.
func (a Authorization) IsTrusted() bool { return a.mode == modeTrusted }

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
