package state

import "github.com/ethereum/go-ethereum/common"

var (
	paymentSettingsKeyBytes     = []byte("payment/settings")
	paymentAccountPrefix        = []byte("payment/account/")
	paymentWalletBindingPrefix  = []byte("payment/binding/wallet/")
	paymentAccountWalletsPrefix = []byte("payment/binding/account/")
	paymentRecordPrefix         = []byte("payment/record/")
	bankBalancePrefix           = []byte("bank/balance/")
	bankAllowancePrefix         = []byte("bank/allowance/")
	callerNoncePrefix           = []byte("rpc/nonce/")
)

func joinKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return buf
}

// PaymentSettingsKey locates the ledger configuration aggregate.
func PaymentSettingsKey() []byte { return append([]byte(nil), paymentSettingsKeyBytes...) }

// PaymentAccountKey locates the (account, token) balance record.
func PaymentAccountKey(account common.Hash, token common.Address) []byte {
	return joinKey(paymentAccountPrefix, account.Bytes(), token.Bytes())
}

// PaymentWalletBindingKey maps a wallet to the account it is bound to.
func PaymentWalletBindingKey(wallet common.Address) []byte {
	return joinKey(paymentWalletBindingPrefix, wallet.Bytes())
}

// PaymentAccountWalletsKey holds the ordered wallet list of an account.
func PaymentAccountWalletsKey(account common.Hash) []byte {
	return joinKey(paymentAccountWalletsPrefix, account.Bytes())
}

// PaymentRecordKey locates the consumer of a serial number.
func PaymentRecordKey(sn common.Hash) []byte {
	return joinKey(paymentRecordPrefix, sn.Bytes())
}

// BankBalanceKey locates a holder balance of token.
func BankBalanceKey(token, holder common.Address) []byte {
	return joinKey(bankBalancePrefix, token.Bytes(), holder.Bytes())
}

// BankAllowanceKey locates the amount spender may move on behalf of owner.
func BankAllowanceKey(token, owner, spender common.Address) []byte {
	return joinKey(bankAllowancePrefix, token.Bytes(), owner.Bytes(), spender.Bytes())
}

// CallerNonceKey tracks the next envelope nonce of an RPC caller.
func CallerNonceKey(wallet common.Address) []byte {
	return joinKey(callerNoncePrefix, wallet.Bytes())
}
