package rpc

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"payledger/native/payment"
	"payledger/storage/eventlog"
)

// mutationDecoder turns an envelope payload into a ledger call. Decoding
// happens before the envelope nonce is consumed.
type mutationDecoder func(payload json.RawMessage) (ledgerCall, error)

// ledgerCall runs against the ledger on behalf of the envelope sender. A nil
// result is answered with a MutationResult.
type ledgerCall func(msg payment.Msg) (interface{}, error)

type queryHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

func (s *Server) registerPaymentMethods() {
	s.mutations = map[string]mutationDecoder{
		"payment_deposit":            s.decodeDeposit,
		"payment_simpleDeposit":      s.decodeSimpleDeposit,
		"payment_withdraw":           s.decodeWithdraw,
		"payment_simpleWithdraw":     s.decodeSimpleWithdraw,
		"payment_freeze":             s.decodeFreeze(false),
		"payment_unfreeze":           s.decodeFreeze(true),
		"payment_transfer":           s.decodeTransfer,
		"payment_cancel":             s.decodeCancel,
		"payment_bindAccount":        s.decodeBindAccount,
		"payment_unbindAccount":      s.decodeUnbindAccount,
		"payment_changeOwner":        s.decodeAddressSetter("owner", s.engine.ChangeOwner),
		"payment_changeDev":          s.decodeAddressSetter("dev", s.engine.ChangeDev),
		"payment_setSigner":          s.decodeAddressSetter("signer", s.engine.SetSigner),
		"payment_setFeeTo":           s.decodeAddressSetter("feeTo", s.engine.SetFeeTo),
		"payment_setSignerContract":  s.decodeSetSignerContract,
		"payment_setEnabled":         s.decodeFlagSetter(s.engine.SetEnabled),
		"payment_setNoSnEnabled":     s.decodeFlagSetter(s.engine.SetNoSnEnabled),
		"payment_setAutoBindEnabled": s.decodeFlagSetter(s.engine.SetAutoBindEnabled),
		"payment_setMaxWalletCount":  s.decodeSetMaxWalletCount,
	}
	s.queries = map[string]queryHandler{
		"payment_settings":            s.handleSettings,
		"payment_verifyMessage":       s.handleVerifyMessage,
		"payment_userAccount":         s.handleUserAccount,
		"payment_getBalance":          s.handleGetBalance,
		"payment_getUserAssets":       s.handleGetUserAssets,
		"payment_getMultiUserAssets":  s.handleGetMultiUserAssets,
		"payment_getRecords":          s.handleGetRecords,
		"payment_getWalletsOfAccount": s.handleGetWalletsOfAccount,
		"payment_nonce":               s.handleNonce,
		"payment_getLogs":             s.handleGetLogs,
	}
}

type depositParams struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
	Frozen  string `json:"frozen,omitempty"`
	authParams
}

func (p depositParams) request() (payment.DepositRequest, error) {
	account, err := parseHash("account", p.Account)
	if err != nil {
		return payment.DepositRequest{}, err
	}
	token, err := parseToken(p.Token)
	if err != nil {
		return payment.DepositRequest{}, err
	}
	amount, err := parseAmount("amount", p.Amount)
	if err != nil {
		return payment.DepositRequest{}, err
	}
	frozen, err := parseOptionalAmount("frozen", p.Frozen)
	if err != nil {
		return payment.DepositRequest{}, err
	}
	return payment.DepositRequest{Account: account, Token: token, Amount: amount, Frozen: frozen}, nil
}

func (s *Server) decodeDeposit(payload json.RawMessage) (ledgerCall, error) {
	var params depositParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	req, err := params.request()
	if err != nil {
		return nil, err
	}
	auth, err := params.authorization()
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.Deposit(msg, req, auth)
	}, nil
}

func (s *Server) decodeSimpleDeposit(payload json.RawMessage) (ledgerCall, error) {
	var params depositParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	if params.Frozen != "" || params.authParams != (authParams{}) {
		return nil, invalidParams("simpleDeposit takes account, token and amount only")
	}
	req, err := params.request()
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.SimpleDeposit(msg, req.Account, req.Token, req.Amount)
	}, nil
}

type withdrawParams struct {
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	Token     string `json:"token"`
	Available string `json:"available"`
	Frozen    string `json:"frozen,omitempty"`
	authParams
}

func (p withdrawParams) request() (payment.WithdrawRequest, error) {
	from, err := parseHash("from", p.From)
	if err != nil {
		return payment.WithdrawRequest{}, err
	}
	to, err := parseOptionalAddress("to", p.To)
	if err != nil {
		return payment.WithdrawRequest{}, err
	}
	token, err := parseToken(p.Token)
	if err != nil {
		return payment.WithdrawRequest{}, err
	}
	available, err := parseOptionalAmount("available", p.Available)
	if err != nil {
		return payment.WithdrawRequest{}, err
	}
	frozen, err := parseOptionalAmount("frozen", p.Frozen)
	if err != nil {
		return payment.WithdrawRequest{}, err
	}
	return payment.WithdrawRequest{From: from, To: to, Token: token, Available: available, Frozen: frozen}, nil
}

func (s *Server) decodeWithdraw(payload json.RawMessage) (ledgerCall, error) {
	var params withdrawParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	req, err := params.request()
	if err != nil {
		return nil, err
	}
	auth, err := params.authorization()
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.Withdraw(msg, req, auth)
	}, nil
}

func (s *Server) decodeSimpleWithdraw(payload json.RawMessage) (ledgerCall, error) {
	var params withdrawParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	if params.Frozen != "" || params.authParams != (authParams{}) {
		return nil, invalidParams("simpleWithdraw takes from, to, token and available only")
	}
	req, err := params.request()
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.SimpleWithdraw(msg, req.From, req.To, req.Token, req.Available)
	}, nil
}

type freezeParams struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
	authParams
}

func (s *Server) decodeFreeze(unfreeze bool) mutationDecoder {
	return func(payload json.RawMessage) (ledgerCall, error) {
		var params freezeParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		account, err := parseHash("account", params.Account)
		if err != nil {
			return nil, err
		}
		token, err := parseToken(params.Token)
		if err != nil {
			return nil, err
		}
		amount, err := parseAmount("amount", params.Amount)
		if err != nil {
			return nil, err
		}
		auth, err := params.authorization()
		if err != nil {
			return nil, err
		}
		req := payment.FreezeRequest{Account: account, Token: token, Amount: amount}
		return func(msg payment.Msg) (interface{}, error) {
			if unfreeze {
				return nil, s.engine.Unfreeze(msg, req, auth)
			}
			return nil, s.engine.Freeze(msg, req, auth)
		}, nil
	}
}

type transferParams struct {
	Out       string `json:"out,omitempty"`
	Token     string `json:"token"`
	From      string `json:"from"`
	To        string `json:"to,omitempty"`
	Available string `json:"available,omitempty"`
	Frozen    string `json:"frozen,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Fee       string `json:"fee,omitempty"`
	authParams
}

func (s *Server) decodeTransfer(payload json.RawMessage) (ledgerCall, error) {
	var params transferParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	out, err := parseOptionalAddress("out", params.Out)
	if err != nil {
		return nil, err
	}
	token, err := parseToken(params.Token)
	if err != nil {
		return nil, err
	}
	from, err := parseHash("from", params.From)
	if err != nil {
		return nil, err
	}
	var to common.Hash
	if params.To != "" {
		if to, err = parseHash("to", params.To); err != nil {
			return nil, err
		}
	}
	deal := payment.Deal{Token: token, From: from, To: to}
	for _, field := range []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"available", params.Available, &deal.Available},
		{"frozen", params.Frozen, &deal.Frozen},
		{"amount", params.Amount, &deal.Amount},
		{"fee", params.Fee, &deal.Fee},
	} {
		if *field.dst, err = parseOptionalAmount(field.name, field.raw); err != nil {
			return nil, err
		}
	}
	auth, err := params.authorization()
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.Transfer(msg, out, deal, auth)
	}, nil
}

type tradeParams struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
	Fee     string `json:"fee,omitempty"`
}

func (p tradeParams) leg(name string) (payment.TradeData, error) {
	account, err := parseHash(name+".account", p.Account)
	if err != nil {
		return payment.TradeData{}, err
	}
	token, err := parseToken(p.Token)
	if err != nil {
		return payment.TradeData{}, err
	}
	amount, err := parseOptionalAmount(name+".amount", p.Amount)
	if err != nil {
		return payment.TradeData{}, err
	}
	fee, err := parseOptionalAmount(name+".fee", p.Fee)
	if err != nil {
		return payment.TradeData{}, err
	}
	return payment.TradeData{Account: account, Token: token, Amount: amount, Fee: fee}, nil
}

type cancelParams struct {
	A tradeParams `json:"a"`
	B tradeParams `json:"b"`
	authParams
}

func (s *Server) decodeCancel(payload json.RawMessage) (ledgerCall, error) {
	var params cancelParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	a, err := params.A.leg("a")
	if err != nil {
		return nil, err
	}
	b, err := params.B.leg("b")
	if err != nil {
		return nil, err
	}
	auth, err := params.authorization()
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.Cancel(msg, a, b, auth)
	}, nil
}

type bindParams struct {
	Account string `json:"account"`
	authParams
}

func (s *Server) decodeBindAccount(payload json.RawMessage) (ledgerCall, error) {
	var params bindParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	account, err := parseHash("account", params.Account)
	if err != nil {
		return nil, err
	}
	auth, err := params.authorization()
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.BindAccount(msg, account, auth)
	}, nil
}

func (s *Server) decodeUnbindAccount(payload json.RawMessage) (ledgerCall, error) {
	var params struct{}
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.UnbindAccount(msg)
	}, nil
}

// decodeAddressSetter handles the role-gated setters taking one address
// stored under field.
func (s *Server) decodeAddressSetter(field string, set func(caller, value common.Address) error) mutationDecoder {
	return func(payload json.RawMessage) (ledgerCall, error) {
		var params map[string]string
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		for key := range params {
			if key != field {
				return nil, invalidParams("unknown field %q", key)
			}
		}
		value, err := parseAddress(field, params[field])
		if err != nil {
			return nil, err
		}
		return func(msg payment.Msg) (interface{}, error) {
			return nil, set(msg.Sender, value)
		}, nil
	}
}

func (s *Server) decodeFlagSetter(set func(caller common.Address, enabled bool) error) mutationDecoder {
	return func(payload json.RawMessage) (ledgerCall, error) {
		var params struct {
			Enabled *bool `json:"enabled"`
		}
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		if params.Enabled == nil {
			return nil, invalidParams("enabled is required")
		}
		enabled := *params.Enabled
		return func(msg payment.Msg) (interface{}, error) {
			return nil, set(msg.Sender, enabled)
		}, nil
	}
}

type signerContractParams struct {
	Contract   string `json:"contract"`
	DomainHash string `json:"domainHash,omitempty"`
}

// decodeSetSignerContract defaults the domain hash to this ledger's EIP-712
// domain. An empty contract clears the typed-data path.
func (s *Server) decodeSetSignerContract(payload json.RawMessage) (ledgerCall, error) {
	var params signerContractParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	contract, err := parseOptionalAddress("contract", params.Contract)
	if err != nil {
		return nil, err
	}
	var domainHash common.Hash
	switch {
	case params.DomainHash != "":
		if domainHash, err = parseHash("domainHash", params.DomainHash); err != nil {
			return nil, err
		}
	case contract != (common.Address{}):
		if domainHash, err = s.engine.DefaultDomainHash(); err != nil {
			return nil, err
		}
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.SetSignerContract(msg.Sender, contract, domainHash)
	}, nil
}

func (s *Server) decodeSetMaxWalletCount(payload json.RawMessage) (ledgerCall, error) {
	var params struct {
		Count *uint64 `json:"count"`
	}
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	if params.Count == nil {
		return nil, invalidParams("count is required")
	}
	count := *params.Count
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.SetMaxWalletCount(msg.Sender, count)
	}, nil
}

func (s *Server) handleSettings(_ context.Context, params json.RawMessage) (interface{}, error) {
	var none struct{}
	if err := decodeParams(params, &none); err != nil {
		return nil, err
	}
	settings, err := s.engine.Settings()
	if err != nil {
		return nil, err
	}
	return formatSettings(settings, s.engine.Domain()), nil
}

func (s *Server) handleVerifyMessage(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Hash      string `json:"hash"`
		Signature string `json:"signature"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	hash, err := parseHash("hash", params.Hash)
	if err != nil {
		return nil, err
	}
	sig, err := parseSignature("signature", params.Signature)
	if err != nil {
		return nil, err
	}
	return s.engine.VerifyMessage(hash, sig), nil
}

func (s *Server) handleUserAccount(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Account string `json:"account"`
		Token   string `json:"token"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	account, err := parseHash("account", params.Account)
	if err != nil {
		return nil, err
	}
	token, err := parseToken(params.Token)
	if err != nil {
		return nil, err
	}
	acct, err := s.engine.UserAccount(account, token)
	if err != nil {
		return nil, err
	}
	return formatUserAccount(acct), nil
}

func (s *Server) handleGetBalance(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Token string `json:"token"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	token, err := parseToken(params.Token)
	if err != nil {
		return nil, err
	}
	balance, err := s.engine.GetBalance(token)
	if err != nil {
		return nil, err
	}
	return formatAmount(balance), nil
}

func (s *Server) handleGetUserAssets(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Account string   `json:"account"`
		Tokens  []string `json:"tokens"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	account, err := parseHash("account", params.Account)
	if err != nil {
		return nil, err
	}
	tokens, err := parseTokens(params.Tokens)
	if err != nil {
		return nil, err
	}
	assets, err := s.engine.GetUserAssets(account, tokens)
	if err != nil {
		return nil, err
	}
	out := make([]UserAccountResult, len(assets))
	for i, acct := range assets {
		out[i] = formatUserAccount(acct)
	}
	return out, nil
}

func (s *Server) handleGetMultiUserAssets(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Accounts []string `json:"accounts"`
		Tokens   []string `json:"tokens"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	accounts, err := parseHashes("accounts", params.Accounts)
	if err != nil {
		return nil, err
	}
	tokens, err := parseTokens(params.Tokens)
	if err != nil {
		return nil, err
	}
	grid, err := s.engine.GetMultiUserAssets(accounts, tokens)
	if err != nil {
		return nil, err
	}
	out := make([][]UserAccountResult, len(grid))
	for i, row := range grid {
		out[i] = make([]UserAccountResult, len(row))
		for j, acct := range row {
			out[i][j] = formatUserAccount(acct)
		}
	}
	return out, nil
}

func (s *Server) handleGetRecords(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		SNs []string `json:"sns"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	sns, err := parseHashes("sns", params.SNs)
	if err != nil {
		return nil, err
	}
	operators, err := s.engine.GetRecords(sns)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(operators))
	for i, op := range operators {
		out[i] = formatAddress(op)
	}
	return out, nil
}

func (s *Server) handleGetWalletsOfAccount(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Account string `json:"account"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	account, err := parseHash("account", params.Account)
	if err != nil {
		return nil, err
	}
	wallets, err := s.engine.GetWalletsOfAccount(account)
	if err != nil {
		return nil, err
	}
	out := WalletsResult{Account: formatHash(account), Wallets: make([]string, len(wallets))}
	for i, wallet := range wallets {
		out.Wallets[i] = formatAddress(wallet)
	}
	return out, nil
}

func (s *Server) handleNonce(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Wallet string `json:"wallet"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	wallet, err := parseAddress("wallet", params.Wallet)
	if err != nil {
		return nil, err
	}
	nonce, err := s.nonces.Next(wallet)
	if err != nil {
		return nil, err
	}
	return NonceResult{Wallet: formatAddress(wallet), Nonce: nonce}, nil
}

func (s *Server) handleGetLogs(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	if s.events == nil {
		return nil, errEventsUnavailable
	}
	var params struct {
		Types    []string `json:"types,omitempty"`
		SN       string   `json:"sn,omitempty"`
		AfterSeq int64    `json:"afterSeq,omitempty"`
		Limit    int      `json:"limit,omitempty"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	filter := eventlog.Filter{Types: params.Types, AfterSeq: params.AfterSeq, Limit: params.Limit}
	if params.SN != "" {
		sn, err := parseHash("sn", params.SN)
		if err != nil {
			return nil, err
		}
		filter.SN = formatHash(sn)
	}
	if params.AfterSeq < 0 || params.Limit < 0 {
		return nil, invalidParams("afterSeq and limit must not be negative")
	}
	return s.events.List(ctx, filter)
}
