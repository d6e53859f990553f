package rpc

import (
	"context"
	"encoding/json"

	"payledger/native/payment"
)

func (s *Server) registerBankMethods() {
	s.mutations["bank_approve"] = s.decodeApprove
	s.mutations["bank_transfer"] = s.decodeTokenTransfer
	s.queries["bank_balanceOf"] = s.handleBalanceOf
	s.queries["bank_allowance"] = s.handleAllowance
}

type approveParams struct {
	Token   string `json:"token"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// decodeApprove lets the envelope sender grant an allowance, typically to
// the ledger before a token deposit.
func (s *Server) decodeApprove(payload json.RawMessage) (ledgerCall, error) {
	var params approveParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	token, err := parseToken(params.Token)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddress("spender", params.Spender)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.Approve(msg.Sender, token, spender, amount)
	}, nil
}

type tokenTransferParams struct {
	Token  string `json:"token"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) decodeTokenTransfer(payload json.RawMessage) (ledgerCall, error) {
	var params tokenTransferParams
	if err := decodeParams(payload, &params); err != nil {
		return nil, err
	}
	token, err := parseToken(params.Token)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", params.To)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount("amount", params.Amount)
	if err != nil {
		return nil, err
	}
	return func(msg payment.Msg) (interface{}, error) {
		return nil, s.engine.TokenTransfer(msg.Sender, token, to, amount)
	}, nil
}

func (s *Server) handleBalanceOf(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Token  string `json:"token"`
		Holder string `json:"holder"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	token, err := parseToken(params.Token)
	if err != nil {
		return nil, err
	}
	holder, err := parseAddress("holder", params.Holder)
	if err != nil {
		return nil, err
	}
	balance, err := s.engine.TokenBalance(token, holder)
	if err != nil {
		return nil, err
	}
	return formatAmount(balance), nil
}

func (s *Server) handleAllowance(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var params struct {
		Token   string `json:"token"`
		Owner   string `json:"owner"`
		Spender string `json:"spender"`
	}
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	token, err := parseToken(params.Token)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	spender, err := parseAddress("spender", params.Spender)
	if err != nil {
		return nil, err
	}
	allowance, err := s.engine.TokenAllowance(token, owner, spender)
	if err != nil {
		return nil, err
	}
	return formatAmount(allowance), nil
}
