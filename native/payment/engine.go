package payment

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"payledger/core/events"
	ledgerstate "payledger/core/state"
	"payledger/native/access"
	"payledger/native/bank"
	nativecommon "payledger/native/common"
	"payledger/storage"
)

var errNilDatabase = errors.New("payment engine: database not configured")

// Options configures a ledger engine.
type Options struct {
	// ChainID and Address form the domain every canonical hash is bound to.
	// Address also holds the custodied token balances.
	ChainID *big.Int
	Address common.Address
	// Admins resolves the admin role. Nil grants admin to nobody.
	Admins access.AdminRegistry
	// Validators optionally verify signatures for signer contracts.
	Validators map[common.Address]ContractValidator
}

// Engine executes ledger operations one at a time against the backing
// database. Every call runs in its own staged state that is committed only
// when the call succeeds; events are published after the commit.
type Engine struct {
	mu         sync.Mutex
	db         storage.Database
	chainID    *big.Int
	address    common.Address
	admins     access.AdminRegistry
	validators map[common.Address]ContractValidator
	emitter    events.Emitter
	nowFn      func() int64
}

// NewEngine creates a ledger engine with a no-op emitter.
func NewEngine(db storage.Database, opts Options) (*Engine, error) {
	if db == nil {
		return nil, errNilDatabase
	}
	if opts.ChainID == nil || opts.ChainID.Sign() <= 0 {
		return nil, fmt.Errorf("payment engine: chain id must be positive")
	}
	if opts.Address == (common.Address{}) {
		return nil, fmt.Errorf("payment engine: ledger address required")
	}
	validators := make(map[common.Address]ContractValidator, len(opts.Validators))
	for addr, v := range opts.Validators {
		validators[addr] = v
	}
	return &Engine{
		db:         db,
		chainID:    new(big.Int).Set(opts.ChainID),
		address:    opts.Address,
		admins:     opts.Admins,
		validators: validators,
		emitter:    events.NoopEmitter{},
		nowFn:      func() int64 { return time.Now().Unix() },
	}, nil
}

// SetNowFunc overrides the time source used for expiry checks. Primarily
// intended for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the emitter that receives committed events. Passing
// nil resets it to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Domain returns the chain id and ledger address canonical hashes commit to.
func (e *Engine) Domain() Domain {
	return Domain{ChainID: new(big.Int).Set(e.chainID), Contract: e.address}
}

// Address returns the custody address of the ledger.
func (e *Engine) Address() common.Address { return e.address }

func (e *Engine) now() int64 {
	if e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// txn is the working set of one call.
type txn struct {
	state    *ledgerstate.Manager
	store    *store
	bank     *bank.Ledger
	settings *Settings
	events   events.Buffer
}

func (e *Engine) begin(requireSettings bool) (*txn, error) {
	mgr := ledgerstate.NewManager(e.db)
	tx := &txn{state: mgr, store: &store{state: mgr}, bank: bank.New(mgr)}
	settings, err := tx.store.settings()
	switch {
	case err == nil:
		tx.settings = settings
	case errors.Is(err, ErrNotInitialized) && !requireSettings:
	default:
		return nil, err
	}
	return tx, nil
}

// execute runs fn atomically: its writes and events survive only if it
// returns nil.
func (e *Engine) execute(fn func(tx *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, err := e.begin(true)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.state.Discard()
		return err
	}
	if err := tx.state.Commit(); err != nil {
		return err
	}
	tx.events.Flush(e.emitter)
	return nil
}

// view runs fn against committed state and discards anything it staged.
func (e *Engine) view(fn func(tx *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	tx, err := e.begin(true)
	if err != nil {
		return err
	}
	defer tx.state.Discard()
	return fn(tx)
}

func (e *Engine) guard(tx *txn) error {
	return nativecommon.Guard(tx.settings, moduleName)
}

func (tx *txn) holders() access.Holders {
	return access.Holders{Owner: tx.settings.Owner, Dev: tx.settings.Dev}
}

func (tx *txn) isOwner(addr common.Address) bool {
	return addr != (common.Address{}) && addr == tx.settings.Owner
}

// authorize runs the shared preamble of every mutating call. For signed
// calls: enabled flag, expiry, signature over the canonical hash, serial
// number consumption. Trusted calls require the owner and the noSnEnabled
// flag instead of the signature and serial number.
func (e *Engine) authorize(tx *txn, msg Msg, auth Authorization, hashFn func(sn common.Hash, expired uint64) (common.Hash, error)) error {
	if err := e.guard(tx); err != nil {
		return err
	}
	if auth.IsTrusted() {
		if err := access.Check(access.RoleOwner, msg.Sender, tx.holders(), e.admins); err != nil {
			return err
		}
		if !tx.settings.NoSnEnabled {
			return ErrForbidden
		}
		return nil
	}
	if now := e.now(); now >= 0 && auth.Expired <= uint64(now) {
		return ErrExpired
	}
	hash, err := hashFn(auth.SN, auth.Expired)
	if err != nil {
		return err
	}
	if !verifyMessage(tx.settings, e.validators, hash, auth.Signature) {
		return ErrInvalidSignature
	}
	return consumeRecord(tx.store, auth.SN, msg.Sender)
}

// requireCaller admits the owner or a wallet bound to one of accounts.
func (tx *txn) requireCaller(caller common.Address, accounts ...common.Hash) error {
	if tx.isOwner(caller) {
		return nil
	}
	bound, ok, err := tx.store.accountOf(caller)
	if err != nil {
		return err
	}
	if ok {
		for _, account := range accounts {
			if bound == account {
				return nil
			}
		}
	}
	return ErrForbidden
}

// feeAccount is the account bound to the feeTo wallet.
func (tx *txn) feeAccount() (common.Hash, error) {
	if tx.settings.FeeTo == (common.Address{}) {
		return common.Hash{}, ErrNoBind
	}
	account, ok, err := tx.store.accountOf(tx.settings.FeeTo)
	if err != nil {
		return common.Hash{}, err
	}
	if !ok {
		return common.Hash{}, ErrNoBind
	}
	return account, nil
}

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// amounts normalises nil to zero and rejects values outside uint256.
func amounts(values ...**big.Int) error {
	for _, v := range values {
		if *v == nil {
			*v = new(big.Int)
			continue
		}
		if (*v).Sign() < 0 || (*v).Cmp(maxUint256) > 0 {
			return ErrInvalidValue
		}
		*v = new(big.Int).Set(*v)
	}
	return nil
}
