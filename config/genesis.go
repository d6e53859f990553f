package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"payledger/crypto"
	"payledger/native/payment"
)

// Genesis seeds a fresh ledger: its settings, the admin set and the token
// balances held by wallets before the first deposit.
type Genesis struct {
	Owner           string       `yaml:"owner"`
	Dev             string       `yaml:"dev"`
	Signer          string       `yaml:"signer"`
	FeeTo           string       `yaml:"feeTo"`
	SignerContract  string       `yaml:"signerContract"`
	Enabled         bool         `yaml:"enabled"`
	NoSnEnabled     bool         `yaml:"noSnEnabled"`
	AutoBindEnabled bool         `yaml:"autoBindEnabled"`
	MaxWalletCount  uint64       `yaml:"maxWalletCount"`
	Admins          []string     `yaml:"admins"`
	Allocations     []Allocation `yaml:"allocations"`
}

// Allocation credits Amount base units of Token to Holder. An empty or
// "native" token means the native coin.
type Allocation struct {
	Token  string `yaml:"token"`
	Holder string `yaml:"holder"`
	Amount string `yaml:"amount"`
}

// UnmarshalYAML defaults enabled and autoBindEnabled to true when omitted.
func (g *Genesis) UnmarshalYAML(node *yaml.Node) error {
	type rawGenesis struct {
		Owner           string       `yaml:"owner"`
		Dev             string       `yaml:"dev"`
		Signer          string       `yaml:"signer"`
		FeeTo           string       `yaml:"feeTo"`
		SignerContract  string       `yaml:"signerContract"`
		Enabled         *bool        `yaml:"enabled"`
		NoSnEnabled     bool         `yaml:"noSnEnabled"`
		AutoBindEnabled *bool        `yaml:"autoBindEnabled"`
		MaxWalletCount  uint64       `yaml:"maxWalletCount"`
		Admins          []string     `yaml:"admins"`
		Allocations     []Allocation `yaml:"allocations"`
	}
	var raw rawGenesis
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*g = Genesis{
		Owner:           raw.Owner,
		Dev:             raw.Dev,
		Signer:          raw.Signer,
		FeeTo:           raw.FeeTo,
		SignerContract:  raw.SignerContract,
		Enabled:         raw.Enabled == nil || *raw.Enabled,
		NoSnEnabled:     raw.NoSnEnabled,
		AutoBindEnabled: raw.AutoBindEnabled == nil || *raw.AutoBindEnabled,
		MaxWalletCount:  raw.MaxWalletCount,
		Admins:          raw.Admins,
		Allocations:     raw.Allocations,
	}
	return nil
}

// LoadGenesis decodes the YAML genesis at path.
func LoadGenesis(path string) (*Genesis, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genesis: %w", err)
	}
	defer file.Close()

	var genesis Genesis
	if err := yaml.NewDecoder(file).Decode(&genesis); err != nil {
		return nil, fmt.Errorf("decode genesis: %w", err)
	}
	return &genesis, nil
}

func optionalAddress(field, raw string) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return common.Address{}, nil
	}
	addr, err := crypto.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("genesis %s: %w", field, err)
	}
	return addr, nil
}

// Settings converts the genesis into ledger settings. The owner is required;
// dev defaults to the owner. When a signer contract is named its domain hash
// is the ledger's default EIP-712 domain.
func (g *Genesis) Settings(domainHash common.Hash) (payment.Settings, error) {
	owner, err := optionalAddress("owner", g.Owner)
	if err != nil {
		return payment.Settings{}, err
	}
	if owner == (common.Address{}) {
		return payment.Settings{}, fmt.Errorf("genesis owner required")
	}
	settings := payment.Settings{
		Owner:           owner,
		Dev:             owner,
		Enabled:         g.Enabled,
		NoSnEnabled:     g.NoSnEnabled,
		AutoBindEnabled: g.AutoBindEnabled,
		MaxWalletCount:  g.MaxWalletCount,
	}
	if dev, err := optionalAddress("dev", g.Dev); err != nil {
		return payment.Settings{}, err
	} else if dev != (common.Address{}) {
		settings.Dev = dev
	}
	if settings.Signer, err = optionalAddress("signer", g.Signer); err != nil {
		return payment.Settings{}, err
	}
	if settings.FeeTo, err = optionalAddress("feeTo", g.FeeTo); err != nil {
		return payment.Settings{}, err
	}
	if settings.SignerContract, err = optionalAddress("signerContract", g.SignerContract); err != nil {
		return payment.Settings{}, err
	}
	if settings.SignerContract != (common.Address{}) {
		settings.DomainHash = domainHash
	}
	if settings.MaxWalletCount == 0 {
		settings.MaxWalletCount = payment.DefaultMaxWalletCount
	}
	return settings, nil
}

// AdminAddresses returns the admin set. The owner is always an admin.
func (g *Genesis) AdminAddresses() ([]common.Address, error) {
	owner, err := optionalAddress("owner", g.Owner)
	if err != nil {
		return nil, err
	}
	admins := []common.Address{}
	if owner != (common.Address{}) {
		admins = append(admins, owner)
	}
	for i, raw := range g.Admins {
		addr, err := optionalAddress(fmt.Sprintf("admins[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		if addr != (common.Address{}) && addr != owner {
			admins = append(admins, addr)
		}
	}
	return admins, nil
}

// ParsedAllocation is a validated genesis allocation.
type ParsedAllocation struct {
	Token  common.Address
	Holder common.Address
	Amount *big.Int
}

// ParsedAllocations validates every allocation.
func (g *Genesis) ParsedAllocations() ([]ParsedAllocation, error) {
	out := make([]ParsedAllocation, 0, len(g.Allocations))
	for i, alloc := range g.Allocations {
		var token common.Address
		if raw := strings.TrimSpace(alloc.Token); raw != "" && !strings.EqualFold(raw, "native") {
			parsed, err := optionalAddress(fmt.Sprintf("allocations[%d].token", i), raw)
			if err != nil {
				return nil, err
			}
			token = parsed
		}
		holder, err := optionalAddress(fmt.Sprintf("allocations[%d].holder", i), alloc.Holder)
		if err != nil {
			return nil, err
		}
		if holder == (common.Address{}) {
			return nil, fmt.Errorf("genesis allocations[%d].holder required", i)
		}
		amount, err := parseUintAmount(alloc.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis allocations[%d].amount: %w", i, err)
		}
		out = append(out, ParsedAllocation{Token: token, Holder: holder, Amount: amount})
	}
	return out, nil
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
