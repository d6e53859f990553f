package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

const (
	genesisOwner = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	genesisToken = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
)

func writeGenesis(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	return path
}

func TestLoadGenesisDefaults(t *testing.T) {
	path := writeGenesis(t, "owner: \""+genesisOwner+"\"\n")
	genesis, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	domain := common.HexToHash("0xd0")
	settings, err := genesis.Settings(domain)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	owner := common.HexToAddress(genesisOwner)
	if settings.Owner != owner || settings.Dev != owner {
		t.Fatalf("owner must default dev: %+v", settings)
	}
	if !settings.Enabled || !settings.AutoBindEnabled || settings.NoSnEnabled {
		t.Fatalf("unexpected flag defaults: %+v", settings)
	}
	if settings.MaxWalletCount != 1 {
		t.Fatalf("expected wallet cap 1, got %d", settings.MaxWalletCount)
	}
	if settings.DomainHash != (common.Hash{}) {
		t.Fatalf("domain hash must stay empty without a signer contract")
	}
	admins, err := genesis.AdminAddresses()
	if err != nil {
		t.Fatalf("admins: %v", err)
	}
	if len(admins) != 1 || admins[0] != owner {
		t.Fatalf("owner must be the only admin, got %v", admins)
	}
}

func TestLoadGenesisFull(t *testing.T) {
	path := writeGenesis(t, `owner: "`+genesisOwner+`"
signer: "`+genesisToken+`"
signerContract: "`+genesisToken+`"
enabled: false
autoBindEnabled: false
noSnEnabled: true
maxWalletCount: 3
admins:
  - "`+genesisToken+`"
  - "`+genesisOwner+`"
allocations:
  - token: native
    holder: "`+genesisToken+`"
    amount: "1000000000000000000"
  - token: "`+genesisToken+`"
    holder: "`+genesisOwner+`"
    amount: "42"
`)
	genesis, err := LoadGenesis(path)
	if err != nil {
		t.Fatalf("load genesis: %v", err)
	}
	domain := common.HexToHash("0xd0")
	settings, err := genesis.Settings(domain)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.Enabled || settings.AutoBindEnabled || !settings.NoSnEnabled || settings.MaxWalletCount != 3 {
		t.Fatalf("unexpected settings: %+v", settings)
	}
	if settings.DomainHash != domain {
		t.Fatalf("expected default domain hash for signer contract")
	}
	admins, err := genesis.AdminAddresses()
	if err != nil {
		t.Fatalf("admins: %v", err)
	}
	if len(admins) != 2 {
		t.Fatalf("expected owner deduplicated, got %v", admins)
	}
	allocs, err := genesis.ParsedAllocations()
	if err != nil {
		t.Fatalf("allocations: %v", err)
	}
	if len(allocs) != 2 || allocs[0].Token != (common.Address{}) || allocs[1].Amount.Int64() != 42 {
		t.Fatalf("unexpected allocations: %+v", allocs)
	}
}

func TestGenesisValidation(t *testing.T) {
	if _, err := (&Genesis{}).Settings(common.Hash{}); err == nil {
		t.Fatalf("expected missing owner to fail")
	}
	bad := &Genesis{Owner: genesisOwner, Allocations: []Allocation{{Holder: genesisOwner, Amount: "-1"}}}
	if _, err := bad.ParsedAllocations(); err == nil {
		t.Fatalf("expected negative amount to fail")
	}
	bad.Allocations = []Allocation{{Amount: "1"}}
	if _, err := bad.ParsedAllocations(); err == nil {
		t.Fatalf("expected missing holder to fail")
	}
}
