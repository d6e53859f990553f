package payment

import "github.com/ethereum/go-ethereum/common"

// consumeRecord burns sn for operator. Serial numbers share one namespace
// across every operation kind, so a number used anywhere is used everywhere.
func consumeRecord(s *store, sn common.Hash, operator common.Address) error {
	existing, err := s.record(sn)
	if err != nil {
		return err
	}
	if existing != (common.Address{}) {
		return ErrRecordExists
	}
	// A zero operator would read back as an unused record.
	if operator == (common.Address{}) {
		return ErrForbidden
	}
	return s.putRecord(sn, operator)
}

// GetRecords returns the operator that consumed each serial number, or the
// zero address for unused ones.
func (e *Engine) GetRecords(sns []common.Hash) ([]common.Address, error) {
	out := make([]common.Address, len(sns))
	err := e.view(func(tx *txn) error {
		for i, sn := range sns {
			operator, err := tx.store.record(sn)
			if err != nil {
				return err
			}
			out[i] = operator
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
