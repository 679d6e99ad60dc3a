package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/adalparedes/adalcore/internal/model"
)

// PutCreditPack writes a credit pack definition.
func (s *Store) PutCreditPack(pack *model.CreditPack) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(pack)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCreditPacks).Put([]byte(pack.Code), data)
	})
}

// GetCreditPack reads a pack by code.
func (s *Store) GetCreditPack(code string) (*model.CreditPack, error) {
	var pack model.CreditPack
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketCreditPacks).Get([]byte(code))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &pack)
	})
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

// ListCreditPacks returns the active packs in display order.
func (s *Store) ListCreditPacks() ([]model.CreditPack, error) {
	var out []model.CreditPack
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCreditPacks).ForEach(func(k, v []byte) error {
			var pack model.CreditPack
			if e := json.Unmarshal(v, &pack); e != nil {
				return nil
			}
			if pack.IsActive {
				out = append(out, pack)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// RecordTransaction appends a ledger entry and applies its credit delta to
// the user's balance in the same bolt transaction.
func (s *Store) RecordTransaction(txn *model.CreditTransaction) (int64, error) {
	var newBalance int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(txn)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s/%020d_%s", txn.UserID, txn.CreatedAt.UnixNano(), txn.ID)
		if err := tx.Bucket(bucketCreditLedger).Put([]byte(key), data); err != nil {
			return err
		}

		balances := tx.Bucket(bucketBalances)
		newBalance = decodeBalance(balances.Get([]byte(txn.UserID))) + txn.CreditsDelta
		return balances.Put([]byte(txn.UserID), encodeBalance(newBalance))
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// Balance returns a user's current credit balance.
func (s *Store) Balance(userID string) (int64, error) {
	var balance int64
	err := s.db.View(func(tx *bolt.Tx) error {
		balance = decodeBalance(tx.Bucket(bucketBalances).Get([]byte(userID)))
		return nil
	})
	return balance, err
}

func encodeBalance(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeBalance(data []byte) int64 {
	if len(data) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(data))
}
