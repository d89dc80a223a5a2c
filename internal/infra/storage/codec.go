package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"service_market/internal/domain"
)

// ErrUnknownKind is returned for stored accounts of an unknown kind.
var ErrUnknownKind = errors.New("unknown account kind")

func encodeAccount(acc domain.Account) ([]byte, error) {
	data, err := json.Marshal(acc)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", acc.Kind(), acc.AccountAddress(), err)
	}
	return data, nil
}

func decodeAccount(kind domain.AccountKind, data []byte) (domain.Account, error) {
	var acc domain.Account
	switch kind {
	case domain.KindWallet:
		acc = &domain.Wallet{}
	case domain.KindMarketplace:
		acc = &domain.Marketplace{}
	case domain.KindListing:
		acc = &domain.Listing{}
	case domain.KindAsset:
		acc = &domain.Asset{}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	if err := json.Unmarshal(data, acc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	return acc, nil
}
