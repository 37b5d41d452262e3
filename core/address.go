package core

import "context"

type DerivedAddress struct {
	Address string `json:"address"`
	Counter uint64 `json:"counter"`
	Path    string `json:"path"`
}

type AddressDeriver interface {
	Next(ctx context.Context, userID string) (*DerivedAddress, error)
	Range(ctx context.Context, userID string, start, end uint64) ([]*DerivedAddress, error)
}
