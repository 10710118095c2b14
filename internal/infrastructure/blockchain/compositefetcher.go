package blockchain

import (
	"context"
	"fmt"
	"sync"

	"github.com/orris-inc/usdtvote/internal/application/payment/blockchain"
	vo "github.com/orris-inc/usdtvote/internal/domain/payment/valueobjects"
)

// NetworkFetcher reads transfers from a single chain.
type NetworkFetcher interface {
	FetchTransfer(ctx context.Context, txHash string) (*blockchain.VerifiedTransfer, error)
}

// CompositeFetcher dispatches on the network tag to the adapter registered for it.
type CompositeFetcher struct {
	mu       sync.RWMutex
	fetchers map[vo.Network]NetworkFetcher
}

func NewCompositeFetcher() *CompositeFetcher {
	return &CompositeFetcher{fetchers: make(map[vo.Network]NetworkFetcher)}
}

var _ blockchain.TransferFetcher = (*CompositeFetcher)(nil)

// Register installs or replaces the adapter for network.
func (f *CompositeFetcher) Register(network vo.Network, fetcher NetworkFetcher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchers[network] = fetcher
}

// Supports reports whether an adapter is registered for network.
func (f *CompositeFetcher) Supports(network vo.Network) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.fetchers[network]
	return ok
}

func (f *CompositeFetcher) FetchTransfer(ctx context.Context, network vo.Network, txHash string) (*blockchain.VerifiedTransfer, error) {
	f.mu.RLock()
	fetcher, ok := f.fetchers[network]
	f.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no chain adapter configured for network %s", network)
	}
	return fetcher.FetchTransfer(ctx, txHash)
}
