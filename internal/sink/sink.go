// Package sink stores scored repository records durably.
package sink

import (
	"sync"

	"github.com/fleetscan/fleetscan/internal/contract"
)

// ResultStoreManager manages the shared ResultSink instance.
type ResultStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	results      contract.ResultSink
}

var _ contract.ResultManager = &ResultStoreManager{} // Compile-time check

// GetResultStore returns the results ResultSink.
func (mgr *ResultStoreManager) GetResultStore() contract.ResultSink {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.results
}
