package metadata

import (
	"miladyos/internal/api"
	"miladyos/pkg/logging"
)

// Adapter exposes the Store through the central API layer. The store
// has no tools of its own; the template and pipeline packages consume
// it through the MetadataStoreHandler interface.
type Adapter struct {
	store *Store
}

// NewAdapter creates a new metadata store API adapter.
func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

// Register registers this adapter with the central API layer. This
// method follows the project's API service locator pattern.
func (a *Adapter) Register() {
	api.RegisterMetadataStore(a.store)
	logging.Info("MetadataAdapter", "Registered metadata store with API layer")
}

// Close releases the store's connection.
func (a *Adapter) Close() error {
	return a.store.Close()
}
