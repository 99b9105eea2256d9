package api

import (
	"sync"
)

// Handler registry variables store the registered implementations.
// These variables are protected by handlerMutex for thread-safe access.
var (
	metadataStoreHandler    MetadataStoreHandler
	templateManagerHandler  TemplateManagerHandler
	pipelineExecutorHandler PipelineExecutorHandler

	// handlerMutex protects all handler registry operations for
	// thread-safe registration and access.
	handlerMutex sync.RWMutex
)

// RegisterMetadataStore registers the metadata store handler
// implementation. Registration is thread-safe and happens once during
// system initialization; a subsequent registration replaces the
// previous handler.
func RegisterMetadataStore(h MetadataStoreHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	metadataStoreHandler = h
}

// GetMetadataStore returns the registered metadata store handler, or
// nil if none has been registered.
func GetMetadataStore() MetadataStoreHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return metadataStoreHandler
}

// RegisterTemplateManager registers the template manager handler
// implementation.
func RegisterTemplateManager(h TemplateManagerHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	templateManagerHandler = h
}

// GetTemplateManager returns the registered template manager handler,
// or nil if none has been registered.
func GetTemplateManager() TemplateManagerHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return templateManagerHandler
}

// RegisterPipelineExecutor registers the pipeline executor handler
// implementation.
func RegisterPipelineExecutor(h PipelineExecutorHandler) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	pipelineExecutorHandler = h
}

// GetPipelineExecutor returns the registered pipeline executor handler,
// or nil if none has been registered.
func GetPipelineExecutor() PipelineExecutorHandler {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return pipelineExecutorHandler
}

// ResetHandlers clears all registered handlers. Test helper.
func ResetHandlers() {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	metadataStoreHandler = nil
	templateManagerHandler = nil
	pipelineExecutorHandler = nil
}
