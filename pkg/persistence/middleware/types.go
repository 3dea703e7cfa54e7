package middleware

import "github.com/aretw0/livemd/pkg/ports"

// Middleware allows wrapping a VariableStore to add behavior.
type Middleware func(ports.VariableStore) ports.VariableStore

// Chain applies middlewares so that the first one is the outermost.
func Chain(store ports.VariableStore, mws ...Middleware) ports.VariableStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
