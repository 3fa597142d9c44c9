package chain

import (
	"fmt"

	"github.com/rs/zerolog"

	"content-paygate/internal/config"
	"content-paygate/internal/domain"
	"content-paygate/internal/domain/model"
	"content-paygate/internal/domain/ports/adapter"
)

// Registry maps a chain identifier to its verifier. Registration is static:
// adding a chain means implementing ChainVerifier and adding one entry here.
// Chain support is a deployment-time decision (each chain needs an RPC
// endpoint), not a runtime extensibility point.
type Registry struct {
	verifiers map[model.Chain]adapter.ChainVerifier
}

// NewRegistry builds the registry from explicit chain configuration. An EVM
// chain with no configured endpoint is simply not registered; Solana always
// is (its endpoint has a public default).
func NewRegistry(cfg config.ChainsConfig, logger *zerolog.Logger) (*Registry, error) {
	r := &Registry{verifiers: make(map[model.Chain]adapter.ChainVerifier)}
	r.register(NewSolanaVerifier(cfg.SolanaRPCURL, cfg.RPCTimeout, logger))

	for _, c := range model.EVMChains() {
		url := cfg.EVMRPCURLs[string(c)]
		if url == "" {
			continue
		}
		v, err := NewEVMVerifier(c, url, cfg.RPCTimeout, logger)
		if err != nil {
			return nil, err
		}
		r.register(v)
	}
	return r, nil
}

// NewRegistryWith builds a registry from pre-constructed verifiers (test doubles).
func NewRegistryWith(verifiers ...adapter.ChainVerifier) *Registry {
	r := &Registry{verifiers: make(map[model.Chain]adapter.ChainVerifier)}
	for _, v := range verifiers {
		r.register(v)
	}
	return r
}

func (r *Registry) register(v adapter.ChainVerifier) {
	r.verifiers[v.Chain()] = v
}

// Get fails closed: an unregistered chain is an error, never a silent
// fallback to another chain's verifier.
func (r *Registry) Get(chain model.Chain) (adapter.ChainVerifier, error) {
	v, ok := r.verifiers[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedChain, chain)
	}
	return v, nil
}
