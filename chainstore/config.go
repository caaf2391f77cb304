package chainstore

import (
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/blockcore-labs/chainstore/chainkv"
)

// config holds everything a constructor Option can set. The zero value is
// not meaningful on its own; New fills in defaults for anything an Option
// did not touch.
type config struct {
	chainID    *big.Int
	hardfork   string
	kv         chainkv.KeyValueStore
	validate   bool
	logger     *logrus.Logger
	genesis    GenesisProvider
	validator  Validator
	powVerify  PoWVerifier
}

// Option configures a Core at construction time.
type Option func(*config)

// WithChainConfig sets the chain identifier the core enforces on every put
// (spec.md's "chain identifier or explicit chain-parameter object, mutually
// exclusive" — this package only models the identifier half, since the
// chain-parameter object itself is an external collaborator).
func WithChainConfig(chainID *big.Int) Option {
	return func(c *config) { c.chainID = chainID }
}

// WithHardfork records an optional hardfork identifier in the config. It is
// not read anywhere else: ChainCore does not keep it, and the Validator and
// PoWVerifier interfaces do not receive it.
func WithHardfork(name string) Option {
	return func(c *config) { c.hardfork = name }
}

// WithKeyValueStore supplies the underlying ordered KV store. Omitted,
// the core defaults to an in-memory store (chainkv.NewStore(nil)).
func WithKeyValueStore(kv chainkv.KeyValueStore) Option {
	return func(c *config) { c.kv = kv }
}

// WithValidation toggles structural validation and PoW verification.
// Default true.
func WithValidation(enabled bool) Option {
	return func(c *config) { c.validate = enabled }
}

// WithLogger overrides the default logrus logger.
func WithLogger(l *logrus.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithGenesis overrides the default genesis builder.
func WithGenesis(g GenesisProvider) Option {
	return func(c *config) { c.genesis = g }
}

// WithValidator overrides the default structural validator.
func WithValidator(v Validator) Option {
	return func(c *config) { c.validator = v }
}

// WithPoWVerifier overrides the default (accept-all) PoW verifier.
func WithPoWVerifier(v PoWVerifier) Option {
	return func(c *config) { c.powVerify = v }
}

func defaultConfig() *config {
	return &config{
		chainID:   big.NewInt(1),
		validate:  true,
		logger:    logrus.StandardLogger(),
		validator: basicValidator{},
		powVerify: acceptAllPoW{},
	}
}

func buildConfig(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.genesis == nil {
		cfg.genesis = defaultGenesis{chainID: cfg.chainID}
	}
	return cfg
}
