package chainstore

import "errors"

// Sentinel errors for every outcome a PublicAPI call can report. Callers
// match with errors.Is; wrapped context is added with fmt.Errorf("...: %w").
var (
	// ErrInitFailed means background initialisation never completed
	// successfully. It is terminal: once set, every subsequent call on the
	// instance fails with this error.
	ErrInitFailed = errors.New("chainstore: initialization failed")

	// ErrChainMismatch means an item's chain id differs from the core's
	// configured chain id.
	ErrChainMismatch = errors.New("chainstore: chain id mismatch")

	// ErrInvalidBlock means structural validation against the declared
	// parent failed.
	ErrInvalidBlock = errors.New("chainstore: invalid block")

	// ErrInvalidPoW means the external proof-of-work verifier rejected the
	// block.
	ErrInvalidPoW = errors.New("chainstore: invalid proof of work")

	// ErrParentMissing means the parent's header or total difficulty was
	// required but absent during a put.
	ErrParentMissing = errors.New("chainstore: parent missing")

	// ErrBrokenChain means a parent header was absent while walking
	// rebuildCanonical backward.
	ErrBrokenChain = errors.New("chainstore: broken chain")

	// ErrNotFound means the requested block, header, TD, or lookup is
	// absent. Non-fatal: reported to the caller verbatim.
	ErrNotFound = errors.New("chainstore: not found")

	// ErrBodyMissing means a header is known but its body is not, for a
	// non-genesis block.
	ErrBodyMissing = errors.New("chainstore: body missing")

	// ErrAlreadyHaveGenesis means a non-genesis put claimed to be genesis.
	ErrAlreadyHaveGenesis = errors.New("chainstore: already have genesis")

	// ErrOutOfRange means a block number does not fit the 64-bit encoding.
	ErrOutOfRange = errors.New("chainstore: block number out of range")

	// ErrStoreError wraps a failure surfaced by the underlying KV store.
	ErrStoreError = errors.New("chainstore: store error")
)
