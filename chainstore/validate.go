package chainstore

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
)

// Validator performs structural validation of a header against its declared
// parent: header fields, well-formed uncles, monotonic timestamps. It is an
// external collaborator — chain parameter lookup and the exact rule set for
// a given hardfork live outside this package, referenced only by this
// interface.
type Validator interface {
	ValidateBlock(header, parent *types.Header, body *types.Body) error
}

// PoWVerifier checks a header's proof-of-work seal. PoW verification is out
// of scope for ChainCore; it is referenced only by this interface, the way
// go-ethereum's own consensus.Engine is referenced by core.HeaderChain.
type PoWVerifier interface {
	VerifyPoW(header *types.Header) error
}

// basicValidator is the default Validator: cheap structural checks that
// hold regardless of hardfork rules. Callers with real chain-parameter
// requirements should supply their own Validator via WithValidator.
type basicValidator struct{}

func (basicValidator) ValidateBlock(header, parent *types.Header, body *types.Body) error {
	if header.Number == nil || parent.Number == nil {
		return fmt.Errorf("%w: missing block number", ErrInvalidBlock)
	}
	if header.Number.Uint64() != parent.Number.Uint64()+1 {
		return fmt.Errorf("%w: number %d is not parent number %d + 1", ErrInvalidBlock, header.Number.Uint64(), parent.Number.Uint64())
	}
	if header.ParentHash != parent.Hash() {
		return fmt.Errorf("%w: parentHash does not match parent's hash", ErrInvalidBlock)
	}
	if header.Time <= parent.Time {
		return fmt.Errorf("%w: timestamp %d not after parent timestamp %d", ErrInvalidBlock, header.Time, parent.Time)
	}
	if header.Difficulty == nil || header.Difficulty.Sign() < 0 {
		return fmt.Errorf("%w: negative or missing difficulty", ErrInvalidBlock)
	}
	for i, uncle := range body.Uncles {
		if uncle.Number == nil {
			return fmt.Errorf("%w: uncle %d missing number", ErrInvalidBlock, i)
		}
	}
	return nil
}

// acceptAllPoW is the default PoWVerifier. It accepts every header: real
// consensus verification is an external collaborator by spec, and the
// caller that cares about rejecting bad PoW must supply its own
// PoWVerifier via WithPoWVerifier.
type acceptAllPoW struct{}

func (acceptAllPoW) VerifyPoW(*types.Header) error { return nil }
