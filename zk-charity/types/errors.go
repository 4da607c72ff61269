package types

import "errors"

var (
	ErrUnknownPrivacyLevel = errors.New("unknown privacy level")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrMissingFields       = errors.New("missing required fields")
	ErrInsufficientDust    = errors.New("insufficient DUST")
	ErrInsufficientNight   = errors.New("insufficient NIGHT")
	ErrUnknownCharity      = errors.New("unknown charity")
	ErrNotFound            = errors.New("not found")
	ErrNullifierExists     = errors.New("nullifier already exists")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrInvalidProof        = errors.New("invalid proof")
	ErrInvalidTx           = errors.New("invalid transaction")
)
