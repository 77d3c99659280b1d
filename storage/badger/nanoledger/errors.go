package nanoledger

import "errors"

var (
	errCorruptPending   = errors.New("nanoledger: corrupt pending entry amount")
	errUnknownBlockType = errors.New("nanoledger: unknown block type")
)
