package nanoledger

import "github.com/nanolabs/nanod/chain"

// Key prefixes, one byte each, mirroring the single-byte prefix scheme of
// the source's storage/badger/operation.makePrefix convention.
const (
	prefixAccount           byte = 0x01
	prefixBlock             byte = 0x02
	prefixSuccessor         byte = 0x03 // qualified root -> successor hash
	prefixPending           byte = 0x04 // destination || source hash -> pending entry
	prefixRepresentativeWgt byte = 0x05
	prefixMeta              byte = 0x06
)

func accountKey(account chain.Hash) []byte {
	return append([]byte{prefixAccount}, account[:]...)
}

func blockKey(hash chain.Hash) []byte {
	return append([]byte{prefixBlock}, hash[:]...)
}

func successorKey(qr chain.QualifiedRoot) []byte {
	k := make([]byte, 0, 1+chain.HashLength*2)
	k = append(k, prefixSuccessor)
	k = append(k, qr.Root[:]...)
	k = append(k, qr.Previous[:]...)
	return k
}

func pendingKey(destination, source chain.Hash) []byte {
	k := make([]byte, 0, 1+chain.HashLength*2)
	k = append(k, prefixPending)
	k = append(k, destination[:]...)
	k = append(k, source[:]...)
	return k
}

func pendingPrefix(destination chain.Hash) []byte {
	return append([]byte{prefixPending}, destination[:]...)
}

func repWeightKey(representative chain.Hash) []byte {
	return append([]byte{prefixRepresentativeWgt}, representative[:]...)
}

func metaKey(name string) []byte {
	return append([]byte{prefixMeta}, []byte(name)...)
}

var metaCementedCount = metaKey("cemented_count")
var metaBootstrapWeightMaxBlocks = metaKey("bootstrap_weight_max_blocks")
