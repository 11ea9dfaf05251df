// Package digest provides the closed set of hash functions used by ssess.
//
// Names are validated once with ParseAlgorithm; after that every Algorithm
// value is known to produce a working hash.Hash. SHA-2 comes from the
// standard library, SHA-3 and BLAKE2b from golang.org/x/crypto.
package digest
