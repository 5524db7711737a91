// Copyright (c) 2025 Andrzej Kurek
//
// This file is part of pelion-crypto.
//
// pelion-crypto is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact the author for commercial licensing options.

package keystore

import (
	"encoding/binary"
	"fmt"

	"github.com/AndrzejKurek/pelion-crypto/pkg/types"
)

// Persistent key records use a fixed binary layout rather than a text
// serialization: the blob carries raw key material, and a flat layout keeps
// it zeroizable and free of stray copies in encoder buffers.
//
//	magic   [4]byte "PCKR"
//	version uint8
//	type    uint8-prefixed string
//	source  uint8-prefixed string
//	bits    uint32 little-endian
//	usage   uint32 little-endian
//	alg     uint8-prefixed string
//	material uint32-prefixed bytes
var recordMagic = [4]byte{'P', 'C', 'K', 'R'}

const recordVersion = 1

// keyRecord is the durable image of an occupied slot.
type keyRecord struct {
	keyType  types.KeyType
	source   types.KeySource
	bits     int
	policy   types.Policy
	material []byte
}

func encodeRecord(r keyRecord) []byte {
	size := 4 + 1 +
		1 + len(r.keyType) +
		1 + len(r.source) +
		4 + 4 +
		1 + len(r.policy.Algorithm) +
		4 + len(r.material)

	buf := make([]byte, 0, size)
	buf = append(buf, recordMagic[:]...)
	buf = append(buf, recordVersion)
	buf = appendString(buf, string(r.keyType))
	buf = appendString(buf, string(r.source))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.bits))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(r.policy.Usage))
	buf = appendString(buf, string(r.policy.Algorithm))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(r.material)))
	buf = append(buf, r.material...)
	return buf
}

func decodeRecord(blob []byte) (keyRecord, error) {
	var r keyRecord

	if len(blob) < 5 || [4]byte(blob[:4]) != recordMagic {
		return r, errCorruptRecord("bad magic")
	}
	if blob[4] != recordVersion {
		return r, errCorruptRecord(fmt.Sprintf("unknown version %d", blob[4]))
	}
	rest := blob[5:]

	keyType, rest, err := readString(rest)
	if err != nil {
		return r, err
	}
	source, rest, err := readString(rest)
	if err != nil {
		return r, err
	}
	if len(rest) < 8 {
		return r, errCorruptRecord("truncated header")
	}
	bits := binary.LittleEndian.Uint32(rest)
	usage := binary.LittleEndian.Uint32(rest[4:])
	rest = rest[8:]

	alg, rest, err := readString(rest)
	if err != nil {
		return r, err
	}
	if len(rest) < 4 {
		return r, errCorruptRecord("truncated material length")
	}
	matLen := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]
	if uint32(len(rest)) != matLen {
		return r, errCorruptRecord("material length mismatch")
	}

	r.keyType = types.KeyType(keyType)
	r.source = types.KeySource(source)
	r.bits = int(bits)
	r.policy = types.Policy{
		Usage:     types.Usage(usage),
		Algorithm: types.Algorithm(alg),
	}
	r.material = make([]byte, matLen)
	copy(r.material, rest)

	if !r.keyType.IsValid() || !r.source.IsValid() || len(r.material) == 0 {
		types.Zeroize(r.material)
		return keyRecord{}, errCorruptRecord("implausible field values")
	}
	return r, nil
}

func appendString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

func readString(rest []byte) (string, []byte, error) {
	if len(rest) < 1 {
		return "", nil, errCorruptRecord("truncated string length")
	}
	n := int(rest[0])
	rest = rest[1:]
	if len(rest) < n {
		return "", nil, errCorruptRecord("truncated string")
	}
	return string(rest[:n]), rest[n:], nil
}

func errCorruptRecord(detail string) error {
	return fmt.Errorf("%w: corrupt key record: %s", types.ErrStorageFailure, detail)
}
