package state

// Helpers for deterministic record serialization used by state hashing.

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// appendString writes a length-prefixed string (16-bit LE length).
func appendString(buf []byte, s string) []byte {
	buf = append(buf, byte(len(s)), byte(len(s)>>8))
	return append(buf, []byte(s)...)
}

func appendBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, 1)
	}
	return append(buf, 0)
}
