// Package loopback implements the exchange loop shared by the loopback
// testers: it sends a fixed test pattern out of one endpoint, drains the
// other, and checks byte for byte that what comes back is what went out.
package loopback

// Pattern is the verification pattern written on the wire. It must not
// change: deployed testers on the other side of a loopback compare
// against these exact bytes.
var Pattern = [49]byte{
	0x3e, 0x54, 0x68, 0x65, 0x20, 0x71, 0x75, 0x69, 0x63, 0x6b,
	0xf7, 0xfe, 0x62, 0x72, 0x6f, 0x77, 0xbe, 0x6e, 0x5f, 0x66,
	0x6f, 0x78, 0x20, 0x6a, 0x75, 0x6d, 0x70, 0x73, 0x20, 0x7d,
	0x6f, 0x76, 0x65, 0x72, 0x20, 0x74, 0x68, 0x65, 0x7e, 0x7c,
	0x61, 0x7a, 0x79, 0x20, 0x64, 0x6f, 0x67, 0x3f, 0xfe,
}

// Payload returns a new buffer of |size| bytes filled by repeating Pattern.
func Payload(size int) []byte {
	buf := make([]byte, size)
	for i := 0; i < size; i += len(Pattern) {
		copy(buf[i:], Pattern[:])
	}
	return buf
}
