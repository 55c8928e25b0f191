package domain

// Zero overwrites every buffer with zeros. Plaintext secrets, data keys and the
// wrapping key are cleared this way as soon as the call that needed them returns.
// Nil buffers are skipped.
func Zero(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}
