package links

// SetIDChunkSize lowers the "IN ?" batch size and returns a func restoring it.
func SetIDChunkSize(n int) func() {
	previous := idChunkSize
	idChunkSize = n
	return func() { idChunkSize = previous }
}
