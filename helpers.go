package batchio

// SplitWrite slices data into fixed-stride WriteEntries laid out contiguously
// from offset base, the common case of flushing serialized fixed-size
// records. The entries alias data; data must stay valid until the batch
// completes. The final entry may be shorter than stride.
func SplitWrite(data []byte, stride int, base int64) []WriteEntry {
	if stride <= 0 || len(data) == 0 {
		return nil
	}
	entries := make([]WriteEntry, 0, (len(data)+stride-1)/stride)
	for off := 0; off < len(data); off += stride {
		end := off + stride
		if end > len(data) {
			end = len(data)
		}
		entries = append(entries, WriteEntry{
			Buffer: data[off:end],
			Length: end - off,
			Offset: base + int64(off),
		})
	}
	return entries
}

// SplitRead allocates ReadEntries covering total bytes from offset base in
// fixed-stride pieces. Each entry owns a freshly allocated buffer.
func SplitRead(total, stride int, base int64) []ReadEntry {
	if stride <= 0 || total <= 0 {
		return nil
	}
	entries := make([]ReadEntry, 0, (total+stride-1)/stride)
	for off := 0; off < total; off += stride {
		size := stride
		if off+size > total {
			size = total - off
		}
		entries = append(entries, ReadEntry{
			Buffer: make([]byte, size),
			Size:   size,
			Offset: base + int64(off),
		})
	}
	return entries
}

// ChunkWrites splits an oversized batch into sub-batches of at most n
// entries. Each sub-batch is a separate BatchWrite call and carries its own
// durability barrier.
func ChunkWrites(entries []WriteEntry, n int) [][]WriteEntry {
	if n <= 0 {
		n = DefaultChunkEntries
	}
	var chunks [][]WriteEntry
	for len(entries) > n {
		chunks = append(chunks, entries[:n])
		entries = entries[n:]
	}
	if len(entries) > 0 {
		chunks = append(chunks, entries)
	}
	return chunks
}

// ChunkReads splits an oversized read batch into sub-batches of at most n
// entries.
func ChunkReads(entries []ReadEntry, n int) [][]ReadEntry {
	if n <= 0 {
		n = DefaultChunkEntries
	}
	var chunks [][]ReadEntry
	for len(entries) > n {
		chunks = append(chunks, entries[:n])
		entries = entries[n:]
	}
	if len(entries) > 0 {
		chunks = append(chunks, entries)
	}
	return chunks
}
