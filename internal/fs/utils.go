package fs

import "math"

func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}

func safeUint64ToInt(n uint64) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

// splice writes p into data at off, growing data with zeros as needed.
func splice(data, p []byte, off int64) []byte {
	end := int(off) + len(p)
	if end > len(data) {
		data = resize(data, end)
	}
	copy(data[off:], p)
	return data
}

// resize truncates or zero-extends data to n bytes.
func resize(data []byte, n int) []byte {
	if n <= len(data) {
		return data[:n]
	}
	grown := make([]byte, n)
	copy(grown, data)
	return grown
}
