package training

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Model is the single trained model slot.
type Model struct {
	Version     string
	TrainedAt   time.Time
	OwnerIDs    []int64
	Fingerprint string
	SampleCount int
	Data        []byte
}

// HasOwner reports whether id contributed samples to the model.
func (m *Model) HasOwner(id int64) bool {
	i := sort.Search(len(m.OwnerIDs), func(i int) bool { return m.OwnerIDs[i] >= id })
	return i < len(m.OwnerIDs) && m.OwnerIDs[i] == id
}

// Fingerprint hashes an identity set independent of order and duplicates.
func Fingerprint(ids []int64) string {
	sorted := SortedUnique(ids)
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:])
}

// SortedUnique returns ids sorted ascending without duplicates.
func SortedUnique(ids []int64) []int64 {
	out := append([]int64(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	n := 0
	for i, id := range out {
		if i == 0 || id != out[n-1] {
			out[n] = id
			n++
		}
	}
	return out[:n]
}
