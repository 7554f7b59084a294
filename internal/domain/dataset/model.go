package dataset

import (
	"image"
	"sort"
)

// DefaultQuota is the number of samples a capture session stores.
const DefaultQuota = 50

// Key identifies one sample.
type Key struct {
	OwnerID  int64
	Sequence int
}

// SampleRef locates a stored sample.
type SampleRef struct {
	OwnerID  int64
	Sequence int
	Path     string
}

// Key returns the index key of the ref.
func (r SampleRef) Key() Key {
	return Key{OwnerID: r.OwnerID, Sequence: r.Sequence}
}

// FaceSample is a loaded grayscale face crop with its owner.
type FaceSample struct {
	SampleRef
	Image *image.Gray
}

// Index is the set of stored samples keyed by (owner, sequence).
type Index map[Key]SampleRef

// Refs returns every ref ordered by owner then sequence.
func (ix Index) Refs() []SampleRef {
	refs := make([]SampleRef, 0, len(ix))
	for _, r := range ix {
		refs = append(refs, r)
	}
	sortRefs(refs)
	return refs
}

// ForOwner returns the owner's refs ordered by sequence.
func (ix Index) ForOwner(ownerID int64) []SampleRef {
	var refs []SampleRef
	for k, r := range ix {
		if k.OwnerID == ownerID {
			refs = append(refs, r)
		}
	}
	sortRefs(refs)
	return refs
}

// MaxSequence returns the highest sequence stored for the owner, or 0.
func (ix Index) MaxSequence(ownerID int64) int {
	max := 0
	for k := range ix {
		if k.OwnerID == ownerID && k.Sequence > max {
			max = k.Sequence
		}
	}
	return max
}

// Owners returns the distinct owner ids in ascending order.
func (ix Index) Owners() []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for k := range ix {
		if !seen[k.OwnerID] {
			seen[k.OwnerID] = true
			ids = append(ids, k.OwnerID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortRefs(refs []SampleRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].OwnerID != refs[j].OwnerID {
			return refs[i].OwnerID < refs[j].OwnerID
		}
		return refs[i].Sequence < refs[j].Sequence
	})
}

// CaptureOptions controls one capture session.
type CaptureOptions struct {
	// Quota is the number of samples to store. Zero uses the manager default.
	Quota int
	// Append keeps existing samples and numbers after the highest sequence.
	Append bool
	// Stop ends the session early without error when closed.
	Stop <-chan struct{}
	// OnSample is called after each stored sample.
	OnSample func(SampleRef)
}

// CaptureResult summarises a capture session.
type CaptureResult struct {
	Stored    int
	FirstSeq  int
	LastSeq   int
	Frames    int
	Cancelled bool
}
