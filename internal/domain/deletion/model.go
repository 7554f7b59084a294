package deletion

// CascadeResult reports what the store removed.
type CascadeResult struct {
	Existed           bool
	AttendanceRemoved int64
}

// Result reports a completed identity deletion.
type Result struct {
	ID                int64
	Existed           bool
	AttendanceRemoved int64
	SamplesRemoved    int
}

// Nothing reports whether the deletion found no trace of the identity.
func (r Result) Nothing() bool {
	return !r.Existed && r.AttendanceRemoved == 0 && r.SamplesRemoved == 0
}
