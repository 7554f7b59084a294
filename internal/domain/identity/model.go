package identity

// Identity is an enrolled student keyed by a caller-assigned id.
type Identity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
