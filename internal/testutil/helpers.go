package testutil

// Ptr returns a pointer to v, for optional fields in config literals.
func Ptr[T any](v T) *T { return &v }
