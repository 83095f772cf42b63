package egnosgo

// DefaultRDOptions returns the conservative default option set: no
// overrides enabled, matching the MOPS-default behavior spec.md 4.9/4.10
// describe before any R&D override is applied.
func DefaultRDOptions() RDOptions {
	return RDOptions{}
}
