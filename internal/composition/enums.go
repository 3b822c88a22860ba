package composition

//go:generate go tool stringer -type=CreationPolicy -trimprefix=CreationPolicy -output=creationpolicy_string.go
//go:generate go tool stringer -type=Cardinality -output=cardinality_string.go

// CreationPolicy controls whether a part's instances are shared.
type CreationPolicy uint8

const (
	CreationPolicyAny CreationPolicy = iota
	CreationPolicyShared
	CreationPolicyNonShared
)

// IsValid reports whether p is a known policy.
func (p CreationPolicy) IsValid() bool {
	return p <= CreationPolicyNonShared
}

// Cardinality is the number of exports an import accepts.
type Cardinality uint8

const (
	ExactlyOne Cardinality = iota
	ZeroOrOne
	ZeroOrMore
)

// IsValid reports whether c is a known cardinality.
func (c Cardinality) IsValid() bool {
	return c <= ZeroOrMore
}
