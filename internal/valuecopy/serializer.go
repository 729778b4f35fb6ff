package valuecopy

// Serializer is the external collaborator pair from SPEC_FULL.md's codec
// package: encode(value)->bytes and decode(bytes)->value. Composite values
// (Array/Object) are routed through it on CopyIn when configured, and the
// resulting bytes are routed back through Decode on CopyOut. A nil
// Serializer means "no serializer configured": composite values are deep
// copied structurally instead (§4.2).
type Serializer interface {
	Encode(v *Value) ([]byte, error)
	Decode(b []byte) (*Value, error)
}
