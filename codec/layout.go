package codec

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// FieldSpec declares one fixed-width field of a flat record.
type FieldSpec struct {
	Name  string
	Width int
}

// KeyField is a 32 byte address field.
func KeyField(name string) FieldSpec {
	return FieldSpec{Name: name, Width: solana.PublicKeyLength}
}

// U64Field is an 8 byte little-endian integer field.
func U64Field(name string) FieldSpec {
	return FieldSpec{Name: name, Width: U64Size}
}

// F64Field is an 8 byte IEEE-754 field.
func F64Field(name string) FieldSpec {
	return FieldSpec{Name: name, Width: F64Size}
}

// U8Field is a single byte field.
func U8Field(name string) FieldSpec {
	return FieldSpec{Name: name, Width: 1}
}

// Size is the total width of a layout.
func Size(specs []FieldSpec) int {
	var n int
	for _, s := range specs {
		n += s.Width
	}
	return n
}

// Record holds the raw bytes of each decoded field, keyed by field name.
type Record map[string][]byte

// Key returns the named field as an address.
func (r Record) Key(name string) (solana.PublicKey, error) {
	b, ok := r[name]
	if !ok {
		return solana.PublicKey{}, errors.Errorf("field %q not in record", name)
	}
	if len(b) != solana.PublicKeyLength {
		return solana.PublicKey{}, errors.Errorf("field %q is %d bytes, not an address", name, len(b))
	}
	return solana.PublicKeyFromBytes(b), nil
}

// U64 returns the named field as a little-endian integer.
func (r Record) U64(name string) (uint64, error) {
	b, ok := r[name]
	if !ok {
		return 0, errors.Errorf("field %q not in record", name)
	}
	return DecodeU64(b)
}

// F64 returns the named field as a float.
func (r Record) F64(name string) (float64, error) {
	b, ok := r[name]
	if !ok {
		return 0, errors.Errorf("field %q not in record", name)
	}
	return DecodeF64(b)
}

// U8 returns the named single byte field.
func (r Record) U8(name string) (uint8, error) {
	b, ok := r[name]
	if !ok || len(b) != 1 {
		return 0, errors.Errorf("field %q is not a single byte", name)
	}
	return b[0], nil
}

// DecodeFixedStruct splits data into the fields declared by specs, in order.
// Trailing bytes past the layout are ignored. A buffer shorter than the layout
// yields a *LayoutError.
func DecodeFixedStruct(data []byte, specs []FieldSpec) (Record, error) {
	want := Size(specs)
	if len(data) < want {
		return nil, &LayoutError{Layout: layoutName(specs), Want: want, Got: len(data)}
	}

	rec := make(Record, len(specs))
	var offset int
	for _, s := range specs {
		field := make([]byte, s.Width)
		copy(field, data[offset:offset+s.Width])
		rec[s.Name] = field
		offset += s.Width
	}
	return rec, nil
}

func layoutName(specs []FieldSpec) string {
	name := "{"
	for i, s := range specs {
		if i > 0 {
			name += ","
		}
		name += s.Name
	}
	return name + "}"
}
