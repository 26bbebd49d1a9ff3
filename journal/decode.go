package journal

import "fmt"

// Decode reads journal strictly left to right, producing one value per
// layout entry. It fails with ErrLayoutMismatch, returning no values, when
// the journal is shorter than the layout's total width. Bytes beyond the
// layout are ignored; use DecodeExact to reject them.
func Decode(journal []byte, layout Layout) ([]Value, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if want := layout.Width(); len(journal) < want {
		return nil, fmt.Errorf("%w: journal has %d bytes, layout %q needs %d",
			ErrLayoutMismatch, len(journal), layout.String(), want)
	}

	values := make([]Value, len(layout))
	offset := 0
	for i, t := range layout {
		w := t.Width()
		data := make([]byte, w)
		copy(data, journal[offset:offset+w])
		values[i] = Value{typ: t, data: data}
		offset += w
	}
	return values, nil
}

// DecodeExact is Decode that additionally requires the journal to be fully
// consumed by the layout.
func DecodeExact(journal []byte, layout Layout) ([]Value, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if want := layout.Width(); len(journal) != want {
		return nil, fmt.Errorf("%w: journal has %d bytes, layout %q needs exactly %d",
			ErrLayoutMismatch, len(journal), layout.String(), want)
	}
	return Decode(journal, layout)
}
