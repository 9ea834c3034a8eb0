package container

// ColorMap is a GIF colour table. The zero value is an undefined table.
type ColorMap struct {
	rgb []byte
}

// newColorMap copies a fully received table of RGB triples.
func newColorMap(table []byte) ColorMap {
	return ColorMap{rgb: append([]byte(nil), table...)}
}

// Defined reports whether the table was present and fully received.
func (m *ColorMap) Defined() bool { return m.rgb != nil }

// Len returns the number of entries.
func (m *ColorMap) Len() int { return len(m.rgb) / BytesPerColorMapEntry }

// RGB returns entry i. i must be below Len.
func (m *ColorMap) RGB(i int) (r, g, b byte) {
	e := m.rgb[i*BytesPerColorMapEntry : i*BytesPerColorMapEntry+BytesPerColorMapEntry]
	return e[0], e[1], e[2]
}
