package rawbody

// Body is the outcome of a successful collection.
type Body struct {
	data     []byte
	received int64
	encoding string
}

// Bytes returns the collected bytes, decoded to UTF-8 when an encoding was requested.
func (b *Body) Bytes() []byte { return b.data }

func (b *Body) String() string { return string(b.data) }

// Len returns the length of Bytes.
func (b *Body) Len() int { return len(b.data) }

// Received returns the number of bytes read from the source.
func (b *Body) Received() int64 { return b.received }

// Encoding returns the encoding the body was decoded from, empty for raw bodies.
func (b *Body) Encoding() string { return b.encoding }

// Decoded reports whether Bytes holds decoded text.
func (b *Body) Decoded() bool { return b.encoding != "" }
