package wire

import (
	"bytes"
	"encoding/binary"
	"net/netip"
)

// encoder appends little-endian fields to a payload.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8) {
	e.buf = append(e.buf, v)
}

func (e *encoder) u16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *encoder) u32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

// str writes s into a NUL-padded field of size n, keeping at least one NUL.
func (e *encoder) str(s string, n int) {
	if len(s) > n-1 {
		s = s[:n-1]
	}
	e.buf = append(e.buf, s...)
	for i := len(s); i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// raw writes b into a zero-padded field of size n.
func (e *encoder) raw(b []byte, n int) {
	if len(b) > n {
		b = b[:n]
	}
	e.buf = append(e.buf, b...)
	for i := len(b); i < n; i++ {
		e.buf = append(e.buf, 0)
	}
}

// addr writes an IPv4 address in network byte order.
func (e *encoder) addr(a netip.Addr) {
	if a.Is4() {
		b := a.As4()
		e.buf = append(e.buf, b[:]...)
		return
	}
	e.buf = append(e.buf, 0, 0, 0, 0)
}

// decoder reads little-endian fields from a payload. Reading past the end
// yields zero values; phones routinely send shortened legacy bodies.
type decoder struct {
	buf []byte
	off int
}

func (d *decoder) take(n int) []byte {
	if d.off >= len(d.buf) {
		d.off += n
		return nil
	}
	end := d.off + n
	if end > len(d.buf) {
		end = len(d.buf)
	}
	b := d.buf[d.off:end]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if len(b) < 1 {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if len(b) < 2 {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if len(b) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) str(n int) string {
	b := d.take(n)
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (d *decoder) raw(n int) []byte {
	b := d.take(n)
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (d *decoder) addr() netip.Addr {
	b := d.take(4)
	if len(b) < 4 {
		return netip.Addr{}
	}
	a := netip.AddrFrom4([4]byte{b[0], b[1], b[2], b[3]})
	if a.IsUnspecified() {
		return netip.Addr{}
	}
	return a
}

// remaining reports whether unread bytes are left.
func (d *decoder) remaining() int {
	if d.off >= len(d.buf) {
		return 0
	}
	return len(d.buf) - d.off
}
