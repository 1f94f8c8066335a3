package attendance

import "math/bits"

// vector is a slice of a yearly bitmap as stored by SETBIT: bit i lives in byte i/8,
// most significant bit first. base is the index of the first bit held in buf.
type vector struct {
	buf  []byte
	base int
}

func (v vector) test(i int) bool {
	i -= v.base
	if i < 0 {
		return false
	}
	b := i / 8
	if b >= len(v.buf) {
		return false
	}
	return v.buf[b]&(0x80>>uint(i%8)) != 0
}

// count returns the number of set bits in [from, to], both inclusive.
func (v vector) count(from, to int) int {
	n := 0
	for i := from; i <= to; {
		if (i-v.base)%8 == 0 && i+7 <= to {
			b := (i - v.base) / 8
			if b >= 0 && b < len(v.buf) {
				n += bits.OnesCount8(v.buf[b])
			}
			i += 8
			continue
		}
		if v.test(i) {
			n++
		}
		i++
	}
	return n
}

// longestRun returns the longest run of set bits in [from, to].
func (v vector) longestRun(from, to int) int {
	best, run := 0, 0
	for i := from; i <= to; i++ {
		if v.test(i) {
			run++
			if run > best {
				best = run
			}
			continue
		}
		run = 0
	}
	return best
}
