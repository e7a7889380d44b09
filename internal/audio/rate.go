package audio

import (
	"io"
	"math"
	"sync/atomic"
)

// rateReader streams 16-bit little-endian mono PCM from src, linearly
// resampled by the current playback rate. The rate is read on every Read
// call, so changing it mid-clip affects the remaining audio immediately.
type rateReader struct {
	src    []byte
	srcPos float64 // fractional sample position into src
	rate   *atomic.Uint64
}

func newRateReader(src []byte, rate *atomic.Uint64) *rateReader {
	return &rateReader{src: src, rate: rate}
}

// sampleAt returns the n-th 16-bit sample of src.
func (r *rateReader) sampleAt(n int) int16 {
	return int16(uint16(r.src[2*n]) | uint16(r.src[2*n+1])<<8)
}

func (r *rateReader) Read(p []byte) (int, error) {
	total := len(r.src) / 2
	if total < 2 {
		return 0, io.EOF
	}

	rate := math.Float64frombits(r.rate.Load())
	if rate <= 0 {
		rate = 1.0
	}

	n := 0
	for n+1 < len(p) {
		i := int(r.srcPos)
		if i >= total-1 {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}

		frac := r.srcPos - float64(i)
		a := float64(r.sampleAt(i))
		b := float64(r.sampleAt(i + 1))
		s := int16(a + (b-a)*frac)

		p[n] = byte(uint16(s))
		p[n+1] = byte(uint16(s) >> 8)
		n += 2
		r.srcPos += rate
	}
	return n, nil
}

// storeRate packs a float64 rate into the shared atomic slot.
func storeRate(slot *atomic.Uint64, rate float64) {
	slot.Store(math.Float64bits(rate))
}

// loadRate unpacks the shared atomic slot.
func loadRate(slot *atomic.Uint64) float64 {
	return math.Float64frombits(slot.Load())
}
