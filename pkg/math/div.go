// Package math holds integer helpers for block and inode arithmetic.
package math

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// DivRoundUp returns `a/b` rounded up: the number of `b`-sized units that
// hold `a` items.
func DivRoundUp[T Integer](a, b T) T {
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}
