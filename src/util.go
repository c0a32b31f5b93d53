package vanbus

import (
	"fmt"
	"time"
)

func SLEEP_MS(ms int) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Because sometimes it's really convenient to have C's ternary ?:
func IfThenElse[T any](x bool, a T, b T) T { //nolint:ireturn
	if x {
		return a
	} else {
		return b
	}
}

// Assert panics on a broken invariant.  Never used on the hot path.
func Assert(cond bool, args ...any) {
	if !cond {
		panic(fmt.Sprint(append([]any{"assertion failed"}, args...)...))
	}
}
