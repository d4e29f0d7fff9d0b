package step

import (
	"math"
	"reflect"
	"strconv"
	"time"
)

// Upper bounds for step arguments. Anything beyond these is a typo in a
// mission script rather than an intent.
const (
	// MaxDuration bounds waits, timeouts and drive durations.
	MaxDuration = 10 * time.Minute

	// MaxIterations bounds LoopFor.
	MaxIterations = 100_000

	// MaxSpeed bounds linear speeds in metres per second.
	MaxSpeed = 5.0

	// MaxAngularSpeed bounds turn rates in radians per second.
	MaxAngularSpeed = 4 * math.Pi
)

// Validate checks a mission tree before it runs.
// It rejects nil steps and the same step instance appearing twice, since a
// step's handoff state belongs to exactly one position in the tree.
func Validate(root Step) error {
	seen := make(map[Step]string)
	return validate(root, "root", seen)
}

func validate(s Step, path string, seen map[Step]string) error {
	if isNil(s) {
		return invalid("%s: nil step", path)
	}

	if reflect.ValueOf(s).Kind() == reflect.Pointer {
		if prev, ok := seen[s]; ok {
			return invalid("%s: step %q already used at %s", path, NameOf(s), prev)
		}
		seen[s] = path
	}

	c, ok := s.(Composite)
	if !ok {
		return nil
	}
	for i, child := range c.Children() {
		childPath := path + "/" + KindOf(s) + "[" + strconv.Itoa(i) + "]"
		if err := validate(child, childPath, seen); err != nil {
			return err
		}
	}
	return nil
}

func isNil(s Step) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface:
		return v.IsNil()
	}
	return false
}

func validDuration(kind, what string, d time.Duration, allowZero bool) error {
	if d < 0 || (!allowZero && d == 0) || d > MaxDuration {
		return invalid("%s: %s %v out of range", kind, what, d)
	}
	return nil
}

func validSpeed(kind string, v, limit float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 || v > limit {
		return invalid("%s: speed %v not in (0, %v]", kind, v, limit)
	}
	return nil
}
