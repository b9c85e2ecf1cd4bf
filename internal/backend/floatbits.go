package backend

import "math"

func math32bits(f float32) uint32 {
	return math.Float32bits(f)
}
