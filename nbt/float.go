package nbt

import "math"

func mathFloat32(bits int32) float32  { return math.Float32frombits(uint32(bits)) }
func mathFloat64(bits int64) float64  { return math.Float64frombits(uint64(bits)) }
func floatBits32(v float32) int32     { return int32(math.Float32bits(v)) }
func floatBits64(v float64) int64     { return int64(math.Float64bits(v)) }
