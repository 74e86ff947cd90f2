package main

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/rdelta-io/rdelta/pkg/rdelta"
)

// strongLenFlag is a pflag.Value for strong sum lengths, accepting "max",
// "min", or an explicit byte count.
type strongLenFlag struct {
	value rdelta.StrongLen
}

// String implements pflag.Value.String.
func (f *strongLenFlag) String() string {
	switch f.value {
	case rdelta.StrongLenMax:
		return "max"
	case rdelta.StrongLenMin:
		return "min"
	default:
		return strconv.Itoa(int(f.value))
	}
}

// Set implements pflag.Value.Set.
func (f *strongLenFlag) Set(value string) error {
	switch value {
	case "max":
		f.value = rdelta.StrongLenMax
	case "min":
		f.value = rdelta.StrongLenMin
	default:
		parsed, err := strconv.ParseUint(value, 10, 8)
		if err != nil || parsed == 0 || parsed > rdelta.MaxStrongLength {
			return errors.Errorf("strong sum length must be \"max\", \"min\", or 1-%d", rdelta.MaxStrongLength)
		}
		f.value = rdelta.StrongLen(parsed)
	}
	return nil
}

// Type implements pflag.Value.Type.
func (f *strongLenFlag) Type() string {
	return "length"
}

var _ pflag.Value = &strongLenFlag{}
