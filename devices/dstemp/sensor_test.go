package dstemp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcTemperatureDS18B20Family(t *testing.T) {
	s := &Sensor{familyCode: FamilyDS18B20}
	cases := []struct {
		lo, hi byte
		milliC int
	}{
		{0xd0, 0x07, 125000},  // 125.0
		{0x50, 0x05, 85000},   //  85.0
		{0x91, 0x01, 25062},   //  25.0625 (integer-truncated)
		{0xa2, 0x00, 10125},   //  10.125
		{0x08, 0x00, 500},     //   0.5
		{0x00, 0x00, 0},       //   0.0
		{0xf8, 0xff, -500},    //  -0.5
		{0x5e, 0xff, -10125},  // -10.125
		{0x6f, 0xfe, -25062},  // -25.0625 (integer-truncated)
		{0x90, 0xfc, -55000},  // -55.0
	}
	sp := [9]byte{}
	for _, tc := range cases {
		sp[0], sp[1] = tc.lo, tc.hi
		assert.Equal(t, tc.milliC, s.calcTemperatureMilliC(sp[:]))
	}
}

func TestCalcTemperatureDS18S20Family(t *testing.T) {
	s := &Sensor{familyCode: FamilyDS18S20, resolution: Resolution9Bits}
	cases := []struct {
		lo, hi byte
		milliC int
	}{
		{0xaa, 0x00, 85000},  //  85.0
		{0x32, 0x00, 25000},  //  25.0
		{0x01, 0x00, 500},    //   0.5
		{0x00, 0x00, 0},      //   0.0
		{0xff, 0xff, -500},   //  -0.5
		{0xce, 0xff, -25000}, // -25.0
		{0x92, 0xff, -55000}, // -55.0
	}
	sp := [9]byte{0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0x0C, 0x10, 0x00}
	for _, tc := range cases {
		sp[0], sp[1] = tc.lo, tc.hi
		assert.Equal(t, tc.milliC, s.calcTemperatureMilliC(sp[:]))
	}
}

func TestCalcTemperatureDS18S20ExtendedResolution(t *testing.T) {
	// Extended-resolution correction uses the remaining-count registers
	// (scratchpad bytes 6 and 7) instead of the raw 9-bit count alone.
	s := &Sensor{familyCode: FamilyDS18S20, resolution: ResolutionExtended}
	sp := []byte{0xaa, 0x00, 0x00, 0x00, 0xff, 0xff, 0x0C, 0x10, 0x00}
	got := s.calcTemperatureMilliC(sp)
	assert.InDelta(t, 85000, got, 1000)
}
