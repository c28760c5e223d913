// Package dstemp drives the DS18S20/DS1822/DS18B20 family of Dallas/Maxim
// temperature sensors over a onewire.Handle. It is not part of the bus
// master's core (the core knows nothing about device families); it is the
// first, and reference, consumer of the core's exported API.
package dstemp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/mcsakoff/go-onewire-uart/onewire"
)

// Family codes, byte 0 of the ROM address.
const (
	FamilyDS18S20 byte = 0x10
	FamilyDS1822  byte = 0x22
	FamilyDS18B20 byte = 0x28
)

// DS18B20/DS1822 scratchpad configuration-register resolution bits.
const (
	Resolution9Bits  byte = 0x0
	Resolution10Bits byte = 0x1
	Resolution11Bits byte = 0x2
	Resolution12Bits byte = 0x3
)

// DS18S20 has only one true resolution; ResolutionExtended approximates a
// finer reading from the remaining-count registers (see calcTemperatureMilliC).
const ResolutionExtended byte = 0x1

const (
	cmdConvertT        byte = 0x44
	cmdReadPowerSupply byte = 0xB4
	cmdReadScratchpad  byte = 0xBE
	cmdWriteScratchpad byte = 0x4E
	cmdCopyScratchpad  byte = 0x48
	cmdRecallEE        byte = 0xB8
)

// Sensor is one temperature sensor addressed either by a known ROM (multi-
// device bus) or, when rom is the zero value, via SkipROM (exactly one
// sensor on the bus).
type Sensor struct {
	h    *onewire.Handle
	rom  onewire.ROMAddress
	solo bool

	familyCode    byte
	parasitic     bool
	resolution    byte
	description   string
	precision     string
	convertDelay  time.Duration
	eepromDelay   time.Duration
}

// New creates a Sensor on h. If rom is the zero ROMAddress, the sensor
// addresses the bus with SkipROM and assumes it is the only device present
// (read its ROM back afterwards with ROM() if needed). If required is true
// and the sensor cannot be reached during setup, New returns an error.
func New(h *onewire.Handle, rom onewire.ROMAddress, required bool) (*Sensor, error) {
	s := &Sensor{
		h:            h,
		rom:          rom,
		solo:         rom == onewire.ROMAddress{},
		resolution:   Resolution9Bits,
		convertDelay: 750 * time.Millisecond,
		eepromDelay:  10 * time.Millisecond,
	}

	t := h.Begin()
	defer t.End()

	if s.solo {
		found, err := t.ReadROM()
		if err != nil {
			if required {
				return nil, fmt.Errorf("dstemp: read sole sensor's rom: %w", err)
			}
		} else {
			s.rom = found
		}
	} else {
		if err := t.MatchROM(s.rom); err != nil {
			if required {
				return nil, fmt.Errorf("dstemp: sensor %s not responding: %w", s.rom, err)
			}
		}
	}

	parasitic, err := s.readPowerSupplyLocked(t)
	if err != nil {
		return nil, err
	}
	s.parasitic = parasitic
	s.familyCode = s.rom.FamilyCode()

	switch s.familyCode {
	case FamilyDS18S20:
		s.description = "DS18S20 - High-Precision Digital Thermometer"
	case FamilyDS1822:
		s.description = "DS1822 - Econo Digital Thermometer"
	case FamilyDS18B20:
		s.description = "DS18B20 - Programmable Resolution Digital Thermometer"
	default:
		s.description = "unidentified 1-Wire temperature sensor"
	}

	switch s.familyCode {
	case FamilyDS18S20:
		s.precision = "9 bits"
	case FamilyDS1822, FamilyDS18B20:
		sp, err := s.readScratchpadLocked(t)
		if err != nil {
			return nil, err
		}
		s.resolution = (sp[4] >> 5) & 0b11
		s.convertDelay = time.Millisecond * (750 / (8 >> s.resolution))
		s.precision = fmt.Sprintf("%d bits", 9+s.resolution)
	default:
		s.precision = "unknown"
	}
	return s, nil
}

// ROM returns the sensor's address, valid once New has resolved it.
func (s *Sensor) ROM() onewire.ROMAddress { return s.rom }

// FamilyCode returns the device family byte.
func (s *Sensor) FamilyCode() byte { return s.familyCode }

// Name returns a human-readable device family description.
func (s *Sensor) Name() string { return s.description }

// Precision returns a human-readable resolution description.
func (s *Sensor) Precision() string { return s.precision }

// ParasiticPower reports whether the sensor is operating in parasitic-power
// mode, as detected during New. This package only reports the mode; it
// never switches a sensor in or out of it.
func (s *Sensor) ParasiticPower() bool { return s.parasitic }

// ReadTemperatureMilliC triggers a conversion and returns the result in
// thousandths of a degree Celsius (e.g. 23456 == 23.456°C).
func (s *Sensor) ReadTemperatureMilliC() (int, error) {
	t := s.h.Begin()
	defer t.End()

	if err := s.selectLocked(t); err != nil {
		return 0, err
	}
	if err := t.WriteByte(cmdConvertT); err != nil {
		return 0, err
	}
	if err := s.waitLocked(t, s.convertDelay); err != nil {
		return 0, err
	}
	sp, err := s.readScratchpadLocked(t)
	if err != nil {
		return 0, err
	}
	return s.calcTemperatureMilliC(sp), nil
}

// ReadTemperatureC is ReadTemperatureMilliC expressed as a float.
func (s *Sensor) ReadTemperatureC() (float32, error) {
	milli, err := s.ReadTemperatureMilliC()
	if err != nil {
		return 0, err
	}
	return float32(milli) / 1000.0, nil
}

// Alarms returns the sensor's high/low alarm trip points as stored in the
// scratchpad.
func (s *Sensor) Alarms() (high, low int8, err error) {
	t := s.h.Begin()
	defer t.End()
	sp, err := s.readScratchpadLocked(t)
	if err != nil {
		return 0, 0, err
	}
	return int8(sp[2]), int8(sp[3]), nil
}

// SetAlarms writes new high/low alarm trip points.
func (s *Sensor) SetAlarms(high, low int8) error {
	t := s.h.Begin()
	defer t.End()

	sp, err := s.readScratchpadLocked(t)
	if err != nil {
		return err
	}
	data := []byte{byte(high), byte(low)}
	if s.familyCode == FamilyDS1822 || s.familyCode == FamilyDS18B20 {
		data = append(data, sp[4])
	}
	return s.writeScratchpadLocked(t, data)
}

// Resolution returns the sensor's current conversion resolution setting.
func (s *Sensor) Resolution() byte { return s.resolution }

// SetResolution changes the conversion resolution (DS1822/DS18B20 only;
// DS18S20 always converts at its native precision, so this only toggles
// ResolutionExtended bookkeeping for it).
func (s *Sensor) SetResolution(resolution byte) error {
	switch s.familyCode {
	case FamilyDS18S20:
		s.resolution = resolution
		if resolution == Resolution9Bits {
			s.precision = "9 bits"
		} else {
			s.precision = "extended"
		}
		return nil
	case FamilyDS1822, FamilyDS18B20:
		t := s.h.Begin()
		defer t.End()

		sp, err := s.readScratchpadLocked(t)
		if err != nil {
			return err
		}
		s.resolution = resolution & 0b11
		data := []byte{sp[2], sp[3], (s.resolution << 5) | 0b00011111}
		if err := s.writeScratchpadLocked(t, data); err != nil {
			return err
		}
		s.convertDelay = time.Millisecond * (750 / (8 >> s.resolution))
		s.precision = fmt.Sprintf("%d bits", 9+s.resolution)
		return nil
	}
	return fmt.Errorf("dstemp: resolution not settable on family 0x%02x", s.familyCode)
}

// SaveEEPROM copies the scratchpad's alarm/config bytes into EEPROM so they
// survive a power cycle.
func (s *Sensor) SaveEEPROM() error {
	t := s.h.Begin()
	defer t.End()
	if err := s.selectLocked(t); err != nil {
		return err
	}
	if err := t.WriteByte(cmdCopyScratchpad); err != nil {
		return err
	}
	return s.waitLocked(t, s.eepromDelay)
}

// LoadEEPROM recalls the saved alarm/config bytes from EEPROM back into the
// scratchpad. A no-op in parasitic mode, matching the DS18B20 datasheet:
// RECALL E2 runs automatically at power-up there.
func (s *Sensor) LoadEEPROM() error {
	if s.parasitic {
		return nil
	}
	t := s.h.Begin()
	defer t.End()
	if err := s.selectLocked(t); err != nil {
		return err
	}
	if err := t.WriteByte(cmdRecallEE); err != nil {
		return err
	}
	return s.waitLocked(t, s.convertDelay)
}

func (s *Sensor) readPowerSupplyLocked(t *onewire.Txn) (bool, error) {
	if err := s.selectLocked(t); err != nil {
		return false, err
	}
	if err := t.WriteByte(cmdReadPowerSupply); err != nil {
		return false, err
	}
	bit, err := t.ReadBit()
	if err != nil {
		return false, err
	}
	return bit == 0, nil
}

func (s *Sensor) readScratchpadLocked(t *onewire.Txn) ([]byte, error) {
	if err := s.selectLocked(t); err != nil {
		return nil, err
	}
	if err := t.WriteByte(cmdReadScratchpad); err != nil {
		return nil, err
	}
	data := make([]byte, 9)
	if err := t.ReadBytes(data); err != nil {
		return nil, err
	}
	scratchpad, crc := data[:8], data[8]
	if onewire.CRC8(scratchpad) != crc {
		return nil, errors.New("dstemp: scratchpad crc mismatch")
	}
	return scratchpad, nil
}

// writeScratchpadLocked writes data (2 or 3 bytes: TH, TL, [config]). All
// bytes must be written before the next reset, per the datasheet.
func (s *Sensor) writeScratchpadLocked(t *onewire.Txn, data []byte) error {
	if err := s.selectLocked(t); err != nil {
		return err
	}
	if err := t.WriteByte(cmdWriteScratchpad); err != nil {
		return err
	}
	return t.WriteBytes(data)
}

// selectLocked issues a reset and addresses this sensor: SkipROM if it's
// the bus's sole device, MatchROM otherwise.
func (s *Sensor) selectLocked(t *onewire.Txn) error {
	if s.solo {
		return t.SkipROM()
	}
	return t.MatchROM(s.rom)
}

// waitLocked blocks until the sensor finishes the in-progress operation, or
// until duration elapses, whichever the sensor's power mode calls for. In
// parasitic mode the sensor cannot signal completion on the bus (it has no
// spare current to hold the line), so this just sleeps; otherwise it polls
// read-time-slots until the sensor releases the line high.
func (s *Sensor) waitLocked(t *onewire.Txn, duration time.Duration) error {
	if s.parasitic {
		time.Sleep(duration)
		return nil
	}
	deadline := time.Now().Add(duration)
	for {
		bit, err := t.ReadBit()
		if err != nil {
			return err
		}
		if bit != 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return nil
		}
	}
}

// calcTemperatureMilliC converts a 9-byte scratchpad's first two bytes (a
// little-endian signed count) into milli-degrees Celsius, using the
// family-specific formula from the datasheet.
func (s *Sensor) calcTemperatureMilliC(scratchpad []byte) int {
	var raw int16
	_ = binary.Read(bytes.NewReader(scratchpad), binary.LittleEndian, &raw)

	switch s.familyCode {
	case FamilyDS18S20:
		temp := int(raw) * 500
		if s.resolution > Resolution9Bits {
			countRemain := int(scratchpad[6])
			countPerC := int(scratchpad[7])
			temp = temp - 250 + 1000*(countPerC-countRemain)/countPerC
		}
		return temp
	case FamilyDS1822, FamilyDS18B20:
		return int(raw) * 1000 / 16
	default:
		return int(raw) * 1000 / 16
	}
}
