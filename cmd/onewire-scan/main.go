// Command onewire-scan enumerates every device on a 1-Wire bus and writes a
// YAML inventory of their ROM addresses, for onewire-temp (or any other
// tool) to load instead of re-running a search on every startup.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mcsakoff/go-onewire-uart/onewire"
	"github.com/mcsakoff/go-onewire-uart/transport/uartserial"
)

// Inventory is the on-disk YAML shape shared with cmd/onewire-temp.
type Inventory struct {
	Device string   `yaml:"device"`
	ROMs   []string `yaml:"roms"`
}

func main() {
	device := pflag.StringP("device", "d", "/dev/ttyUSB0", "serial device the 1-Wire adapter is attached to")
	output := pflag.StringP("output", "o", "onewire-inventory.yaml", "path to write the YAML inventory to")
	alarmOnly := pflag.Bool("alarm", false, "enumerate only devices with their alarm flag set")
	pflag.Parse()

	tr := uartserial.New(*device)
	h, err := onewire.Open(tr)
	if err != nil {
		log.Fatalf("open %s: %v", *device, err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Printf("close %s: %v", *device, err)
		}
	}()

	command := onewire.CmdSearchROM
	if *alarmOnly {
		command = onewire.CmdAlarmSearch
	}

	inv := Inventory{Device: *device}
	count, err := h.SearchEach(command, func(_ *onewire.Handle, rom onewire.ROMAddress, index int) error {
		if index == -1 {
			return nil
		}
		log.Printf("%2d: %s (family 0x%02x)", index, rom, rom.FamilyCode())
		inv.ROMs = append(inv.ROMs, rom.String())
		return nil
	})
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	log.Printf("found %d device(s)", count)

	f, err := os.Create(*output)
	if err != nil {
		log.Fatalf("create %s: %v", *output, err)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(inv); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}
	if err := enc.Close(); err != nil {
		log.Fatalf("flush %s: %v", *output, err)
	}
	fmt.Printf("wrote %d device(s) to %s\n", count, *output)
}
