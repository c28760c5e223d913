// Command onewire-temp reads temperature sensors named in a YAML inventory
// (as written by cmd/onewire-scan) on a fixed interval until interrupted.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mcsakoff/go-onewire-uart/devices/dstemp"
	"github.com/mcsakoff/go-onewire-uart/onewire"
	"github.com/mcsakoff/go-onewire-uart/transport/uartserial"
)

// inventory mirrors cmd/onewire-scan's Inventory shape.
type inventory struct {
	Device string   `yaml:"device"`
	ROMs   []string `yaml:"roms"`
}

func main() {
	inventoryPath := pflag.StringP("inventory", "i", "onewire-inventory.yaml", "YAML inventory written by onewire-scan")
	deviceOverride := pflag.StringP("device", "d", "", "serial device override (defaults to the inventory's recorded device)")
	interval := pflag.DurationP("interval", "n", 10*time.Second, "how often to read every sensor")
	pflag.Parse()

	inv, err := loadInventory(*inventoryPath)
	if err != nil {
		log.Fatalf("load inventory: %v", err)
	}
	device := inv.Device
	if *deviceOverride != "" {
		device = *deviceOverride
	}

	tr := uartserial.New(device)
	h, err := onewire.Open(tr)
	if err != nil {
		log.Fatalf("open %s: %v", device, err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Printf("close %s: %v", device, err)
		}
	}()

	sensors := make([]*dstemp.Sensor, 0, len(inv.ROMs))
	for _, s := range inv.ROMs {
		rom, err := onewire.ParseROMAddress(s)
		if err != nil {
			log.Fatalf("inventory entry %q: %v", s, err)
		}
		sensor, err := dstemp.New(h, rom, true)
		if err != nil {
			log.Fatalf("sensor %s: %v", rom, err)
		}
		log.Printf("attached %s %s (parasitic=%t, resolution=%s)",
			sensor.Name(), sensor.ROM(), sensor.ParasiticPower(), sensor.Precision())
		sensors = append(sensors, sensor)
	}

	ctx, stop := context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Printf("got signal %s, shutting down", sig)
		stop()
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	readAll(sensors)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			readAll(sensors)
		}
	}
}

func readAll(sensors []*dstemp.Sensor) {
	for _, sensor := range sensors {
		temp, err := sensor.ReadTemperatureC()
		if err != nil {
			log.Printf("%s: read failed: %v", sensor.ROM(), err)
			continue
		}
		log.Printf("%s: %.3f°C", sensor.ROM(), temp)
	}
}

func loadInventory(path string) (*inventory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var inv inventory
	if err := yaml.NewDecoder(f).Decode(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}
