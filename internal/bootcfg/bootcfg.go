// Package bootcfg loads the boot-time configuration that selects which
// scheduling discipline a kernel boots with and how much physical memory
// it simulates — the one piece of configuration this core exposes
// outward; ELF loading and trap wiring are external collaborators.
package bootcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinyrange/kernelcore/internal/sched"
)

// Config is the boot-time configuration loaded from a YAML file.
type Config struct {
	// Discipline names the ready-queue policy to boot with: "fifo",
	// "stride", or "mlfq".
	Discipline string `yaml:"discipline"`
	// FrameCount is the number of 4 KiB physical frames the simulated
	// machine is given.
	FrameCount int `yaml:"frame_count"`
	// Programs lists demo user program names. It is parsed but nothing in
	// this module loads or reads it — ELF loading is an external
	// collaborator.
	Programs []string `yaml:"programs"`
}

// Default returns the configuration used when no boot file is given.
func Default() Config {
	return Config{
		Discipline: string(sched.NameFIFO),
		FrameCount: 1024,
	}
}

// Load reads and parses a boot configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("bootcfg: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("bootcfg: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DisciplineName validates and returns the configured discipline name,
// falling back to FIFO (and reporting ok=false) if the value is not one
// of the three the kernel supports.
func (c Config) DisciplineName() (name sched.Name, ok bool) {
	switch sched.Name(c.Discipline) {
	case sched.NameFIFO, sched.NameStride, sched.NameMLFQ:
		return sched.Name(c.Discipline), true
	default:
		return sched.NameFIFO, false
	}
}
