// Command kernel boots the simulated core and runs a handful of demo
// threads through the scheduler, reporting selection counts per
// discipline. It exists to exercise the core end-to-end outside of the
// test suite; the ELF loader, trap dispatcher, and timer-interrupt
// source it would need in a real boot are external collaborators this
// demo stands in for directly.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/tinyrange/kernelcore/internal/bootcfg"
	"github.com/tinyrange/kernelcore/internal/kernel"
	"github.com/tinyrange/kernelcore/internal/mm"
)

func run() error {
	configPath := flag.String("config", "", "path to a boot configuration YAML file (default: built-in FIFO config)")
	threadCount := flag.Int("threads", 4, "number of demo threads to spawn")
	ticks := flag.Int("ticks", 200, "number of scheduler ticks to simulate")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `kernel - boot the simulated kernel core and run demo threads

USAGE:
  kernel [flags]

FLAGS:
  -config PATH    Boot configuration YAML (discipline, frame_count, programs)
  -threads N      Number of demo threads to spawn (default 4)
  -ticks N        Number of scheduler ticks to run (default 200)
`)
	}
	flag.Parse()

	var cfg bootcfg.Config
	if *configPath != "" {
		loaded, err := bootcfg.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = bootcfg.Default()
	}

	disciplineName, ok := cfg.DisciplineName()
	if !ok {
		slog.Warn("unrecognized discipline in boot config, falling back to fifo", "configured", cfg.Discipline)
	}
	slog.Info("booting kernel core", "discipline", disciplineName, "frame_count", cfg.FrameCount, "threads", *threadCount)

	mem := mm.NewPhysicalMemory(cfg.FrameCount)
	alloc := mm.NewFrameAllocator(mem)
	baseVPN := mm.VirtAddr(0x8000_0000).Floor()

	proc := kernel.NewProcess(mm.NewAddressSpace(mem, alloc, baseVPN))
	k := kernel.New(proc, disciplineName, kernel.SystemClock{})

	for i := 0; i < *threadCount; i++ {
		t := proc.SpawnThread()
		t.Priority = i%3 + 1
		k.Add(t)
	}
	k.RunFirstTask()

	bar := progressbar.Default(int64(*ticks), "scheduling")
	selections := map[int]int{}
	for i := 0; i < *ticks; i++ {
		if cur := k.Current(); cur != nil {
			selections[cur.ID]++
		}
		if _, next := k.SuspendCurrentAndRunNext(); next == nil {
			slog.Info("all applications completed")
			break
		}
		_ = bar.Add(1)
	}

	for tid, count := range selections {
		slog.Info("thread selection count", "tid", tid, "count", count)
	}
	return nil
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	if err := run(); err != nil {
		slog.Error("kernel demo failed", "error", err)
		os.Exit(1)
	}
}
