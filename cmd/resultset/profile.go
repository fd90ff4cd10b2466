package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ajitpratap0/resultset/pkg/logger"
)

// profiler writes pprof profiles around one command run.
type profiler struct {
	cpuFile string
	memFile string
	cpu     *os.File
}

func (p *profiler) addFlags(flags *pflag.FlagSet) {
	flags.StringVar(&p.cpuFile, "cpuprofile", "", "Write a CPU profile to file")
	flags.StringVar(&p.memFile, "memprofile", "", "Write a heap profile to file on exit")
}

func (p *profiler) start() error {
	if p.cpuFile == "" {
		return nil
	}
	f, err := os.Create(p.cpuFile)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to start CPU profile: %w", err)
	}
	p.cpu = f
	logger.Debug("CPU profiling enabled", zap.String("file", p.cpuFile))
	return nil
}

func (p *profiler) stop() error {
	var errs []error
	if p.cpu != nil {
		pprof.StopCPUProfile()
		errs = append(errs, p.cpu.Close())
		p.cpu = nil
	}
	if p.memFile != "" {
		errs = append(errs, writeHeapProfile(p.memFile))
	}
	return errors.Join(errs...)
}

func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create memory profile: %w", err)
	}
	defer f.Close()

	runtime.GC() // up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}
	logger.Debug("memory profile written", zap.String("file", path))
	return nil
}
