// Command pal-sim runs a JSON board description on the simulated PIC18 and
// prints every handler call.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"picmcal/config"
	"picmcal/core"
	"picmcal/host/simrun"
	"picmcal/targets/linuxgpio"
)

var (
	boardFile = flag.String("config", "", "Board description (JSON)")
	traceOut  = flag.String("trace-out", "", "Write the UART trace stream to this file")
	gpioChip  = flag.String("gpio-chip", "gpiochip0", "GPIO chip for -gpio-map")
	gpioMap   = flag.String("gpio-map", "", "Host lines driving board pins, e.g. 17:rb4:low,27:int0")
	realtime  = flag.Bool("realtime", false, "Pace the simulation to wall-clock time")
	dump      = flag.Bool("dump", false, "Dump the trace ring on exit")
	debug     = flag.Bool("debug", false, "Print core diagnostics")
	quiet     = flag.Bool("quiet", false, "Do not print events")
)

func main() {
	flag.Parse()

	if *boardFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -config is required")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*boardFile)
	if err != nil {
		return fmt.Errorf("load %s: %w", *boardFile, err)
	}

	core.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
	core.SetDebugEnabled(*debug)

	s, err := simrun.New(cfg)
	if err != nil {
		return err
	}
	if !*quiet {
		s.OnEvent = func(evt simrun.Event) { fmt.Println(evt) }
	}

	if *traceOut != "" {
		f, err := os.Create(*traceOut)
		if err != nil {
			return err
		}
		defer f.Close()
		s.TraceOut = f
	}

	var polls []func() error
	if *gpioMap != "" {
		mappings, err := linuxgpio.ParseMappings(*gpioMap)
		if err != nil {
			return err
		}
		reader, err := linuxgpio.NewChipReader(*gpioChip, linuxgpio.Lines(mappings))
		if err != nil {
			return err
		}
		bridge := linuxgpio.NewBridge(reader, s.Board, mappings)
		defer bridge.Close()
		polls = append(polls, func() error {
			_, err := bridge.Poll()
			return err
		})
	}
	if *realtime {
		start := time.Now()
		polls = append(polls, func() error {
			if ahead := s.Board.Elapsed() - time.Since(start); ahead > 0 {
				time.Sleep(ahead)
			}
			return nil
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprintf(os.Stderr, "Simulating %d ms at %d Hz...\n", cfg.DurationMs, cfg.ClockHz)
	err = s.Run(ctx, func() error {
		for _, p := range polls {
			if err := p(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		return err
	}

	d := s.MCU.Dispatcher()
	fmt.Fprintf(os.Stderr, "%v simulated, %d events, %d dispatch passes, %d dropped\n",
		s.Board.Elapsed(), len(s.Events()), d.Passes(), d.Dropped())
	if *dump {
		s.MCU.Trace().Dump()
	}
	return nil
}
