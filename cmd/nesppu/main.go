// Package main implements the nesppu executable: it loads an NROM cartridge,
// runs a Lua register program against the picture processor and presents
// the frames in a window, a terminal or as PNG dumps.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"

	"nesppu/internal/app"
	"nesppu/internal/version"
)

func main() {
	var (
		romFile    = flag.String("rom", "", "Path to NES ROM file (iNES, mapper 0)")
		scriptFile = flag.String("script", "", "Lua register program driving the chip")
		configFile = flag.String("config", "", "Path to configuration file")
		backend    = flag.String("backend", "", "Renderer: ebitengine, headless or terminal")
		standard   = flag.String("standard", "", "Video timing: NTSC or PAL")
		frames     = flag.Uint64("frames", 0, "Stop after this many frames (0 runs until closed)")
		dumpDir    = flag.String("dump-dir", "", "Write frames as PNG files to this directory (headless)")
		dumpEvery  = flag.Int("dump-every", 0, "Dump every Nth frame")
		stateGraph = flag.String("state-graph", "", "Write a Graphviz graph of the chip state on exit")
		stateDump  = flag.String("state-dump", "", "Write a JSON record of the chip state on exit")
		stats      = flag.Bool("statsview", false, "Serve runtime statistics over HTTP")
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()
	defer glog.Flush()

	if *help {
		printUsage()
		return
	}
	if *showVer {
		version.PrintBuildInfo()
		return
	}
	if *romFile == "" {
		fmt.Fprintln(os.Stderr, "nesppu: -rom is required")
		printUsage()
		os.Exit(2)
	}

	configPath := *configFile
	if configPath == "" {
		configPath = app.GetDefaultConfigPath()
	}
	config, err := app.LoadConfig(configPath)
	if err != nil {
		glog.Warningf("could not load config from %s, using defaults: %v", configPath, err)
		config = app.NewConfig()
	}

	// Flags given on the command line override the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "script":
			config.Script.Path = *scriptFile
		case "backend":
			config.Video.Backend = *backend
		case "standard":
			config.Video.Standard = *standard
		case "dump-dir":
			config.Video.DumpDir = *dumpDir
		case "dump-every":
			config.Video.DumpEvery = *dumpEvery
		case "state-graph":
			config.Debug.StateGraph = *stateGraph
		case "state-dump":
			config.Debug.StateDump = *stateDump
		case "statsview":
			config.Debug.Statsview = *stats
		}
	})

	if err := run(config, *romFile, *frames); err != nil {
		glog.Errorf("%v", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(config *app.Config, romFile string, frames uint64) (err error) {
	application, err := app.NewApplication(config)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := application.Cleanup(); cerr != nil && err == nil {
			err = fmt.Errorf("cleanup: %w", cerr)
		}
	}()

	stopOnSignal(application)

	if err := application.LoadROM(romFile); err != nil {
		return err
	}
	application.SetFrameLimit(frames)

	if err := application.Run(); err != nil {
		return err
	}

	e := application.GetEmulator()
	transfers, stalled := e.Bus().DMAStats()
	glog.Infof("%d frames, %d CPU cycles, %d sprite transfers (%d stalled cycles), %.1f fps",
		e.GetFrameCount(), e.GetCycleCount(), transfers, stalled, application.GetFPS())
	return nil
}

// stopOnSignal ends the run loop on interrupt so debug outputs are written
func stopOnSignal(application *app.Application) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		glog.Info("interrupt received, stopping")
		application.Stop()
	}()
}

func printUsage() {
	fmt.Println("nesppu - cycle-stepped NES picture processor")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  nesppu -rom <file> [-script <program.lua>] [options]")
	fmt.Println()
	fmt.Println("OPTIONS:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  nesppu -rom game.nes -script title.lua")
	fmt.Println("  nesppu -rom game.nes -script title.lua -backend headless -frames 120 -dump-dir frames")
	fmt.Println("  nesppu -rom game.nes -script title.lua -backend terminal -standard PAL")
	fmt.Println()
	fmt.Println("KEYS (ebitengine):")
	fmt.Println("  Escape  quit")
	fmt.Println("  Space   pause")
	fmt.Println("  F12     copy the frame to the clipboard")
	fmt.Println()
	fmt.Printf("CONFIGURATION:\n  Config file: %s\n", app.GetDefaultConfigPath())
}
