package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"meru/emu/log"
)

type mode byte

const (
	runMode      mode = iota // Run a ROM
	romInfosMode             // Show ROM infos
	versionMode              // Show meru version
)

type (
	CLI struct {
		Run      Run      `cmd:"" help:"Run a ROM in the emulator. (default command)" default:"withargs"`
		RomInfos RomInfos `cmd:"" help:"Detect a ROM's platform and show infos." name:"rom-infos"`
		Version  Version  `cmd:"" help:"Show meru version."`

		Log logModMask `help:"${log_help}" placeholder:"mod0,mod1,..."`

		mode mode
	}

	Run struct {
		RomPath string `arg:"" name:"/path/to/rom" help:"${rompath_help}" required:"true" type:"existingfile"`

		Scale    int  `name:"scale" help:"Window scale factor." default:"0"`
		NoAudio  bool `name:"no-audio" help:"Disable audio output."`
		NoRewind bool `name:"no-rewind" help:"Disable periodic rewind captures."`
	}

	RomInfos struct {
		RomPath string `arg:"" name:"/path/to/rom" type:"existingfile"`
		JSON    bool   `name:"json" help:"Print infos as JSON."`
	}

	Version struct{}
)

var vars = kong.Vars{
	"rompath_help": "ROM file to run. The platform is detected from the ROM bytes.",
	"log_help":     "Enable debug logging for specified modules (or 'all').",
}

func parseArgs(args []string) CLI {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("meru"),
		kong.Description("Multi-system emulator."),
		kong.UsageOnError(),
		vars)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	switch ctx.Command() {
	case "run </path/to/rom>":
		cli.mode = runMode
	case "rom-infos </path/to/rom>":
		cli.mode = romInfosMode
	case "version":
		cli.mode = versionMode
	}
	return cli
}

// logModMask parses a comma-separated module list into a debug mask.
type logModMask log.ModuleMask

func (m *logModMask) UnmarshalText(text []byte) error {
	for _, name := range strings.Split(string(text), ",") {
		if name == "all" {
			*m = logModMask(log.ModuleMaskAll)
			return nil
		}
		mod, found := log.ModuleByName(name)
		if !found {
			return fmt.Errorf("unknown log module %q", name)
		}
		*m |= logModMask(mod.Mask())
	}
	return nil
}

func checkf(err error, format string, args ...any) {
	if err != nil {
		fatalf(format+": %v", append(args, err)...)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
