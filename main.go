package main

import (
	"fmt"
	"os"

	"github.com/go-faster/jx"

	"meru/core"
	"meru/emu"
	"meru/emu/log"
)

const version = "0.1.0-dev"

func main() {
	cli := parseArgs(os.Args[1:])

	if cli.Log != 0 {
		log.EnableDebugModules(log.ModuleMask(cli.Log))
	}

	switch cli.mode {
	case runMode:
		cfg := emu.LoadConfigOrDefault()
		emuMain(cli.Run, cfg)
	case romInfosMode:
		romInfosMain(cli.RomInfos)
	case versionMode:
		fmt.Println("meru", version)
	}
}

func romInfosMain(args RomInfos) {
	rom, err := os.ReadFile(args.RomPath)
	checkf(err, "failed to read rom")

	platform, err := core.Detect(rom)
	if args.JSON {
		var e jx.Encoder
		e.Obj(func(e *jx.Encoder) {
			e.Field("path", func(e *jx.Encoder) { e.Str(args.RomPath) })
			e.Field("size", func(e *jx.Encoder) { e.Int(len(rom)) })
			if err != nil {
				e.Field("platform", func(e *jx.Encoder) { e.Null() })
			} else {
				e.Field("platform", func(e *jx.Encoder) { e.Str(platform.Abbrev()) })
			}
		})
		fmt.Println(e.String())
		if err != nil {
			os.Exit(1)
		}
		return
	}

	checkf(err, "unrecognized rom")
	fmt.Printf("path:     %s\n", args.RomPath)
	fmt.Printf("size:     %d bytes\n", len(rom))
	fmt.Printf("platform: %s (%s)\n", platform, platform.Abbrev())
}
