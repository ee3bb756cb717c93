package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gruppe-adler/meh-submerge/internal/info"
	"github.com/gruppe-adler/meh-submerge/internal/preview"
	"github.com/gruppe-adler/meh-submerge/internal/submerge"
	"github.com/gruppe-adler/meh-submerge/internal/terrainrgb"
)

type command struct {
	name        string
	description string
	run         func(*flag.FlagSet)
}

var subCommands []command

func init() {
	subCommands = []command{
		{"info", "Print header metadata of a raster file.", info.Run},
		{"submerge", "Simulate sea level rise from a base image and an elevation model.", submerge.Run},
		{"preview", "Build resolutions for preview image of a raster file.", preview.Run},
		{"terrainrgb", "Build Terrain-RGB tiles from an elevation model.", terrainrgb.Run},
		{"help", "Print this message.", func(s *flag.FlagSet) { printUsage() }},
	}
}

func printUsage() {
	fmt.Printf("USAGE:\n    %s [SUBCOMMAND] [SUBCOMMAND FLAGS]\n\n", os.Args[0])
	fmt.Print("SUBCOMMANDS: \n")

	for i := 0; i < len(subCommands); i++ {
		name := subCommands[i].name

		fmt.Printf("%12s    %s\n", name, subCommands[i].description)
	}

	fmt.Printf("\nUse -h as SUBCOMMAND FLAG to print help for each subcommand.\n\n")
}

func main() {

	if len(os.Args) < 2 {
		fmt.Printf("\nERROR: No subcommand was provided.\n\n")
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	for i := 0; i < len(subCommands); i++ {
		if subCommands[i].name == cmd {
			set := flag.NewFlagSet(cmd, flag.ExitOnError)
			subCommands[i].run(set)
			return
		}
	}

	fmt.Printf("\nERROR: Subcommand '%s' was not found.\n\n", cmd)
	printUsage()
	os.Exit(1)
}
