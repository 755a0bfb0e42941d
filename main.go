// Package main provides the entry point for mipsim.
// mipsim is a cycle-accurate 5-stage MIPS pipeline simulator built on Akita.
//
// For the full CLI, use: go run ./cmd/mipsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("mipsim - 5-stage MIPS Pipeline Simulator")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: mipsim <command> [flags]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run <image>      Simulate a hex or ELF image cycle by cycle")
	fmt.Println("  emulate <image>  Run an image on the reference emulator")
	fmt.Println("  hamming          Run the built-in Hamming correction program")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mipsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mipsim' instead.")
	}
}
