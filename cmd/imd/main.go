package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitConfigError  = 3
	ExitNetworkError = 4
	ExitCacheError   = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "download":
		return runDownload(cmdArgs)
	case "config":
		return runConfig(cmdArgs)
	case "renew":
		return runRenew(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: imd <command> [options]

Commands:
  download  Download a model file from its catalog page URL
  config    Show or update the stored configuration
  renew     Re-register a local model file with the catalog cache

Run 'imd <command> -h' for command-specific help.`)
}
