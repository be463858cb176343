package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitSourceNotAccess = 3
	ExitStorageError    = 5
	ExitFilesFailed     = 7
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
	case "list":
		return runList(cmdArgs)
	case "validate":
		return runValidate(cmdArgs)
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
	fmt.Fprintln(os.Stderr, `Usage: warcfetch <command> [options]

Commands:
  download  Retrieve and validate the WARC files selected from a WASAPI endpoint
  list      Show the crawls and files a download would retrieve
  validate  Check a local file against an expected digest, or print its digest

Run 'warcfetch <command> -h' for command-specific help.`)
}
