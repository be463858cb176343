package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/ligustah/warcfetch/internal/checksum"
)

// runValidate checks a local file against an expected digest. Without
// -checksum it prints the file's digest instead.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)

	file := fs.String("file", "", "Local file to check (required)")
	algorithm := fs.String("algorithm", "md5", "Checksum algorithm: md5 or sha1")
	expected := fs.String("checksum", "", "Expected hex digest")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: warcfetch validate [options]

Verify a local file against an expected digest. When -checksum is omitted,
print the file's digest.

Options:`)
		fs.PrintDefaults()
	}

	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: -file is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	alg, ok := checksum.ParseAlgorithm(*algorithm)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported algorithm %q, options are 'md5' or 'sha1'\n", *algorithm)
		return ExitInvalidArgs
	}

	verifier := checksum.NewVerifier(afero.NewOsFs(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	if *expected == "" {
		sum, err := verifier.Sum(alg, *file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitGeneralError
		}
		fmt.Printf("%s  %s\n", sum, *file)
		return ExitSuccess
	}

	valid, err := verifier.Verify(alg.String(), *expected, *file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	fmt.Printf("File: %s\n", *file)
	fmt.Printf("Algorithm: %s\n", alg)
	if !valid {
		fmt.Println("Status: INVALID")
		return ExitFilesFailed
	}
	fmt.Println("Status: VALID")
	return ExitSuccess
}
