package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/cbodonnell/statexfer/pkg/config"
	"github.com/cbodonnell/statexfer/pkg/crcdiff"
	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/repositories"
	"github.com/spf13/afero"
)

const usage = `usage:
  crcdiff <dir_a> <dir_b>
  crcdiff -database-url <url> -import <dir> -session <name>
  crcdiff -database-url <url> -sessions <session_a> <session_b>`

func main() {
	os.Exit(run())
}

func run() int {
	defaults := config.Default()
	databaseURL := flag.String("database-url", os.Getenv(config.EnvPrefix+"DATABASE_URL"), "Repository holding recorded sessions")
	migrations := flag.String("migrations", defaults.Migrations, "Migrations directory")
	importDir := flag.String("import", "", "Import the frame logs of this directory")
	session := flag.String("session", "", "Session name for -import")
	sessions := flag.Bool("sessions", false, "Compare two sessions stored in the repository")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stderr, "", log.DefaultLoggerFlag, parsedLogLevel))

	ctx := context.Background()
	fs := afero.NewOsFs()

	if *importDir != "" || *sessions {
		if *databaseURL == "" {
			fmt.Println("A database URL is required")
			return 2
		}
		repository, err := repositories.NewRepository(ctx, *databaseURL, *migrations)
		if err != nil {
			fmt.Printf("Failed to open repository: %v\n", err)
			return 2
		}
		defer repository.Close(ctx)

		if *importDir != "" {
			if *session == "" {
				fmt.Println("-session is required with -import")
				return 2
			}
			if ok, _ := afero.IsDir(fs, *importDir); !ok {
				fmt.Printf("Not a directory: %s\n", *importDir)
				return 2
			}
			n, err := crcdiff.ImportDir(ctx, fs, repository, *importDir, *session)
			if err != nil {
				fmt.Printf("Import failed after %d frame(s): %v\n", n, err)
				return 1
			}
			fmt.Printf("Imported %d frame(s) into session %s\n", n, *session)
			return 0
		}

		if flag.NArg() != 2 {
			flag.Usage()
			return 2
		}
		a, b := flag.Arg(0), flag.Arg(1)
		result, err := crcdiff.CompareSessions(ctx, repository, a, b)
		return report(a, b, result, err)
	}

	if flag.NArg() != 2 {
		flag.Usage()
		return 2
	}
	a, b := flag.Arg(0), flag.Arg(1)
	for _, dir := range []string{a, b} {
		if ok, _ := afero.IsDir(fs, dir); !ok {
			fmt.Printf("Not a directory: %s\n", dir)
			return 2
		}
	}
	result, err := crcdiff.CompareDirs(fs, a, b)
	return report(a, b, result, err)
}

func report(labelA, labelB string, result *crcdiff.Result, err error) int {
	if errors.Is(err, crcdiff.ErrNoCommonFrames) {
		fmt.Println("No matching crc_frame_*.txt files found.")
		return 1
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 2
	}
	if err := crcdiff.WriteReport(os.Stdout, labelA, labelB, result); err != nil {
		return 2
	}
	return 0
}
