package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cbodonnell/statexfer/pkg/config"
	"github.com/cbodonnell/statexfer/pkg/log"
	"github.com/cbodonnell/statexfer/pkg/schema"
	"github.com/cbodonnell/statexfer/pkg/snapshot"
	"github.com/cbodonnell/statexfer/pkg/xfer"
	"github.com/spf13/afero"
)

func main() {
	schemaPath := flag.String("schema", config.Default().Schema, "Path of the schema set")
	format := flag.String("format", "text", "Output format: text, json or blocks")
	crc := flag.Bool("crc", false, "Print the checksum of the raw blocks")
	crcLogDir := flag.String("crc-log", "", "Write a per-frame checksum log under this directory")
	frame := flag.Uint("frame", 0, "Frame number of the checksum log")
	deepCRC := flag.String("deepcrc", "", "Write the deep checksum capture of the raw blocks to this file")
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}
	log.SetDefaultLogger(log.New(os.Stderr, "", log.DefaultLoggerFlag, parsedLogLevel))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: dump [flags] <snapshot file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	data, err := snapshot.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := dump(data, *format, *schemaPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	blocks := &snapshot.Blocks{List: snapshot.SplitBlocks(data)}
	fs := afero.NewOsFs()
	if *crc || *crcLogDir != "" {
		var c *xfer.CRC
		if *crcLogDir != "" {
			n := uint32(*frame)
			c = xfer.NewCRCWithLog(xfer.NewCRCLogConfig(fs, *crcLogDir, time.Now(), xfer.FrameFunc(func() uint32 { return n })))
		} else {
			c = xfer.NewCRC()
		}
		sum, err := checksum(c, path, blocks)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("CRC: 0x%08X\n", sum)
		if c.LogPath() != "" {
			fmt.Printf("CRC log: %s\n", c.LogPath())
		}
	}

	if *deepCRC != "" {
		d := xfer.NewDeepCRC(fs)
		sum, err := checksum(d, *deepCRC, blocks)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Deep CRC: 0x%08X (%s)\n", sum, *deepCRC)
	}
}

func dump(data []byte, format, schemaPath string) error {
	if format == "blocks" {
		for _, b := range snapshot.SplitBlocks(data) {
			fmt.Printf("%s: %d bytes\n", b.Name, len(b.Data))
		}
		return nil
	}

	schemas, err := schema.LoadFile(schemaPath)
	if err != nil {
		return err
	}
	state, err := snapshot.NewParser(schemas).Parse(data)
	if err != nil {
		return err
	}

	switch format {
	case "text":
		return state.WriteText(os.Stdout)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

type checksumXfer interface {
	xfer.Xfer
	xfer.Checksummer
}

func checksum(x checksumXfer, identifier string, blocks *snapshot.Blocks) (uint32, error) {
	if err := x.Open(identifier); err != nil {
		return 0, err
	}
	if err := x.Snapshot(blocks, ""); err != nil {
		x.Close()
		return 0, err
	}
	if err := x.Close(); err != nil {
		return 0, err
	}
	return x.Checksum(), nil
}
