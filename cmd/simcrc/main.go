package main

import (
	"fmt"
	"os"

	"github.com/cbodonnell/statexfer/pkg/xfer"
)

func main() {
	crc, err := xfer.SimulationMatrixCRC()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compute simulation CRC: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("0x%08X\n", crc)
}
