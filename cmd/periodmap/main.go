// Command periodmap maps spreadsheet columns to reporting periods from the
// command line: list a range's columns, infer or detect periods, check and
// reformat configuration documents and read amounts out of a workbook.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
