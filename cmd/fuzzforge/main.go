// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Command fuzzforge runs the coverage-guided fuzzing engine as a local
// process, either as a single worker or as several independent workers
// simulating the multi-process deployment model in one process.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "fuzzforge",
		Short: "Coverage-guided, in-process fuzzing engine",
	}
	root.AddCommand(newRunCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
