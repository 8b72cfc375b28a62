// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"fmt"
	"os"

	recerr "github.com/expertbridge/postrec/pkg/errors"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(recerr.ExitCode(err))
	}
}
