// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Command ramsey searches for two-colorings of the complete graph K_N with
// no monochromatic K-clique, and inspects the colorings it writes.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/AleutianAI/ramsey/pkg/ux"
	"github.com/AleutianAI/ramsey/services/ramsey/controller"
)

// errCliquesFound makes check exit non-zero when a file is not a
// counterexample.
var errCliquesFound = errors.New("monochromatic cliques found")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		ux.NewPrinter(os.Stderr).Error(err.Error())
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errCliquesFound):
		return 2
	case errors.Is(err, controller.ErrIterationLimit):
		return 3
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
