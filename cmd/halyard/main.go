// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
)

func main() {
	// Cobra handles argument parsing and prints usage on error; command
	// implementations print their own failure detail.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
