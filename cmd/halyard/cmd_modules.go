// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/halyardtools/halyard/services/pipeline/registry"
)

func runModulesList(cmd *cobra.Command, args []string) {
	reg, err := loadRegistry()
	if err != nil {
		fail("%v", err)
	}

	fmt.Printf("%-20s %-12s %-5s %-9s %s\n", "NAME", "TYPE", "TIER", "REQUIRED", "DEPENDENCIES")
	for _, name := range reg.Names() {
		m, _ := reg.Get(name)
		tier := "-"
		if m.Type == registry.ModuleTypeCore {
			tier = fmt.Sprintf("%d", m.Tier)
		}
		required := ""
		if m.Required {
			required = "yes"
		}
		fmt.Printf("%-20s %-12s %-5s %-9s %s\n",
			m.Name, m.Type, tier, required, strings.Join(m.Dependencies, ", "))
	}
}

func runModulesResolve(cmd *cobra.Command, args []string) {
	reg, err := loadRegistry()
	if err != nil {
		fail("%v", err)
	}
	resolved, err := resolveRequested(reg, args)
	if err != nil {
		fail("%v", err)
	}

	fmt.Println("Install order:")
	for i, name := range resolved {
		fmt.Printf("  %2d. %s\n", i+1, name)
	}
}
