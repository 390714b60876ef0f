// Copyright (C) 2026 Halyard Tools (maintainers@halyard.tools)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workflow

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Provisioner is the narrow seam to the external infrastructure-as-code
// tool. Keeping it this small lets phase logic be unit-tested without real
// infrastructure.
type Provisioner interface {
	// Validate checks the tool is installed and the plan parses.
	Validate(ctx context.Context) error

	// Apply provisions infrastructure using the variable-binding manifest
	// at bindingsPath.
	Apply(ctx context.Context, bindingsPath string) error
}

// Runtime starts and stops the project's runtime services.
type Runtime interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Assembler copies one module's source tree into the project workspace.
type Assembler interface {
	Assemble(ctx context.Context, module, srcDir, projectDir string) error
}

// TerraformProvisioner shells out to terraform. The variable-binding
// manifest's KEY=value entries are handed to the process as TF_VAR_*
// environment variables.
type TerraformProvisioner struct {
	// WorkDir holds the terraform plan.
	WorkDir string

	// Binary overrides the executable name. Default: "terraform".
	Binary string
}

func (p TerraformProvisioner) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "terraform"
}

// Validate runs "terraform validate" in the plan directory.
func (p TerraformProvisioner) Validate(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, p.binary(), "validate")
	cmd.Dir = p.WorkDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("terraform validate: %w", err)
	}
	return nil
}

// Apply runs "terraform apply -auto-approve" with the manifest's bindings
// exported as TF_VAR_ environment variables (lowercased, terraform's input
// variable convention).
func (p TerraformProvisioner) Apply(ctx context.Context, bindingsPath string) error {
	bindings, err := readBindingsFile(bindingsPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, p.binary(), "apply", "-auto-approve", "-input=false")
	cmd.Dir = p.WorkDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	for key, value := range bindings {
		cmd.Env = append(cmd.Env, fmt.Sprintf("TF_VAR_%s=%s", strings.ToLower(key), value))
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("terraform apply: %w", err)
	}
	return nil
}

// ComposeRuntime shells out to podman-compose for the start-runtime phase.
type ComposeRuntime struct {
	// StackDir contains the compose file.
	StackDir string

	// Binary overrides the executable name. Default: "podman-compose".
	Binary string
}

func (r ComposeRuntime) binary() string {
	if r.Binary != "" {
		return r.Binary
	}
	return "podman-compose"
}

func (r ComposeRuntime) run(ctx context.Context, args ...string) error {
	composeFile := filepath.Join(r.StackDir, "compose.yml")
	if _, err := os.Stat(composeFile); err != nil {
		return fmt.Errorf("compose file not found at %s: %w", composeFile, err)
	}
	cmdArgs := append([]string{"-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, r.binary(), cmdArgs...)
	cmd.Dir = r.StackDir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Start brings the runtime services up detached.
func (r ComposeRuntime) Start(ctx context.Context) error {
	if err := r.run(ctx, "up", "-d"); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}
	return nil
}

// Stop tears the runtime services down.
func (r ComposeRuntime) Stop(ctx context.Context) error {
	if err := r.run(ctx, "down"); err != nil {
		return fmt.Errorf("stop runtime: %w", err)
	}
	return nil
}

// CopyAssembler assembles a project by copying module sources into
// {projectDir}/modules/{module}.
type CopyAssembler struct{}

// Assemble copies every regular file under srcDir, preserving relative
// paths. Re-running overwrites in place, so assembly is safe to repeat
// after a mid-phase interruption.
func (CopyAssembler) Assemble(ctx context.Context, module, srcDir, projectDir string) error {
	dstRoot := filepath.Join(projectDir, "modules", module)
	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(dstRoot, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0644)
	})
}

// readBindingsFile parses the flat KEY=value manifest emitted by the
// deploy package.
func readBindingsFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bindings manifest: %w", err)
	}
	defer f.Close()

	bindings := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed manifest line %q", ErrInvalidInput, line)
		}
		bindings[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read bindings manifest: %w", err)
	}
	return bindings, nil
}
