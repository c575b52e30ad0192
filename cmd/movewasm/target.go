package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/rather-labs/move-stylus-poc/internal/project"
)

const noManifestMessage = "no movewasm.toml found\nplease specify the module explicitly, e.g.:\n  movewasm build path/to/module.mv"

// resolveTarget picks the root module path and dependency search
// directories a subcommand should compile, mirroring
// project_manifest.go's manifest-or-explicit-path fallback: an
// explicit positional argument (plus any --dep flags) wins outright;
// otherwise movewasm.toml is resolved from the current directory.
func resolveTarget(cmd *cobra.Command, args []string) (modulePath string, depPaths []string, err error) {
	depFlags, err := cmd.Flags().GetStringArray("dep")
	if err != nil {
		return "", nil, err
	}
	if len(args) > 0 {
		return args[0], depFlags, nil
	}

	manifest, ok, err := project.Load(".")
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, errors.New(noManifestMessage)
	}
	return manifest.MainPath(), append(manifest.DepPaths(), depFlags...), nil
}
