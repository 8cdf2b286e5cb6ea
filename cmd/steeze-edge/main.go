package main

import (
	"github.com/joeydtaylor/steeze-edge/pkg/edgefx"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		edgefx.Module(
			edgefx.WithService("steeze-edge"),
			edgefx.WithManifestEnv("EDGE_MANIFEST"),
			edgefx.WithDefaultManifest("manifest.toml"),
		),
	).Run()
}
