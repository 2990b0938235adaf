package cmd

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

const (
	binary        = "dist/accmon"
	mainPackage   = "./cmd/accmon"
	configPackage = "github.com/mklimuk/accmon/pkg/config"
	builderImage  = "gophertribe/gobuild:1.25-bookworm"
)

// boards maps known single board computers to their GOOS/GOARCH.
var boards = map[string][2]string{
	"nanopi": {"linux", "arm"},
	"rpi4":   {"linux", "arm64"},
}

func BuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the accmon binary",
		Long: `Build the accmon binary into dist/.

Native builds run go build directly. Builds for another platform run inside
the gobuild docker image because periph.io and hid need cgo.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			version, _ := flags.GetString("version")
			goos, _ := flags.GetString("os")
			goarch, _ := flags.GetString("arch")
			board, _ := flags.GetString("board")
			if board != "" {
				target, ok := boards[board]
				if !ok {
					return fmt.Errorf("unknown board %q", board)
				}
				goos, goarch = target[0], target[1]
			}
			inDocker, _ := flags.GetBool("in-docker")

			if inDocker || (goos == runtime.GOOS && goarch == runtime.GOARCH) {
				slog.Info("building", "version", version, "os", goos, "arch", goarch)
				return build.GoBuild(binary, mainPackage, build.GoBuildOpts{
					Version:       version,
					InjectVersion: true,
					ConfigPackage: configPackage,
					EnableCgo:     true,
					Arch:          goarch,
					OS:            goos,
				})
			}

			noCache, _ := flags.GetBool("no-cache")
			slog.Info("building in docker", "image", builderImage, "os", goos, "arch", goarch)
			return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", goos, goarch),
				[]string{"build", "--version", version, "--os", goos, "--arch", goarch, "--in-docker"},
				build.DockerBuildOpts{
					NoCache: noCache,
					Image:   builderImage,
				})
		},
	}
	cmd.Flags().String("version", "latest", "version injected into the binary")
	cmd.Flags().String("os", runtime.GOOS, "target os")
	cmd.Flags().String("arch", runtime.GOARCH, "target arch")
	cmd.Flags().String("board", "", "target board (nanopi, rpi4), overrides os and arch")
	cmd.Flags().Bool("in-docker", false, "build directly, used inside the build container")
	cmd.Flags().Bool("no-cache", false, "do not use the docker cache")
	return cmd
}
