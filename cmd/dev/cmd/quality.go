package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// step wraps a devtool task into a cobra command.
func step(use, short string, run func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run()
			if err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return step("test", "Run unit tests", func() error { return test.Test() })
}

func LintCmd() *cobra.Command {
	return step("lint", "Run linters", func() error { return test.Lint() })
}

// IntegrationTestCmd runs the tests that need a sensor on the bus.
func IntegrationTestCmd() *cobra.Command {
	return step("integration-test", "Run integration tests against hardware", func() error { return test.Integ() })
}
