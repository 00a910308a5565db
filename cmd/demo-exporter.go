// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"unifimon/common/daemon"
	"unifimon/common/httpserver"
	"unifimon/common/reporter"
	"unifimon/demoexporter/flows"
)

// DemoExporterConfiguration represents the configuration file for the demo exporter command.
type DemoExporterConfiguration struct {
	Reporting reporter.Configuration
	HTTP      httpserver.Configuration
	Flows     flows.Configuration
}

// Reset sets the default configuration for the demo exporter command.
func (c *DemoExporterConfiguration) Reset() {
	http := httpserver.DefaultConfiguration()
	http.Listen = "0.0.0.0:8081"
	*c = DemoExporterConfiguration{
		HTTP:      http,
		Reporting: reporter.DefaultConfiguration(),
		Flows:     flows.DefaultConfiguration(),
	}
}

type demoExporterOptions struct {
	ConfigRelatedOptions
	CheckMode bool
}

// DemoExporterOptions stores the command-line option values for the
// demo exporter command.
var DemoExporterOptions demoExporterOptions

var demoExporterCmd = &cobra.Command{
	Use:   "demo-exporter [config]",
	Short: "Start a synthetic UniFi flow exporter",
	Long: `For demo and testing purpose, this service exports synthetic flows
the way a UniFi gateway does.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := DemoExporterConfiguration{}
		DemoExporterOptions.Path = ""
		if len(args) > 0 {
			DemoExporterOptions.Path = args[0]
		}
		if err := DemoExporterOptions.Parse(cmd.OutOrStdout(), "demo-exporter", &config); err != nil {
			return err
		}

		r, err := reporter.New(config.Reporting)
		if err != nil {
			return fmt.Errorf("unable to initialize reporter: %w", err)
		}
		return demoExporterStart(r, config, DemoExporterOptions.CheckMode)
	},
}

func init() {
	RootCmd.AddCommand(demoExporterCmd)
	demoExporterCmd.Flags().BoolVarP(&DemoExporterOptions.ConfigRelatedOptions.Dump, "dump", "D", false,
		"Dump configuration before starting")
	demoExporterCmd.Flags().BoolVarP(&DemoExporterOptions.CheckMode, "check", "C", false,
		"Check configuration, but does not start")
}

func demoExporterStart(r *reporter.Reporter, config DemoExporterConfiguration, checkOnly bool) error {
	daemonComponent, err := daemon.New(r)
	if err != nil {
		return fmt.Errorf("unable to initialize daemon component: %w", err)
	}
	httpComponent, err := httpserver.New(r, config.HTTP, httpserver.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize HTTP component: %w", err)
	}
	flowsComponent, err := flows.New(r, config.Flows, flows.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize flows component: %w", err)
	}

	// Expose some information and metrics
	addCommonHTTPHandlers(r, httpComponent)
	versionMetrics(r)

	// If we only asked for a check, stop here.
	if checkOnly {
		return nil
	}

	// Start all the components.
	components := []interface{}{
		httpComponent,
		flowsComponent,
	}
	return StartStopComponents(r, daemonComponent, components)
}
