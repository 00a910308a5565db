// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"unifimon/alert"
	"unifimon/common/daemon"
	"unifimon/common/httpserver"
	"unifimon/common/reporter"
	"unifimon/console"
	"unifimon/console/live"
	"unifimon/inlet/flow"
	"unifimon/inlet/kafka"
	"unifimon/poller"
	"unifimon/storage"
)

// ServeConfiguration represents the configuration file for the serve command.
type ServeConfiguration struct {
	Reporting reporter.Configuration
	HTTP      httpserver.Configuration
	Storage   storage.Configuration
	Flow      flow.Configuration
	Kafka     kafka.Configuration
	Poller    poller.Configuration
	Alert     alert.Configuration
	Console   console.Configuration
}

// Reset resets the configuration for the serve command to its default value.
func (c *ServeConfiguration) Reset() {
	*c = ServeConfiguration{
		Reporting: reporter.DefaultConfiguration(),
		HTTP:      httpserver.DefaultConfiguration(),
		Storage:   storage.DefaultConfiguration(),
		Flow:      flow.DefaultConfiguration(),
		Kafka:     kafka.DefaultConfiguration(),
		Poller:    poller.DefaultConfiguration(),
		Alert:     alert.DefaultConfiguration(),
		Console:   console.DefaultConfiguration(),
	}
}

type serveOptions struct {
	ConfigRelatedOptions
	CheckMode bool
}

// ServeOptions stores the command-line option values for the serve
// command.
var ServeOptions serveOptions

var serveCmd = &cobra.Command{
	Use:   "serve [config]",
	Short: "Start unifimon",
	Long: `unifimon collects NetFlow/IPFIX flows and polls a UniFi controller. Data
is stored in a database and served through an HTTP API with live updates.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config := ServeConfiguration{}
		ServeOptions.Path = ""
		if len(args) > 0 {
			ServeOptions.Path = args[0]
		}
		if err := ServeOptions.Parse(cmd.OutOrStdout(), "serve", &config); err != nil {
			return err
		}

		r, err := reporter.New(config.Reporting)
		if err != nil {
			return fmt.Errorf("unable to initialize reporter: %w", err)
		}
		return serveStart(r, config, ServeOptions.CheckMode)
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVarP(&ServeOptions.ConfigRelatedOptions.Dump, "dump", "D", false,
		"Dump configuration before starting")
	serveCmd.Flags().BoolVarP(&ServeOptions.CheckMode, "check", "C", false,
		"Check configuration, but does not start")
}

func serveStart(r *reporter.Reporter, config ServeConfiguration, checkOnly bool) error {
	// Initialize the various components
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
	storageComponent, err := storage.New(r, config.Storage, storage.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize storage component: %w", err)
	}
	sinks := []flow.FlowSink{storageComponent}
	var kafkaComponent *kafka.Component
	if config.Kafka.Enabled {
		kafkaComponent, err = kafka.New(r, config.Kafka, kafka.Dependencies{
			Daemon: daemonComponent,
		})
		if err != nil {
			return fmt.Errorf("unable to initialize Kafka component: %w", err)
		}
		sinks = append(sinks, kafkaComponent)
	}
	flowComponent, err := flow.New(r, config.Flow, flow.Dependencies{
		Daemon: daemonComponent,
		Sinks:  sinks,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize flow component: %w", err)
	}
	alertComponent, err := alert.New(r, config.Alert, alert.Dependencies{
		Daemon: daemonComponent,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize alert component: %w", err)
	}
	hub := live.New(r)
	config.Console.Version = Version
	consoleComponent, err := console.New(r, config.Console, console.Dependencies{
		Daemon:  daemonComponent,
		HTTP:    httpComponent,
		Storage: storageComponent,
		Hub:     hub,
	})
	if err != nil {
		return fmt.Errorf("unable to initialize console component: %w", err)
	}
	var pollerComponent *poller.Component
	if config.Poller.Enabled {
		pollerComponent, err = poller.New(r, config.Poller, poller.Dependencies{
			Daemon:     daemonComponent,
			Store:      storageComponent,
			Publishers: []poller.Publisher{hub, alertComponent},
		})
		if err != nil {
			return fmt.Errorf("unable to initialize poller component: %w", err)
		}
	}

	// Expose some information and metrics
	addCommonHTTPHandlers(r, httpComponent)
	versionMetrics(r)

	// If we only asked for a check, stop here.
	if checkOnly {
		return nil
	}

	// Start all the components. The storage is started before its
	// writers and stopped after them.
	components := []interface{}{
		httpComponent,
		storageComponent,
	}
	if kafkaComponent != nil {
		components = append(components, kafkaComponent)
	}
	components = append(components,
		flowComponent,
		alertComponent,
		consoleComponent,
	)
	if pollerComponent != nil {
		components = append(components, pollerComponent)
	}
	return StartStopComponents(r, daemonComponent, components)
}
