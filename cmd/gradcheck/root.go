/*
Copyright 2025 The gradcompose Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phylo-inference/gradcompose/internal/config"
	"github.com/phylo-inference/gradcompose/internal/logging"
)

type rootOptions struct {
	configFile string
	cfg        *config.Config
}

func newRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "gradcheck",
		Short:         "Cross-check composed gradients against finite differences",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			logOpts, err := cfg.Logging.Options()
			if err != nil {
				return err
			}
			logger, err := logging.NewLogger(logOpts)
			if err != nil {
				return err
			}
			logging.SetLogger(logger)
			opts.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "info", "log level: info, debug or trace")

	root.AddCommand(newCheckCommand(opts), newConfigCommand(opts))
	return root
}

func newConfigCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Dump(opts.cfg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
