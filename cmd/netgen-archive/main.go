// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Command netgen-archive is the operator-facing surface over the
// archive package: converting mesh streams between the binary and text
// encodings, and reporting whether the mesh package's polymorphic types
// are registered in a given build.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/julin/netgen/archive"
	_ "github.com/julin/netgen/mesh"
)

var (
	logLevel   string
	versionCfg string
)

func main() {
	loadDotEnv()

	root := &cobra.Command{
		Use:   "netgen-archive",
		Short: "Inspect and convert object-graph archive streams",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)

			cfg, err := loadLibraryVersions(versionCfg)
			if err != nil {
				return err
			}
			for name, v := range cfg.Libraries {
				archive.RegisterLibraryVersion(name, archive.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch})
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "logrus level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&versionCfg, "versions", "", "YAML file stamping library versions into the header")

	root.AddCommand(newConvertCmd(), newRegistryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry",
		Short: "Report whether mesh.Vertex and mesh.Quad are in the process-wide polymorphic registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{"mesh.Vertex", "mesh.Quad"} {
				fmt.Printf("%s\tregistered=%v\n", name, archive.IsRegistered(name))
			}
			return nil
		},
	}
}
