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

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/julin/netgen/archive"
	"github.com/julin/netgen/mesh"
)

func newConvertCmd() *cobra.Command {
	var from, to, in, out string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a mesh archive stream between the binary and text encodings",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(in)
			if err != nil {
				return err
			}

			m := &mesh.Mesh{}
			switch from {
			case "binary":
				err = archive.Unmarshal(data, m)
			case "text":
				err = archive.UnmarshalText(data, m)
			default:
				return fmt.Errorf("convert: unknown --from encoding %q", from)
			}
			if err != nil {
				return err
			}

			var converted []byte
			switch to {
			case "binary":
				converted, err = archive.Marshal(m)
			case "text":
				converted, err = archive.MarshalText(m)
			default:
				return fmt.Errorf("convert: unknown --to encoding %q", to)
			}
			if err != nil {
				return err
			}

			return os.WriteFile(out, converted, 0o644)
		},
	}
	cmd.Flags().StringVar(&from, "from", "binary", "source encoding: binary or text")
	cmd.Flags().StringVar(&to, "to", "text", "destination encoding: binary or text")
	cmd.Flags().StringVar(&in, "in", "", "input file path")
	cmd.Flags().StringVar(&out, "out", "", "output file path")
	cmd.MarkFlagRequired("in")
	cmd.MarkFlagRequired("out")
	return cmd
}
