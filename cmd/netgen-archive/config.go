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
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// libraryVersions is the bootstrap config the CLI loads at startup and
// stamps into the process-wide version table before opening any
// archive: one entry per library name sharing the stream.
type libraryVersions struct {
	Libraries map[string]struct {
		Major int `yaml:"major"`
		Minor int `yaml:"minor"`
		Patch int `yaml:"patch"`
	} `yaml:"libraries"`
}

// loadLibraryVersions reads path as YAML; a missing file is not an
// error, since the process-wide table already defaults to whatever
// RegisterLibraryVersion calls package init functions made.
func loadLibraryVersions(path string) (*libraryVersions, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &libraryVersions{}, nil
	}
	if err != nil {
		return nil, err
	}
	var v libraryVersions
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// loadDotEnv loads .env-style variables into the process environment
// before flags are parsed, best-effort: a missing .env file is normal
// outside of development. No flag of this command takes its default
// from the environment.
func loadDotEnv() {
	_ = godotenv.Load()
}
