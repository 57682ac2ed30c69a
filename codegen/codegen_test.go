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

package codegen_test

import (
	"strings"
	"testing"

	"github.com/julin/netgen/codegen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndGenerateSerializeForMeshPackage(t *testing.T) {
	structs, err := codegen.Load("github.com/julin/netgen/mesh")
	require.NoError(t, err)
	require.NotEmpty(t, structs)

	var vertex *codegen.StructInfo
	for _, s := range structs {
		if s.Name == "Vertex" {
			vertex = s
		}
	}
	require.NotNil(t, vertex, "mesh.Vertex should be discovered")

	src := string(codegen.GenerateSerialize(vertex))
	assert.True(t, strings.HasPrefix(src, "func (v *Vertex) Serialize(a *archive.Archive) error {"))
	assert.Contains(t, src, "a.Value(&v.Tag)")
	assert.Contains(t, src, "a.Value(&v.X)")
}
