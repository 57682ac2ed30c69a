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

package mesh_test

import (
	"testing"

	"github.com/julin/netgen/archive"
	"github.com/julin/netgen/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeshRoundTripWithSharedCornersAndPolymorphicBounds(t *testing.T) {
	a := &mesh.Vertex{Tag: "a"}
	b := &mesh.Vertex{Tag: "b"}
	c := &mesh.Vertex{Tag: "c"}
	d := &mesh.Vertex{Tag: "d"}

	q1 := &mesh.Quad{Tag: "q1", Corners: [4]*mesh.Vertex{a, b, c, d}}
	q2 := &mesh.Quad{Tag: "q2", Corners: [4]*mesh.Vertex{b, c, a, d}, Adjacent: q1}
	q1.Adjacent = q2 // cyclic adjacency

	m := &mesh.Mesh{
		Name:     "unit-square",
		Faces:    []*mesh.Quad{q1, q2},
		Metadata: map[string]interface{}{"tag": "demo", "count": int64(2)},
		Bounds:   a, // Vertex satisfies Shape
	}

	data, err := archive.Marshal(m)
	require.NoError(t, err)

	out := &mesh.Mesh{}
	require.NoError(t, archive.Unmarshal(data, out))

	require.Len(t, out.Faces, 2)
	assert.Equal(t, "q1", out.Faces[0].Tag)
	assert.Same(t, out.Faces[0].Corners[0], out.Faces[1].Corners[2], "vertex 'a' is shared between both faces")
	assert.Same(t, out.Faces[0], out.Faces[1].Adjacent)
	assert.Same(t, out.Faces[1], out.Faces[0].Adjacent)

	require.NotNil(t, out.Bounds)
	assert.Equal(t, "a", out.Bounds.(mesh.Named).Label())
	assert.Equal(t, "demo", out.Metadata["tag"])
	assert.Equal(t, int64(2), out.Metadata["count"])
}
