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

// Package mesh is a minimal stand-in for the geometry library this
// serialization engine actually ships with: just enough shapes and graph
// structure to exercise polymorphic registration, shared references, and
// self-referential graphs end to end.
package mesh

import (
	"fmt"
	"reflect"

	"github.com/julin/netgen/archive"
)

// Named is satisfied by anything carrying a display label.
type Named interface {
	Label() string
}

// Shape is satisfied by anything reporting a surface area. Vertex and
// Quad both implement Named and Shape, so registering them exercises the
// multiple-base-interface path of the polymorphic type registry.
type Shape interface {
	Area() float64
}

func init() {
	must(archive.RegisterPolymorphic("mesh.Vertex", Vertex{},
		reflect.TypeOf((*Named)(nil)).Elem(),
		reflect.TypeOf((*Shape)(nil)).Elem()))
	must(archive.RegisterPolymorphic("mesh.Quad", Quad{},
		reflect.TypeOf((*Named)(nil)).Elem(),
		reflect.TypeOf((*Shape)(nil)).Elem()))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Vertex is a zero-area point carrying a free-form label in Tag.
type Vertex struct {
	Tag string
	X   float64
	Y   float64
	Z   float64
}

func (v *Vertex) Label() string { return v.Tag }
func (v *Vertex) Area() float64 { return 0 }

func (v *Vertex) Serialize(a *archive.Archive) error {
	if err := a.String(&v.Tag); err != nil {
		return err
	}
	if err := a.F64(&v.X); err != nil {
		return err
	}
	if err := a.F64(&v.Y); err != nil {
		return err
	}
	return a.F64(&v.Z)
}

// Quad is a four-vertex planar face. Its corners are shared references
// to Vertex values, so two quads sharing an edge serialize that edge's
// vertices exactly once.
type Quad struct {
	Tag      string
	Corners  [4]*Vertex
	Adjacent *Quad // neighboring face; may alias back to form a cycle
}

func (q *Quad) Label() string { return q.Tag }

func (q *Quad) Area() float64 {
	if q.Corners[0] == nil || q.Corners[2] == nil {
		return 0
	}
	dx := q.Corners[2].X - q.Corners[0].X
	dy := q.Corners[2].Y - q.Corners[0].Y
	return dx * dy
}

func (q *Quad) Serialize(a *archive.Archive) error {
	if err := a.String(&q.Tag); err != nil {
		return err
	}
	for i := range q.Corners {
		if err := a.Shared(reflect.ValueOf(&q.Corners[i]).Elem()); err != nil {
			return err
		}
	}
	return a.Shared(reflect.ValueOf(&q.Adjacent).Elem())
}

// Mesh is the top-level Aggregate: a named collection of faces plus a
// bag of loosely-typed per-mesh metadata (demonstrating interface{}
// transfer) and an optional bounding shape reached through the Shape
// interface (demonstrating raw polymorphic references).
type Mesh struct {
	Name     string
	Faces    []*Quad
	Metadata map[string]interface{}
	Bounds   Shape
	Version  archive.Version
}

func (m *Mesh) Serialize(a *archive.Archive) error {
	if err := a.String(&m.Name); err != nil {
		return err
	}
	if err := a.Value(&m.Faces); err != nil {
		return err
	}
	if err := a.Value(&m.Metadata); err != nil {
		return err
	}
	if err := a.Interface(reflect.ValueOf(&m.Bounds).Elem()); err != nil {
		return err
	}
	return a.Value(&m.Version)
}

func (m *Mesh) String() string {
	return fmt.Sprintf("mesh %q: %d faces", m.Name, len(m.Faces))
}
