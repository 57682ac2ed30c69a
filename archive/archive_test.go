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

package archive_test

import (
	"reflect"
	"testing"

	"github.com/julin/netgen/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y float64
}

func (p *point) Serialize(a *archive.Archive) error {
	if err := a.F64(&p.X); err != nil {
		return err
	}
	return a.F64(&p.Y)
}

type bag struct {
	Name  string
	P     *point
	Other *point
	Nums  []float64
	Bytes []byte
	Dyn   interface{}
}

func (b *bag) Serialize(a *archive.Archive) error {
	if err := a.String(&b.Name); err != nil {
		return err
	}
	if err := a.Shared(reflect.ValueOf(&b.P).Elem()); err != nil {
		return err
	}
	if err := a.Shared(reflect.ValueOf(&b.Other).Elem()); err != nil {
		return err
	}
	if err := a.Value(&b.Nums); err != nil {
		return err
	}
	if err := a.Value(&b.Bytes); err != nil {
		return err
	}
	return a.Value(&b.Dyn)
}

func TestMarshalUnmarshalPrimitivesAndSharedPointer(t *testing.T) {
	p := &point{X: 1.5, Y: -2.5}
	in := &bag{
		Name:  "widget",
		P:     p,
		Other: p, // same pointer twice: must dedupe on the wire
		Nums:  []float64{1, 2, 3, 4},
		Bytes: []byte{0xde, 0xad, 0xbe, 0xef},
		Dyn:   "hello",
	}

	data, err := archive.Marshal(in)
	require.NoError(t, err)

	out := &bag{}
	require.NoError(t, archive.Unmarshal(data, out))

	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Nums, out.Nums)
	assert.Equal(t, in.Bytes, out.Bytes)
	assert.Equal(t, "hello", out.Dyn)
	require.NotNil(t, out.P)
	require.NotNil(t, out.Other)
	assert.Same(t, out.P, out.Other, "aliased pointer must decode to the same object")
	assert.Equal(t, *in.P, *out.P)
}

func TestMarshalUnmarshalTextRoundTrip(t *testing.T) {
	in := &bag{
		Name:  "text-widget",
		P:     &point{X: 3, Y: 4},
		Other: nil,
		Nums:  []float64{9.5},
		Bytes: []byte("hi"),
		Dyn:   int64(42),
	}
	data, err := archive.MarshalText(in)
	require.NoError(t, err)

	out := &bag{}
	require.NoError(t, archive.UnmarshalText(data, out))
	assert.Equal(t, in.Name, out.Name)
	assert.Nil(t, out.Other)
	assert.Equal(t, in.Nums, out.Nums)
	assert.Equal(t, int64(42), out.Dyn)
}

type selfLoop struct {
	Tag  string
	Next *selfLoop
}

func (s *selfLoop) Serialize(a *archive.Archive) error {
	if err := a.String(&s.Tag); err != nil {
		return err
	}
	return a.Shared(reflect.ValueOf(&s.Next).Elem())
}

func TestMarshalUnmarshalCircularReference(t *testing.T) {
	n := &selfLoop{Tag: "root"}
	n.Next = n // points to itself

	data, err := archive.Marshal(n)
	require.NoError(t, err)

	out := &selfLoop{}
	require.NoError(t, archive.Unmarshal(data, out))
	assert.Equal(t, "root", out.Tag)
	require.NotNil(t, out.Next)
	assert.Same(t, out, out.Next)
}

func TestSaveWithBuffersZeroCopy(t *testing.T) {
	in := &bag{
		Name: "bulk",
		Nums: make([]float64, 2000),
		Dyn:  false,
	}
	for i := range in.Nums {
		in.Nums[i] = float64(i)
	}

	data, buffers, err := archive.SaveWithBuffers(in, 1024)
	require.NoError(t, err)
	require.Len(t, buffers, 1, "large float slice should divert to an out-of-band buffer")

	out := &bag{}
	require.NoError(t, archive.LoadWithBuffers(data, buffers, out))
	assert.Equal(t, in.Nums, out.Nums)
}

// versionProbe records, on the reading side, what the stream header says
// about the "netgen-test" library.
type versionProbe struct {
	seen  archive.Version
	found bool
}

func (p *versionProbe) Serialize(a *archive.Archive) error {
	if a.Direction() == archive.Reading {
		p.seen, p.found = a.VersionOf("netgen-test")
	}
	return nil
}

func TestVersionHeaderSurvivesRoundTrip(t *testing.T) {
	archive.RegisterLibraryVersion("netgen-test", archive.Version{Major: 1, Minor: 2, Patch: 3})

	// Every Marshal/Unmarshal pair writes and reads the process-wide
	// library-version header; bag.Serialize never reads VersionOf itself,
	// so versionProbe checks the value read back.
	in := &bag{Name: "versioned", Nums: []float64{1}}
	data, err := archive.Marshal(in)
	require.NoError(t, err)
	out := &bag{}
	require.NoError(t, archive.Unmarshal(data, out))
	assert.Equal(t, in.Name, out.Name)

	data, err = archive.Marshal(&versionProbe{})
	require.NoError(t, err)
	probe := &versionProbe{}
	require.NoError(t, archive.Unmarshal(data, probe))
	require.True(t, probe.found)
	assert.Equal(t, archive.Version{Major: 1, Minor: 2, Patch: 3}, probe.seen)
}
