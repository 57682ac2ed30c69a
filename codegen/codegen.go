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

// Package codegen emits Serialize methods for struct types discovered in
// a package, so those types satisfy archive.Aggregate without a
// hand-written hook. Each generated method transfers every exported field
// through archive.Archive.Value, the reflection-driven generic dispatch.
package codegen

import (
	"bytes"
	"fmt"
	"go/types"
	"sort"

	"golang.org/x/tools/go/packages"
)

// StructInfo is one struct type found by Load, along with its exported
// fields in a stable (sorted) order.
type StructInfo struct {
	Name   string
	Fields []FieldInfo
}

// FieldInfo is one exported struct field and its static type.
type FieldInfo struct {
	GoName string
	Type   types.Type
}

// Load parses pkgPath and returns every exported struct type declared
// directly in it, fields sorted by name so two runs over an unchanged
// package emit byte-identical code.
func Load(pkgPath string) ([]*StructInfo, error) {
	cfg := &packages.Config{Mode: packages.NeedTypes | packages.NeedTypesInfo | packages.NeedName}
	pkgs, err := packages.Load(cfg, pkgPath)
	if err != nil {
		return nil, fmt.Errorf("codegen: loading %s: %w", pkgPath, err)
	}
	if len(pkgs) == 0 || pkgs[0].Types == nil {
		return nil, fmt.Errorf("codegen: no types found in %s", pkgPath)
	}

	scope := pkgs[0].Types.Scope()
	var out []*StructInfo
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || !obj.Exported() {
			continue
		}
		st, ok := obj.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		info := &StructInfo{Name: obj.Name()}
		for i := 0; i < st.NumFields(); i++ {
			f := st.Field(i)
			if !f.Exported() {
				continue
			}
			info.Fields = append(info.Fields, FieldInfo{GoName: f.Name(), Type: f.Type()})
		}
		sort.Slice(info.Fields, func(i, j int) bool { return info.Fields[i].GoName < info.Fields[j].GoName })
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GenerateSerialize emits a Serialize method for s that calls
// a.Value(&v.Field) once per field, in the same sorted order Load
// produced, so two runs over an unchanged package emit the same method.
func GenerateSerialize(s *StructInfo) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "func (v *%s) Serialize(a *archive.Archive) error {\n", s.Name)
	for _, f := range s.Fields {
		fmt.Fprintf(&buf, "\tif err := a.Value(&v.%s); err != nil {\n\t\treturn err\n\t}\n", f.GoName)
	}
	fmt.Fprintf(&buf, "\treturn nil\n}\n")
	return buf.Bytes()
}
