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

package archive

import (
	"fmt"
	"reflect"

	"github.com/spaolacci/murmur3"
)

// StructShapeHash fingerprints a struct type's exported field names and
// kinds. Two processes that compute the same hash for a type registered
// under the same name agree on its shape; a mismatch means a reader built
// against an older field layout should refuse the stream rather than
// silently misinterpret it.
func StructShapeHash(t reflect.Type) uint32 {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	h := murmur3.New32()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		fmt.Fprintf(h, "%s:%s;", f.Name, f.Type.Kind())
	}
	return h.Sum32()
}
