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

import "reflect"

// Reference sentinels. All other non-negative values on the wire are
// back-reference IDs.
const (
	sentinelNewInline      int64 = -1
	sentinelNull           int64 = -2
	sentinelNewPolymorphic int64 = -3
)

// refResolver is the per-archive identity registry: independent tables and
// counters for shared references (concrete *T pointer fields, and slices/
// maps reached through a dynamic interface{} value) and raw references
// (named-interface fields requiring the type registry for reconstruction).
// Every distinct live address encountered in a given role gets one ID,
// assigned in encounter order starting at 0; IDs are never reused within a
// session.
type refResolver struct {
	sharedAddrToID map[uintptr]int64      // write side
	sharedByID     map[int64]reflect.Value // read side
	sharedNext     int64

	rawAddrToID map[uintptr]int64
	rawByID     map[int64]reflect.Value
	rawNext     int64
}

func newRefResolver() *refResolver {
	return &refResolver{
		sharedAddrToID: map[uintptr]int64{},
		sharedByID:     map[int64]reflect.Value{},
		rawAddrToID:    map[uintptr]int64{},
		rawByID:        map[int64]reflect.Value{},
	}
}

func (r *refResolver) nextSharedID() int64 {
	id := r.sharedNext
	r.sharedNext++
	return id
}

func (r *refResolver) nextRawID() int64 {
	id := r.rawNext
	r.rawNext++
	return id
}
