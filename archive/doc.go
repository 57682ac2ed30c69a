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

// Package archive implements a symmetric object-graph serialization engine:
// it writes arbitrary in-memory object graphs, including shared and raw
// references, polymorphic values, standard containers and primitives, to a
// byte stream, and reconstructs an isomorphic graph from that stream.
//
// An Archive is bound to exactly one Codec (a binary or text encoding) for
// its whole lifetime and is not safe for concurrent use. Aggregate types
// participate by implementing Serialize; everything else is handled
// generically through the primitive transfer methods, the Shared/Interface
// reference methods, and Value, which dispatches slices, arrays, maps,
// complex numbers and Version tuples by reflection.
package archive
