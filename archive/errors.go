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

import "errors"

// Sentinel errors surfaced synchronously to the caller. All of them are
// fatal to the archive session in progress; there is no local recovery.
var (
	// ErrUnregisteredPolymorphic is returned when a write encounters a
	// dynamic type absent from the type registry, or a read encounters a
	// type name the registry does not recognize.
	ErrUnregisteredPolymorphic = errors.New("archive: dynamic type not registered")

	// ErrNotDefaultConstructible is returned when a read sentinel requires
	// default-constructing a type that has no registered constructor and
	// is not itself a plain struct the reader can zero-value allocate.
	ErrNotDefaultConstructible = errors.New("archive: type is not default constructible")

	// ErrCastFailure is returned when Upcast or Downcast exhausts every
	// declared base of a registered type without finding the requested
	// one; it usually means the hierarchy is only partially registered.
	ErrCastFailure = errors.New("archive: upcast/downcast failed against declared bases")

	// ErrStreamFailure wraps a short read, EOF, or I/O error from the
	// underlying source or sink.
	ErrStreamFailure = errors.New("archive: stream failure")

	// ErrFormatMismatch is returned when the reader consumes a token that
	// cannot be parsed in the current encoding (bad magic number, corrupt
	// length prefix, unexpected text token, ...).
	ErrFormatMismatch = errors.New("archive: format mismatch")
)
