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
	"bytes"
	"fmt"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// MmapSource is a read-only Source backed by a memory-mapped file. Read
// and ReadByte copy out of the mapped pages like any other Source; the
// codecs' bulk-array reads go through Read and copy as well.
type MmapSource struct {
	f    *os.File
	data mmap.MMap
	r    *bytes.Reader
}

// OpenMmapSource maps path read-only for the lifetime of the returned
// Source. Callers must call Close when done to unmap and close the file.
func OpenMmapSource(path string) (*MmapSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return &MmapSource{f: f, data: data, r: bytes.NewReader(data)}, nil
}

func (s *MmapSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err.Error() != "EOF" {
		return n, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return n, err
}

func (s *MmapSource) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return b, nil
}

// Bytes exposes the raw mapped region for callers that want to slice into
// it without copying; the codecs in this package do not use it.
func (s *MmapSource) Bytes() []byte { return s.data }

// Close unmaps and closes the underlying file.
func (s *MmapSource) Close() error {
	if err := s.data.Unmap(); err != nil {
		return fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return s.f.Close()
}
