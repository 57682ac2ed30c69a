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
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// Sink is the byte-stream contract a writer consumes: write(bytes, n). No
// seek is ever used by this engine.
type Sink interface {
	Write(p []byte) (n int, err error)
}

// Source is the byte-stream contract a reader consumes: read(bytes, n) and
// get_char(). No seek is ever used.
type Source interface {
	io.Reader
	// ReadByte exposes get_char() for the text codec's token scanner.
	ReadByte() (byte, error)
}

// MemSink/MemSource back an in-memory session, the common case for tests
// and for round-tripping through Marshal/Unmarshal-style helpers.
type MemSink struct {
	buf bytes.Buffer
}

func NewMemSink() *MemSink                    { return &MemSink{} }
func (s *MemSink) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *MemSink) Bytes() []byte               { return s.buf.Bytes() }

type MemSource struct {
	r *bytes.Reader
}

func NewMemSource(data []byte) *MemSource {
	return &MemSource{r: bytes.NewReader(data)}
}

func (s *MemSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return n, err
}

func (s *MemSource) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return b, nil
}

// FileSource wraps any io.Reader (typically an *os.File) with the
// buffering the text codec's byte-at-a-time scanning needs.
type FileSource struct {
	r *bufio.Reader
}

func NewFileSource(r io.Reader) *FileSource {
	return &FileSource{r: bufio.NewReader(r)}
}

func (s *FileSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return n, err
}

func (s *FileSource) ReadByte() (byte, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStreamFailure, err)
	}
	return b, nil
}
