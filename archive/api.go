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

// Marshal encodes v into an in-memory binary stream in one call.
func Marshal(v Aggregate) ([]byte, error) {
	sink := NewMemSink()
	a, err := Open(newBinaryWriter(sink))
	if err != nil {
		return nil, err
	}
	a.registerRootWrite(v)
	if err := v.Serialize(a); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Close(); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// Unmarshal decodes a binary stream produced by Marshal into dest.
func Unmarshal(data []byte, dest Aggregate) error {
	a, err := OpenReader(newBinaryReader(NewMemSource(data)))
	if err != nil {
		return err
	}
	defer a.Close()
	a.registerRootRead(dest)
	return dest.Serialize(a)
}

// MarshalText encodes v into the line-oriented text stream.
func MarshalText(v Aggregate) ([]byte, error) {
	sink := NewMemSink()
	a, err := Open(newTextWriter(sink))
	if err != nil {
		return nil, err
	}
	a.registerRootWrite(v)
	if err := v.Serialize(a); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.Close(); err != nil {
		return nil, err
	}
	return sink.Bytes(), nil
}

// UnmarshalText decodes a text stream produced by MarshalText into dest.
func UnmarshalText(data []byte, dest Aggregate) error {
	a, err := OpenReader(newTextReader(NewMemSource(data)))
	if err != nil {
		return err
	}
	defer a.Close()
	a.registerRootRead(dest)
	return dest.Serialize(a)
}

// Save writes v to sink using the binary codec, for callers that already
// hold an open Sink (a file, a network connection).
func Save(sink Sink, v Aggregate) error {
	a, err := Open(newBinaryWriter(sink))
	if err != nil {
		return err
	}
	a.registerRootWrite(v)
	if err := v.Serialize(a); err != nil {
		a.Close()
		return err
	}
	return a.Close()
}

// Load reads dest from source using the binary codec.
func Load(source Source, dest Aggregate) error {
	a, err := OpenReader(newBinaryReader(source))
	if err != nil {
		return err
	}
	defer a.Close()
	a.registerRootRead(dest)
	return dest.Serialize(a)
}

// SaveWithBuffers encodes v the same way Marshal does, except bulk
// float64/byte slices at least thresholdBytes long are diverted into the
// returned buffers slice instead of being inlined in the stream. Every
// bulk slice also carries a flag saying whether it was diverted, so the
// stream is read back with LoadWithBuffers, not Unmarshal. Passing those
// same buffers back to LoadWithBuffers, in order, lets a caller avoid an
// extra copy of large numeric payloads.
func SaveWithBuffers(v Aggregate, thresholdBytes int) (data []byte, buffers [][]byte, err error) {
	sink := NewMemSink()
	a, err := Open(newBinaryWriter(sink))
	if err != nil {
		return nil, nil, err
	}
	a.SetBufferCallback(thresholdBytes, func(bo BufferObject) bool {
		buffers = append(buffers, bo.ToBuffer())
		return true
	})
	a.registerRootWrite(v)
	if err := v.Serialize(a); err != nil {
		a.Close()
		return nil, nil, err
	}
	if err := a.Close(); err != nil {
		return nil, nil, err
	}
	return sink.Bytes(), buffers, nil
}

// LoadWithBuffers decodes a stream produced by SaveWithBuffers, splicing
// buffers back into the bulk slices they were diverted from.
func LoadWithBuffers(data []byte, buffers [][]byte, dest Aggregate) error {
	a, err := OpenReader(newBinaryReader(NewMemSource(data)))
	if err != nil {
		return err
	}
	defer a.Close()
	a.SetPendingBuffers(buffers)
	a.registerRootRead(dest)
	return dest.Serialize(a)
}
