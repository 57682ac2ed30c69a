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
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"
)

// magicNumber prefixes every binary-encoded stream so a reader can fail
// fast (ErrFormatMismatch) on an obviously foreign stream before trying to
// parse a version header. The text encoding has no equivalent framing
// byte since it is meant to be human-legible from the first line.
const magicNumber int16 = 0x7a6e // "nz", arbitrary but stable

var (
	versionType    = reflect.TypeOf(Version{})
	complex128Type = reflect.TypeOf(complex128(0))
	emptyIfaceType = reflect.TypeOf((*interface{})(nil)).Elem()
	aggregateIface = reflect.TypeOf((*Aggregate)(nil)).Elem()
)

// Archive is a session-scoped bidirectional codec tied to one Codec for
// its whole lifetime. It is not safe for concurrent use; two independent
// Archives over two independent streams may be driven from two
// goroutines without interaction, provided the process-wide type
// registry (types.go) is fully populated before either session begins.
type Archive struct {
	codec Codec
	dir   Direction
	refs  *refResolver

	versions *VersionTable // populated on read, by OpenReader

	bufferingEnabled bool // true once SetBufferCallback/SetPendingBuffers has been called
	bufferThreshold  int
	onBuffer         func(BufferObject) bool
	pendingBuffers   [][]byte // read side: out-of-band buffers supplied by the caller, consumed in order

	log *logrus.Entry
}

// Open begins a writing session: it writes the magic number (binary codec
// only) and the current process library-version table, then returns a
// ready Archive.
func Open(codec Codec) (*Archive, error) {
	a := &Archive{codec: codec, dir: Writing, refs: newRefResolver(), log: sessionLogger(Writing)}
	if _, ok := codec.(*binaryCodec); ok {
		if err := a.codec.WriteI16(magicNumber); err != nil {
			return nil, err
		}
	}
	if err := a.writeVersionHeader(); err != nil {
		return nil, err
	}
	a.log.Debug("archive session opened for writing")
	return a, nil
}

// OpenReader begins a reading session: it validates the magic number (for
// the binary codec) and reads back the library-version table before
// returning a ready Archive.
func OpenReader(codec Codec) (*Archive, error) {
	a := &Archive{codec: codec, dir: Reading, refs: newRefResolver(), log: sessionLogger(Reading)}
	if _, ok := codec.(*binaryCodec); ok {
		got, err := a.codec.ReadI16()
		if err != nil {
			return nil, err
		}
		if got != magicNumber {
			return nil, fmt.Errorf("%w: bad magic number %x", ErrFormatMismatch, got)
		}
	}
	vt, err := a.readVersionHeader()
	if err != nil {
		return nil, err
	}
	a.versions = vt
	a.log.Debug("archive session opened for reading")
	return a, nil
}

// Direction reports whether this session is writing or reading.
func (a *Archive) Direction() Direction { return a.dir }

// VersionOf reports what version of library the writer's process table
// held at save time; only meaningful on a reading session.
func (a *Archive) VersionOf(library string) (Version, bool) {
	if a.versions == nil {
		return Version{}, false
	}
	return a.versions.VersionOf(library)
}

// SetBufferCallback enables the zero-copy bulk-buffer path: bulk float64/
// byte arrays at least threshold bytes long are diverted to onBuffer
// instead of being inlined.
func (a *Archive) SetBufferCallback(threshold int, onBuffer func(BufferObject) bool) {
	a.bufferThreshold = threshold
	a.onBuffer = onBuffer
	a.bufferingEnabled = true
}

// SetPendingBuffers supplies the out-of-band buffers a reading session
// should splice back in, in the order SetBufferCallback's onBuffer
// produced them at save time.
func (a *Archive) SetPendingBuffers(buffers [][]byte) {
	a.pendingBuffers = buffers
	a.bufferingEnabled = true
}

func (a *Archive) nextPendingBuffer() ([]byte, bool) {
	if len(a.pendingBuffers) == 0 {
		return nil, false
	}
	b := a.pendingBuffers[0]
	a.pendingBuffers = a.pendingBuffers[1:]
	return b, true
}

func (a *Archive) writeVersionHeader() error {
	snap := snapshotProcessVersions()
	names := sortedLibraryNames(snap)
	if err := a.codec.WriteUSize(uint64(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := a.codec.WriteString(name); err != nil {
			return err
		}
		if err := a.codec.WriteString(snap[name].String()); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) readVersionHeader() (*VersionTable, error) {
	n, err := a.codec.ReadUSize()
	if err != nil {
		return nil, err
	}
	versions := make(map[string]Version, n)
	for i := uint64(0); i < n; i++ {
		name, err := a.codec.ReadString()
		if err != nil {
			return nil, err
		}
		vstr, err := a.codec.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := ParseVersion(vstr)
		if err != nil {
			return nil, err
		}
		versions[name] = v
	}
	return &VersionTable{versions: versions}, nil
}

// Close flushes and releases the underlying codec. The binary writer must
// flush on every exit path, including an error path, so callers should
// defer Close immediately after Open succeeds.
func (a *Archive) Close() error {
	return a.codec.Close()
}

// ---- primitive transfer ----

func (a *Archive) Bool(v *bool) error {
	if a.dir == Writing {
		return a.codec.WriteBool(*v)
	}
	b, err := a.codec.ReadBool()
	if err != nil {
		return err
	}
	*v = b
	return nil
}

func (a *Archive) I16(v *int16) error {
	if a.dir == Writing {
		return a.codec.WriteI16(*v)
	}
	n, err := a.codec.ReadI16()
	if err != nil {
		return err
	}
	*v = n
	return nil
}

func (a *Archive) I32(v *int32) error {
	if a.dir == Writing {
		return a.codec.WriteI32(*v)
	}
	n, err := a.codec.ReadI32()
	if err != nil {
		return err
	}
	*v = n
	return nil
}

func (a *Archive) I64(v *int64) error {
	if a.dir == Writing {
		return a.codec.WriteI64(*v)
	}
	n, err := a.codec.ReadI64()
	if err != nil {
		return err
	}
	*v = n
	return nil
}

func (a *Archive) U8(v *byte) error {
	if a.dir == Writing {
		return a.codec.WriteU8(*v)
	}
	n, err := a.codec.ReadU8()
	if err != nil {
		return err
	}
	*v = n
	return nil
}

func (a *Archive) F64(v *float64) error {
	if a.dir == Writing {
		return a.codec.WriteF64(*v)
	}
	n, err := a.codec.ReadF64()
	if err != nil {
		return err
	}
	*v = n
	return nil
}

func (a *Archive) USize(v *uint64) error {
	if a.dir == Writing {
		return a.codec.WriteUSize(*v)
	}
	n, err := a.codec.ReadUSize()
	if err != nil {
		return err
	}
	*v = n
	return nil
}

func (a *Archive) String(v *string) error {
	if a.dir == Writing {
		return a.codec.WriteString(*v)
	}
	s, err := a.codec.ReadString()
	if err != nil {
		return err
	}
	*v = s
	return nil
}

// CString transfers an optional owned C-string: *v == nil writes/reads the
// null sentinel.
func (a *Archive) CString(v **string) error {
	if a.dir == Writing {
		return a.codec.WriteCString(*v)
	}
	s, err := a.codec.ReadCString()
	if err != nil {
		return err
	}
	*v = s
	return nil
}

// Value transfers an arbitrary addressable destination by reflection,
// dispatching on its kind. It is the generic path used for slice/map/
// array elements and struct fields whose static type isn't known until
// the surrounding container is walked; Serialize methods generated by
// package codegen also call it once per field.
func (a *Archive) Value(dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("archive: Value requires a non-nil pointer, got %T", dest)
	}
	return a.value(rv.Elem())
}

func (a *Archive) value(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Bool:
		if a.dir == Writing {
			return a.codec.WriteBool(v.Bool())
		}
		b, err := a.codec.ReadBool()
		if err != nil {
			return err
		}
		v.SetBool(b)
		return nil
	case reflect.Int16:
		if a.dir == Writing {
			return a.codec.WriteI16(int16(v.Int()))
		}
		n, err := a.codec.ReadI16()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
		return nil
	case reflect.Int32:
		if a.dir == Writing {
			return a.codec.WriteI32(int32(v.Int()))
		}
		n, err := a.codec.ReadI32()
		if err != nil {
			return err
		}
		v.SetInt(int64(n))
		return nil
	case reflect.Int, reflect.Int64:
		if a.dir == Writing {
			return a.codec.WriteI64(v.Int())
		}
		n, err := a.codec.ReadI64()
		if err != nil {
			return err
		}
		v.SetInt(n)
		return nil
	case reflect.Uint8:
		if a.dir == Writing {
			return a.codec.WriteU8(byte(v.Uint()))
		}
		n, err := a.codec.ReadU8()
		if err != nil {
			return err
		}
		v.SetUint(uint64(n))
		return nil
	case reflect.Uint, reflect.Uint64:
		if a.dir == Writing {
			return a.codec.WriteUSize(v.Uint())
		}
		n, err := a.codec.ReadUSize()
		if err != nil {
			return err
		}
		v.SetUint(n)
		return nil
	case reflect.Float64, reflect.Float32:
		if a.dir == Writing {
			return a.codec.WriteF64(v.Float())
		}
		n, err := a.codec.ReadF64()
		if err != nil {
			return err
		}
		v.SetFloat(n)
		return nil
	case reflect.String:
		if a.dir == Writing {
			return a.codec.WriteString(v.String())
		}
		s, err := a.codec.ReadString()
		if err != nil {
			return err
		}
		v.SetString(s)
		return nil
	case reflect.Complex128, reflect.Complex64:
		return a.transferComplex128(v)
	case reflect.Struct:
		if v.Type() == versionType {
			return a.transferVersion(v)
		}
		return a.transferAggregate(v)
	case reflect.Ptr:
		return a.Shared(v)
	case reflect.Interface:
		if v.Type() == emptyIfaceType {
			return a.transferDynamic(v)
		}
		return a.Interface(v)
	case reflect.Slice:
		return a.transferSlice(v)
	case reflect.Array:
		return a.transferArray(v)
	case reflect.Map:
		return a.transferMap(v)
	default:
		return fmt.Errorf("archive: unsupported kind %s", v.Kind())
	}
}

func (a *Archive) transferAggregate(v reflect.Value) error {
	agg, ok := v.Addr().Interface().(Aggregate)
	if !ok {
		a.log.WithField("value", Dump(v.Interface())).Debug("value is not an Aggregate")
		return fmt.Errorf("archive: %s does not implement Aggregate", v.Type())
	}
	return agg.Serialize(a)
}

// registerRootWrite claims the root object's own shared identity before its
// body is serialized, so a reference anywhere in the graph that points back
// to the root resolves to the root's id instead of minting a phantom
// duplicate. Only pointer-typed Aggregates participate; a value-typed root
// has no address for a back-reference to target in the first place.
func (a *Archive) registerRootWrite(v Aggregate) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		id := a.refs.nextSharedID()
		a.refs.sharedAddrToID[rv.Pointer()] = id
	}
}

// registerRootRead seeds sharedByID with the caller's destination object
// under the same id the write side claimed for the root, so a back-reference
// to the root resolves to dest itself rather than a freshly allocated copy.
func (a *Archive) registerRootRead(dest Aggregate) {
	rv := reflect.ValueOf(dest)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		id := a.refs.nextSharedID()
		a.refs.sharedByID[id] = rv
	}
}

// Shared transfers a concrete *T field by shared-reference identity: the
// same live pointer encountered twice shares one wire identity and comes
// back as the same Go pointer on the reading side. Only -1 (new) and -2
// (null) sentinels appear here; -3 is reserved for Interface.
func (a *Archive) Shared(v reflect.Value) error {
	if a.dir == Writing {
		if v.IsNil() {
			return a.codec.WriteI64(sentinelNull)
		}
		addr := v.Pointer()
		if id, ok := a.refs.sharedAddrToID[addr]; ok {
			return a.codec.WriteI64(id)
		}
		id := a.refs.nextSharedID()
		a.refs.sharedAddrToID[addr] = id
		if err := a.codec.WriteI64(sentinelNewInline); err != nil {
			return err
		}
		elem := v.Elem()
		if elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Interface {
			return fmt.Errorf("%w: pointer to %s is not default constructible", ErrNotDefaultConstructible, elem.Kind())
		}
		return a.value(elem)
	}
	tag, err := a.codec.ReadI64()
	if err != nil {
		return err
	}
	switch tag {
	case sentinelNull:
		v.Set(reflect.Zero(v.Type()))
		return nil
	case sentinelNewInline:
		id := a.refs.nextSharedID()
		ptr := reflect.New(v.Type().Elem())
		a.refs.sharedByID[id] = ptr
		v.Set(ptr)
		elem := ptr.Elem()
		if elem.Kind() == reflect.Ptr || elem.Kind() == reflect.Interface {
			return fmt.Errorf("%w: pointer to %s is not default constructible", ErrNotDefaultConstructible, elem.Kind())
		}
		return a.value(elem)
	default:
		existing, ok := a.refs.sharedByID[tag]
		if !ok {
			return fmt.Errorf("%w: unknown shared reference id %d", ErrFormatMismatch, tag)
		}
		v.Set(existing)
		return nil
	}
}

// Interface transfers a named-interface field by raw-reference identity,
// reconstructing the concrete type from the process-wide registry. -3
// marks a newly encountered instance; -2 marks nil; any other value is a
// back-reference id.
func (a *Archive) Interface(v reflect.Value) error {
	if a.dir == Writing {
		if v.IsNil() {
			return a.codec.WriteI64(sentinelNull)
		}
		concrete := v.Elem()
		if concrete.Kind() != reflect.Ptr {
			return fmt.Errorf("%w: dynamic value of kind %s behind an interface field", ErrNotDefaultConstructible, concrete.Kind())
		}
		addr := concrete.Pointer()
		if id, ok := a.refs.rawAddrToID[addr]; ok {
			return a.codec.WriteI64(id)
		}
		d, ok := lookupByValue(concrete)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnregisteredPolymorphic, concrete.Type())
		}
		id := a.refs.nextRawID()
		a.refs.rawAddrToID[addr] = id
		if err := a.codec.WriteI64(sentinelNewPolymorphic); err != nil {
			return err
		}
		if err := a.codec.WriteString(d.Name); err != nil {
			return err
		}
		if err := a.codec.WriteI32(int32(d.ShapeHash)); err != nil {
			return err
		}
		return a.value(concrete.Elem())
	}
	tag, err := a.codec.ReadI64()
	if err != nil {
		return err
	}
	switch tag {
	case sentinelNull:
		v.Set(reflect.Zero(v.Type()))
		return nil
	case sentinelNewPolymorphic:
		name, err := a.codec.ReadString()
		if err != nil {
			return err
		}
		d, err := lookupByName(name)
		if err != nil {
			return err
		}
		wireHash, err := a.codec.ReadI32()
		if err != nil {
			return err
		}
		if uint32(wireHash) != d.ShapeHash {
			return fmt.Errorf("%w: %s shape hash %x on wire does not match registered %x", ErrFormatMismatch, name, uint32(wireHash), d.ShapeHash)
		}
		instance := d.Construct()
		id := a.refs.nextRawID()
		a.refs.rawByID[id] = instance
		if err := a.value(instance.Elem()); err != nil {
			return err
		}
		casted, err := d.Upcast(instance, v.Type())
		if err != nil {
			return err
		}
		v.Set(casted)
		return nil
	default:
		existing, ok := a.refs.rawByID[tag]
		if !ok {
			return fmt.Errorf("%w: unknown raw reference id %d", ErrFormatMismatch, tag)
		}
		d, ok := lookupByValue(existing)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnregisteredPolymorphic, existing.Type())
		}
		casted, err := d.Upcast(existing, v.Type())
		if err != nil {
			return err
		}
		v.Set(casted)
		return nil
	}
}

func (a *Archive) transferComplex128(v reflect.Value) error {
	if a.dir == Writing {
		c := v.Complex()
		if err := a.codec.WriteF64(real(c)); err != nil {
			return err
		}
		return a.codec.WriteF64(imag(c))
	}
	re, err := a.codec.ReadF64()
	if err != nil {
		return err
	}
	im, err := a.codec.ReadF64()
	if err != nil {
		return err
	}
	v.SetComplex(complex(re, im))
	return nil
}

func (a *Archive) transferVersion(v reflect.Value) error {
	if a.dir == Writing {
		ver := v.Interface().(Version)
		return a.codec.WriteString(ver.String())
	}
	s, err := a.codec.ReadString()
	if err != nil {
		return err
	}
	ver, err := ParseVersion(s)
	if err != nil {
		return err
	}
	v.Set(reflect.ValueOf(ver))
	return nil
}

func float64ToBytes(vals []float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func bytesToFloat64(raw []byte) []float64 {
	out := make([]float64, len(raw)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return out
}

// tryDivertFloats diverts a bulk float64 slice to the out-of-band buffer
// callback when one is configured and the slice is at least as large as
// the configured threshold; it reports whether the diversion happened.
func (a *Archive) tryDivertFloats(v reflect.Value) bool {
	if a.onBuffer == nil || v.Len()*8 < a.bufferThreshold {
		return false
	}
	return a.onBuffer(BufferObject{data: float64ToBytes(v.Interface().([]float64))})
}

func (a *Archive) tryDivertBytes(v reflect.Value) bool {
	if a.onBuffer == nil || v.Len() < a.bufferThreshold {
		return false
	}
	return a.onBuffer(BufferObject{data: append([]byte(nil), v.Bytes()...)})
}

// transferSlice handles dynamically-sized slices. []float64 and []byte
// get a dedicated bulk path (and can be diverted to an out-of-band
// buffer); every other element type is transferred one element at a
// time after a USize length prefix.
func (a *Archive) transferSlice(v reflect.Value) error {
	elemType := v.Type().Elem()
	if a.dir == Writing {
		n := v.Len()
		if err := a.codec.WriteUSize(uint64(n)); err != nil {
			return err
		}
		switch elemType.Kind() {
		case reflect.Float64:
			if !a.bufferingEnabled {
				return a.codec.WriteBulkF64(v.Interface().([]float64))
			}
			buffered := a.tryDivertFloats(v)
			if err := a.codec.WriteBool(buffered); err != nil {
				return err
			}
			if buffered {
				return nil
			}
			return a.codec.WriteBulkF64(v.Interface().([]float64))
		case reflect.Uint8:
			if !a.bufferingEnabled {
				return a.codec.WriteBulkBytes(v.Bytes())
			}
			buffered := a.tryDivertBytes(v)
			if err := a.codec.WriteBool(buffered); err != nil {
				return err
			}
			if buffered {
				return nil
			}
			return a.codec.WriteBulkBytes(v.Bytes())
		default:
			for i := 0; i < n; i++ {
				if err := a.value(v.Index(i)); err != nil {
					return err
				}
			}
			return nil
		}
	}

	n, err := a.codec.ReadUSize()
	if err != nil {
		return err
	}
	switch elemType.Kind() {
	case reflect.Float64:
		buffered := false
		if a.bufferingEnabled {
			var err error
			buffered, err = a.codec.ReadBool()
			if err != nil {
				return err
			}
		}
		if buffered {
			raw, ok := a.nextPendingBuffer()
			if !ok {
				return fmt.Errorf("%w: missing out-of-band float buffer", ErrStreamFailure)
			}
			v.Set(reflect.ValueOf(bytesToFloat64(raw)))
			return nil
		}
		vals, err := a.codec.ReadBulkF64(int(n))
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(vals))
		return nil
	case reflect.Uint8:
		buffered := false
		if a.bufferingEnabled {
			var err error
			buffered, err = a.codec.ReadBool()
			if err != nil {
				return err
			}
		}
		if buffered {
			raw, ok := a.nextPendingBuffer()
			if !ok {
				return fmt.Errorf("%w: missing out-of-band byte buffer", ErrStreamFailure)
			}
			v.Set(reflect.ValueOf(raw).Convert(v.Type()))
			return nil
		}
		vals, err := a.codec.ReadBulkBytes(int(n))
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(vals).Convert(v.Type()))
		return nil
	default:
		s := reflect.MakeSlice(v.Type(), int(n), int(n))
		for i := 0; i < int(n); i++ {
			if err := a.value(s.Index(i)); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil
	}
}

// transferArray handles fixed-size arrays: the length is already known
// from the type on both ends, so no length prefix is written.
func (a *Archive) transferArray(v reflect.Value) error {
	for i := 0; i < v.Len(); i++ {
		if err := a.value(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// transferMap handles maps of any key/value kind supported by value().
func (a *Archive) transferMap(v reflect.Value) error {
	t := v.Type()
	if a.dir == Writing {
		keys := v.MapKeys()
		if err := a.codec.WriteUSize(uint64(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			if err := a.value(k); err != nil {
				return err
			}
			val := reflect.New(t.Elem()).Elem()
			val.Set(v.MapIndex(k))
			if err := a.value(val); err != nil {
				return err
			}
		}
		return nil
	}
	n, err := a.codec.ReadUSize()
	if err != nil {
		return err
	}
	m := reflect.MakeMapWithSize(t, int(n))
	for i := uint64(0); i < n; i++ {
		k := reflect.New(t.Key()).Elem()
		if err := a.value(k); err != nil {
			return err
		}
		val := reflect.New(t.Elem()).Elem()
		if err := a.value(val); err != nil {
			return err
		}
		m.SetMapIndex(k, val)
	}
	v.Set(m)
	return nil
}

// transferDynamic handles a bare interface{}/any value: a type tag line
// precedes the payload so the reader can reconstruct without any static
// type information. Slices and maps reached this way get the same
// shared-identity treatment as Shared, keyed off their backing-array/map
// pointer, so an alias of a dynamic slice or map dedupes on read just
// like an aliased *T field does.
func (a *Archive) transferDynamic(v reflect.Value) error {
	if a.dir == Writing {
		elem := v.Elem()
		if !elem.IsValid() {
			return a.codec.WriteString("nil")
		}
		switch elem.Kind() {
		case reflect.Slice, reflect.Map:
			addr := elem.Pointer()
			if id, ok := a.refs.sharedAddrToID[addr]; ok {
				if err := a.codec.WriteString("ref"); err != nil {
					return err
				}
				return a.codec.WriteI64(id)
			}
			a.refs.sharedAddrToID[addr] = a.refs.nextSharedID()
			if elem.Kind() == reflect.Slice {
				if err := a.codec.WriteString("slice"); err != nil {
					return err
				}
				n := elem.Len()
				if err := a.codec.WriteUSize(uint64(n)); err != nil {
					return err
				}
				for i := 0; i < n; i++ {
					if err := a.transferDynamic(elem.Index(i)); err != nil {
						return err
					}
				}
				return nil
			}
			if err := a.codec.WriteString("map"); err != nil {
				return err
			}
			keys := elem.MapKeys()
			if err := a.codec.WriteUSize(uint64(len(keys))); err != nil {
				return err
			}
			for _, k := range keys {
				if err := a.codec.WriteString(fmt.Sprint(k.Interface())); err != nil {
					return err
				}
				if err := a.transferDynamic(elem.MapIndex(k)); err != nil {
					return err
				}
			}
			return nil
		case reflect.Bool:
			if err := a.codec.WriteString("bool"); err != nil {
				return err
			}
			return a.codec.WriteBool(elem.Bool())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if err := a.codec.WriteString("i64"); err != nil {
				return err
			}
			return a.codec.WriteI64(elem.Int())
		case reflect.Float32, reflect.Float64:
			if err := a.codec.WriteString("f64"); err != nil {
				return err
			}
			return a.codec.WriteF64(elem.Float())
		case reflect.String:
			if err := a.codec.WriteString("string"); err != nil {
				return err
			}
			return a.codec.WriteString(elem.String())
		case reflect.Ptr:
			d, ok := lookupByValue(elem)
			if !ok {
				return fmt.Errorf("%w: %s boxed in interface{}", ErrUnregisteredPolymorphic, elem.Type())
			}
			if err := a.codec.WriteString("type:" + d.Name); err != nil {
				return err
			}
			if err := a.codec.WriteI32(int32(d.ShapeHash)); err != nil {
				return err
			}
			return a.value(elem.Elem())
		default:
			return fmt.Errorf("archive: dynamic value of kind %s cannot be transferred", elem.Kind())
		}
	}

	tag, err := a.codec.ReadString()
	if err != nil {
		return err
	}
	switch {
	case tag == "nil":
		v.Set(reflect.Zero(v.Type()))
		return nil
	case tag == "ref":
		id, err := a.codec.ReadI64()
		if err != nil {
			return err
		}
		existing, ok := a.refs.sharedByID[id]
		if !ok {
			return fmt.Errorf("%w: unknown dynamic reference id %d", ErrFormatMismatch, id)
		}
		v.Set(existing)
		return nil
	case tag == "slice":
		id := a.refs.nextSharedID()
		n, err := a.codec.ReadUSize()
		if err != nil {
			return err
		}
		s := reflect.MakeSlice(reflect.SliceOf(emptyIfaceType), int(n), int(n))
		a.refs.sharedByID[id] = s
		for i := 0; i < int(n); i++ {
			if err := a.transferDynamic(s.Index(i)); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil
	case tag == "map":
		id := a.refs.nextSharedID()
		n, err := a.codec.ReadUSize()
		if err != nil {
			return err
		}
		m := reflect.MakeMapWithSize(reflect.MapOf(reflect.TypeOf(""), emptyIfaceType), int(n))
		a.refs.sharedByID[id] = m
		for i := uint64(0); i < n; i++ {
			k, err := a.codec.ReadString()
			if err != nil {
				return err
			}
			val := reflect.New(emptyIfaceType).Elem()
			if err := a.transferDynamic(val); err != nil {
				return err
			}
			m.SetMapIndex(reflect.ValueOf(k), val)
		}
		v.Set(m)
		return nil
	case tag == "bool":
		b, err := a.codec.ReadBool()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(b))
		return nil
	case tag == "i64":
		n, err := a.codec.ReadI64()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(n))
		return nil
	case tag == "f64":
		f, err := a.codec.ReadF64()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(f))
		return nil
	case tag == "string":
		s, err := a.codec.ReadString()
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(s))
		return nil
	case strings.HasPrefix(tag, "type:"):
		name := strings.TrimPrefix(tag, "type:")
		d, err := lookupByName(name)
		if err != nil {
			return err
		}
		wireHash, err := a.codec.ReadI32()
		if err != nil {
			return err
		}
		if uint32(wireHash) != d.ShapeHash {
			return fmt.Errorf("%w: %s shape hash %x on wire does not match registered %x", ErrFormatMismatch, name, uint32(wireHash), d.ShapeHash)
		}
		instance := d.Construct()
		if err := a.value(instance.Elem()); err != nil {
			return err
		}
		v.Set(instance)
		return nil
	default:
		return fmt.Errorf("%w: unrecognized dynamic tag %q", ErrFormatMismatch, tag)
	}
}
