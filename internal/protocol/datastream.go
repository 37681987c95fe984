package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

type DataStream struct {
	buffer *bytes.Buffer
	order  binary.ByteOrder
}

func NewDataStream(data []byte) *DataStream {
	return &DataStream{
		buffer: bytes.NewBuffer(data),
		order:  binary.LittleEndian,
	}
}

func NewDataStreamWriter() *DataStream {
	return &DataStream{
		buffer: new(bytes.Buffer),
		order:  binary.LittleEndian,
	}
}

func (ds *DataStream) ReadUint8() (uint8, error) {
	var val uint8
	err := binary.Read(ds.buffer, ds.order, &val)
	return val, err
}

func (ds *DataStream) ReadUint16() (uint16, error) {
	var val uint16
	err := binary.Read(ds.buffer, ds.order, &val)
	return val, err
}

func (ds *DataStream) ReadUint32() (uint32, error) {
	var val uint32
	err := binary.Read(ds.buffer, ds.order, &val)
	return val, err
}

func (ds *DataStream) ReadFloat32() (float32, error) {
	var val float32
	err := binary.Read(ds.buffer, ds.order, &val)
	return val, err
}

func (ds *DataStream) ReadVector2f() (Vector2f, error) {
	var v Vector2f
	err := binary.Read(ds.buffer, ds.order, &v)
	return v, err
}

func (ds *DataStream) ReadBytes(n int) ([]byte, error) {
	data := make([]byte, n)
	_, err := io.ReadFull(ds.buffer, data)
	return data, err
}

// ReadString reads a uint8 length prefix followed by CP437 text.
func (ds *DataStream) ReadString() (string, error) {
	n, err := ds.ReadUint8()
	if err != nil {
		return "", err
	}
	raw, err := ds.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return CP437ToString(raw)
}

func (ds *DataStream) WriteUint8(val uint8) error {
	return binary.Write(ds.buffer, ds.order, val)
}

func (ds *DataStream) WriteUint16(val uint16) error {
	return binary.Write(ds.buffer, ds.order, val)
}

func (ds *DataStream) WriteUint32(val uint32) error {
	return binary.Write(ds.buffer, ds.order, val)
}

func (ds *DataStream) WriteFloat32(val float32) error {
	return binary.Write(ds.buffer, ds.order, val)
}

func (ds *DataStream) WriteVector2f(v Vector2f) error {
	return binary.Write(ds.buffer, ds.order, v)
}

func (ds *DataStream) WriteBytes(data []byte) error {
	_, err := ds.buffer.Write(data)
	return err
}

func (ds *DataStream) WriteString(s string) error {
	encoded, err := StringToCP437(s)
	if err != nil {
		return fmt.Errorf("string %q is not cp437: %w", s, err)
	}
	if len(encoded) > MaxNameLen {
		return fmt.Errorf("string too long: %d bytes", len(encoded))
	}
	if err := ds.WriteUint8(uint8(len(encoded))); err != nil {
		return err
	}
	return ds.WriteBytes(encoded)
}

func (ds *DataStream) Bytes() []byte {
	return ds.buffer.Bytes()
}

func (ds *DataStream) CanRead(n int) bool {
	return ds.buffer.Len() >= n
}
