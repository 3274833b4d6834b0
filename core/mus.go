// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"time"

	mus "github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the domain types. Timestamps are encoded as Unix
// microseconds.

// Float32SliceMUS serializes embedding vectors.
var Float32SliceMUS = ord.NewSliceSer[float32](raw.Float32)

type timeMUS struct{}

var TimeMUS = timeMUS{}

var _ mus.Serializer[time.Time] = TimeMUS

func (timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func (timeMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

func (timeMUS) Skip(bs []byte) (n int, err error) {
	return varint.Int64.Skip(bs)
}

type documentMUS struct{}

// DocumentMUS serializes Document nodes for graph storage.
var DocumentMUS = documentMUS{}

var _ mus.Serializer[Document] = DocumentMUS

func (documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.URL, bs[n:])
	n += TimeMUS.Marshal(v.InsertedAt, bs[n:])
	n += TimeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	var n1 int
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Title, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.Content, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.URL, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.InsertedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (documentMUS) Size(v Document) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.Content)
	size += ord.String.Size(v.URL)
	size += TimeMUS.Size(v.InsertedAt)
	size += TimeMUS.Size(v.UpdatedAt)
	return
}

func (documentMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 4; i++ {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	for i := 0; i < 2; i++ {
		if n1, err = TimeMUS.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	return
}

type entityMUS struct{}

// EntityMUS serializes Entity nodes for graph storage.
var EntityMUS = entityMUS{}

var _ mus.Serializer[Entity] = EntityMUS

func (entityMUS) Marshal(v Entity, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(string(v.Type), bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += TimeMUS.Marshal(v.InsertedAt, bs[n:])
	n += TimeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (entityMUS) Unmarshal(bs []byte) (v Entity, n int, err error) {
	var (
		n1  int
		typ string
	)
	if v.ID, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	if v.Name, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if typ, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Type = EntityType(typ)
	if v.Description, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.InsertedAt, n1, err = TimeMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (entityMUS) Size(v Entity) (size int) {
	size = ord.String.Size(v.ID)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(string(v.Type))
	size += ord.String.Size(v.Description)
	size += TimeMUS.Size(v.InsertedAt)
	size += TimeMUS.Size(v.UpdatedAt)
	return
}

func (entityMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	for i := 0; i < 4; i++ {
		if n1, err = ord.String.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	for i := 0; i < 2; i++ {
		if n1, err = TimeMUS.Skip(bs[n:]); err != nil {
			return n + n1, err
		}
		n += n1
	}
	return
}

type vectorRecordMUS struct{}

// VectorRecordMUS serializes vector store entries for the index file.
var VectorRecordMUS = vectorRecordMUS{}

var _ mus.Serializer[VectorRecord] = VectorRecordMUS

func (vectorRecordMUS) Marshal(v VectorRecord, bs []byte) (n int) {
	n = varint.Int64.Marshal(v.ID, bs)
	n += Float32SliceMUS.Marshal(v.Vector, bs[n:])
	n += ord.Bool.Marshal(v.Deleted, bs[n:])
	return
}

func (vectorRecordMUS) Unmarshal(bs []byte) (v VectorRecord, n int, err error) {
	var n1 int
	if v.ID, n, err = varint.Int64.Unmarshal(bs); err != nil {
		return
	}
	if v.Vector, n1, err = Float32SliceMUS.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	v.Deleted, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	return
}

func (vectorRecordMUS) Size(v VectorRecord) (size int) {
	size = varint.Int64.Size(v.ID)
	size += Float32SliceMUS.Size(v.Vector)
	size += ord.Bool.Size(v.Deleted)
	return
}

func (vectorRecordMUS) Skip(bs []byte) (n int, err error) {
	var n1 int
	if n, err = varint.Int64.Skip(bs); err != nil {
		return
	}
	if n1, err = Float32SliceMUS.Skip(bs[n:]); err != nil {
		return n + n1, err
	}
	n += n1
	n1, err = ord.Bool.Skip(bs[n:])
	return n + n1, err
}
