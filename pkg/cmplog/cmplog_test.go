// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package cmplog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetadataCapsPerPC(t *testing.T) {
	m := NewMetadata()
	for i := 0; i < 100; i++ {
		m.Record(0x1000, Value{Kind: KindU32, U: uint64(i)}, Value{Kind: KindU32, U: 0})
	}
	require.Equal(t, 32, m.Len())
}

func TestValueAsBytesLittleEndian(t *testing.T) {
	v := Value{Kind: KindU32, U: 0x01020304}
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, v.AsBytes())
}

func TestValueAsBytesRaw(t *testing.T) {
	v := Value{Kind: KindBytes, B: []byte("needle")}
	require.Equal(t, []byte("needle"), v.AsBytes())
}
