// Copyright (c) 2016-2019 Uber Technologies, Inc.
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
package bencode

import (
	"bytes"
	"fmt"
	"strconv"
)

// Encode serializes v into its canonical bencoded form: map keys are
// emitted in ascending byte order, and every value has exactly one valid
// encoding.
func Encode(v *Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v *Value) error {
	if v == nil {
		return fmt.Errorf("bencode: cannot encode nil value")
	}
	switch v.Kind {
	case KindInt:
		buf.WriteByte('i')
		buf.WriteString(strconv.FormatInt(v.Int, 10))
		buf.WriteByte('e')
	case KindBytes:
		buf.WriteString(strconv.Itoa(len(v.Bytes)))
		buf.WriteByte(':')
		buf.Write(v.Bytes)
	case KindList:
		buf.WriteByte('l')
		for _, item := range v.List {
			if err := encodeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	case KindMap:
		buf.WriteByte('d')
		for _, k := range v.Map.SortedKeys() {
			val, _ := v.Map.Get(k)
			buf.WriteString(strconv.Itoa(len(k)))
			buf.WriteByte(':')
			buf.WriteString(k)
			if err := encodeValue(buf, val); err != nil {
				return err
			}
		}
		buf.WriteByte('e')
	default:
		return fmt.Errorf("bencode: unknown value kind %d", v.Kind)
	}
	return nil
}
