package store

import "github.com/vmihailenco/msgpack/v5"

// values crossing a process boundary (Redis, MySQL) are msgpack encoded;
// maps come back as map[string]any and integers as the smallest fitting type

func encodeValue(key string, value any) ([]byte, error) {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return nil, ErrCodec(key, err)
	}
	return data, nil
}

func decodeValue(key string, data []byte) (any, error) {
	var value any
	if err := msgpack.Unmarshal(data, &value); err != nil {
		return nil, ErrCodec(key, err)
	}
	return value, nil
}
