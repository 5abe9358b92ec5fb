package persist

import (
	"database/sql/driver"
	"fmt"

	"github.com/mesh-intelligence/orphanage/pkg/types"
)

// KeyEncoder converts a primary-key value into the parameter bound in the
// orphan batch delete's IN list.
type KeyEncoder func(key any) (any, error)

// ValuerKeys passes keys through their driver.Valuer hook. Keys without one
// are bound unchanged.
func ValuerKeys(key any) (any, error) {
	v, ok := key.(driver.Valuer)
	if !ok {
		return key, nil
	}
	out, err := v.Value()
	if err != nil {
		return nil, fmt.Errorf("encoding key %T: %w", key, err)
	}
	return out, nil
}

// StringKeys formats keys with fmt.Sprint. A wrapped identifier such as
// types.ID becomes "{123}" rather than "123", so a delete filtered on it
// matches nothing. Kept to reproduce that defect.
func StringKeys(key any) (any, error) {
	return fmt.Sprint(key), nil
}

// KeyEncoderFor maps a Config.KeyEncoding value to an encoder. Unknown names
// fall back to ValuerKeys; Config.Validate rejects them earlier.
func KeyEncoderFor(name string) KeyEncoder {
	if name == types.KeyEncodingString {
		return StringKeys
	}
	return ValuerKeys
}

// encodeKeys encodes each ID for an IN list.
func encodeKeys(enc KeyEncoder, ids []types.ID) ([]any, error) {
	params := make([]any, 0, len(ids))
	for _, id := range ids {
		p, err := enc(id)
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}
	return params, nil
}
