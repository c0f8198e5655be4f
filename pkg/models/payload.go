package models

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DataBytes decodes the payload's call data from its hex form
func (p TxPayload) DataBytes() ([]byte, error) {
	if p.Data == "" {
		return nil, nil
	}
	data, err := hexutil.Decode(p.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid call data %q: %v", p.Data, err)
	}
	return data, nil
}

// ValueWei parses the payload's value field. Aggregators emit both hex
// ("0x38d7ea4c68000") and decimal strings, so accept either.
func (p TxPayload) ValueWei() (*big.Int, error) {
	if p.Value == "" {
		return big.NewInt(0), nil
	}
	if strings.HasPrefix(p.Value, "0x") || strings.HasPrefix(p.Value, "0X") {
		v, err := hexutil.DecodeBig(p.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid hex value %q: %v", p.Value, err)
		}
		return v, nil
	}
	v, ok := new(big.Int).SetString(p.Value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid value %q", p.Value)
	}
	return v, nil
}
