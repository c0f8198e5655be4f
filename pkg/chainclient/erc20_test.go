package chainclient

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeApprove(t *testing.T) {
	spender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	data, err := EncodeApprove(spender, big.NewInt(1000000))
	require.NoError(t, err)

	// approve(address,uint256) selector
	assert.True(t, strings.HasPrefix(data, "0x095ea7b3"))
	assert.Contains(t, data, "2222222222222222222222222222222222222222")
	// 4-byte selector plus two 32-byte words
	assert.Len(t, data, 2+8+64+64)
}

func TestEncodeTransfer(t *testing.T) {
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data, err := EncodeTransfer(to, big.NewInt(42))
	require.NoError(t, err)

	// transfer(address,uint256) selector
	assert.True(t, strings.HasPrefix(data, "0xa9059cbb"))
	assert.True(t, strings.HasSuffix(data, "2a"))
}

func TestRegistryRequiresChains(t *testing.T) {
	_, err := NewRegistry(t.Context(), nil, nil)
	assert.Error(t, err)
}
