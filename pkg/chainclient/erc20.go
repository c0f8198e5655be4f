package chainclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const erc20ABIJSON = `[
	{
		"constant": true,
		"inputs": [
			{"name": "_owner", "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "_owner", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_to", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"payable": false,
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	erc20Once   sync.Once
	erc20Parsed abi.ABI
	erc20Err    error
)

func erc20ABI() (abi.ABI, error) {
	erc20Once.Do(func() {
		erc20Parsed, erc20Err = abi.JSON(strings.NewReader(erc20ABIJSON))
	})
	return erc20Parsed, erc20Err
}

// Allowance reads how much of token the spender may move on behalf of owner
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	return c.readUint256(ctx, token, "allowance", owner, spender)
}

// TokenBalance reads the owner's balance of an ERC-20 token
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	return c.readUint256(ctx, token, "balanceOf", owner)
}

func (c *Client) readUint256(ctx context.Context, token common.Address, method string, args ...interface{}) (*big.Int, error) {
	parsed, err := erc20ABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %v", err)
	}

	contract := bind.NewBoundContract(token, parsed, c.eth, c.eth, c.eth)

	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, fmt.Errorf("failed to call %s on chain %d: %v", method, c.ChainID, err)
	}
	if len(out) == 0 || out[0] == nil {
		return nil, fmt.Errorf("empty result from %s call", method)
	}
	value, ok := out[0].(*big.Int)
	if !ok || value == nil {
		return nil, fmt.Errorf("invalid %s result type", method)
	}
	return value, nil
}

// EncodeApprove packs an approve(spender, amount) call into hex call data
func EncodeApprove(spender common.Address, amount *big.Int) (string, error) {
	return encodeERC20("approve", spender, amount)
}

// EncodeTransfer packs a transfer(to, amount) call into hex call data
func EncodeTransfer(to common.Address, amount *big.Int) (string, error) {
	return encodeERC20("transfer", to, amount)
}

func encodeERC20(method string, addr common.Address, amount *big.Int) (string, error) {
	parsed, err := erc20ABI()
	if err != nil {
		return "", fmt.Errorf("failed to parse ERC20 ABI: %v", err)
	}
	data, err := parsed.Pack(method, addr, amount)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s call: %v", method, err)
	}
	return hexutil.Encode(data), nil
}
