package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
)

// chainDefaults lists the chains this service knows out of the box. The
// CHAINS environment variable selects which of them are enabled, and
// CHAIN_<ID>_RPC_URL / CHAIN_<ID>_MAX_GAS_PRICE override per chain.
type chainDefault struct {
	Name        string
	RPCURL      string
	MaxGasPrice string // wei
}

var chainDefaults = map[int]chainDefault{
	1:     {Name: "ethereum", RPCURL: "https://eth.llamarpc.com", MaxGasPrice: "150000000000"},
	10:    {Name: "optimism", RPCURL: "https://mainnet.optimism.io", MaxGasPrice: "5000000000"},
	56:    {Name: "bsc", RPCURL: "https://bsc-dataseed.bnbchain.org", MaxGasPrice: "20000000000"},
	137:   {Name: "polygon", RPCURL: "https://polygon-rpc.com", MaxGasPrice: "100000000000"},
	8453:  {Name: "base", RPCURL: "https://mainnet.base.org", MaxGasPrice: "5000000000"},
	42161: {Name: "arbitrum", RPCURL: "https://arb1.arbitrum.io/rpc", MaxGasPrice: "5000000000"},
	43114: {Name: "avalanche", RPCURL: "https://avalanche-c-chain-rpc.publicnode.com", MaxGasPrice: "100000000000"},
}

// GetChainName returns the name of the chain for a given chain ID
func GetChainName(chainID int) string {
	def, exists := chainDefaults[chainID]
	if !exists {
		return ""
	}
	return def.Name
}

// GetEnvChainConfigs builds the enabled chain set from environment
// variables. CHAINS holds a comma-separated list of chain IDs; when unset
// every known chain is enabled.
func GetEnvChainConfigs(globalMaxGas *big.Int) (map[int]ChainConfig, error) {
	var ids []int
	if raw := os.Getenv("CHAINS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid CHAINS entry %q, must be a chain id", part)
			}
			ids = append(ids, id)
		}
	} else {
		for id := range chainDefaults {
			ids = append(ids, id)
		}
	}

	configs := make(map[int]ChainConfig, len(ids))
	for _, id := range ids {
		def, known := chainDefaults[id]

		rpcURL := os.Getenv(fmt.Sprintf("CHAIN_%d_RPC_URL", id))
		if rpcURL == "" {
			rpcURL = def.RPCURL
		}
		if rpcURL == "" {
			return nil, fmt.Errorf("chain %d has no default RPC, CHAIN_%d_RPC_URL is required", id, id)
		}

		name := def.Name
		if !known {
			name = strconv.Itoa(id)
		}

		maxGas := globalMaxGas
		maxGasRaw := os.Getenv(fmt.Sprintf("CHAIN_%d_MAX_GAS_PRICE", id))
		if maxGasRaw == "" && known {
			maxGasRaw = def.MaxGasPrice
		}
		if maxGasRaw != "" {
			parsed, ok := new(big.Int).SetString(maxGasRaw, 10)
			if !ok {
				return nil, fmt.Errorf("invalid CHAIN_%d_MAX_GAS_PRICE value: %s", id, maxGasRaw)
			}
			maxGas = parsed
		}

		configs[id] = ChainConfig{
			ChainID:     id,
			Name:        name,
			RPCURL:      rpcURL,
			MaxGasPrice: maxGas,
		}
	}
	return configs, nil
}
