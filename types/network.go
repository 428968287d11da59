package types

import (
	"sort"
	"strconv"
	"strings"
)

// Network represents supported blockchain networks
type Network string

const (
	NetworkEthereum        Network = "ethereum"
	NetworkSepolia         Network = "sepolia" // testnet
	NetworkBase            Network = "base"
	NetworkBaseSepolia     Network = "base-sepolia" // testnet
	NetworkPolygon         Network = "polygon"
	NetworkPolygonAmoy     Network = "polygon-amoy" // testnet
	NetworkArbitrumOne     Network = "arbitrum-one"
	NetworkArbitrumSepolia Network = "arbitrum-sepolia" // testnet
	NetworkAvalanche       Network = "avalanche"
	NetworkAvalancheFuji   Network = "avalanche-fuji" // testnet
)

// caip2Prefix is the CAIP-2 namespace of EVM chains, e.g. "eip155:8453".
const caip2Prefix = "eip155:"

var evmChainIDs = map[Network]int64{
	NetworkEthereum:        1,
	NetworkSepolia:         11155111,
	NetworkBase:            8453,
	NetworkBaseSepolia:     84532,
	NetworkPolygon:         137,
	NetworkPolygonAmoy:     80002,
	NetworkArbitrumOne:     42161,
	NetworkArbitrumSepolia: 421614,
	NetworkAvalanche:       43114,
	NetworkAvalancheFuji:   43113,
}

// ChainID maps the network to its EVM chain id. Both the short names above
// and CAIP-2 identifiers are accepted. The match is exact: no case folding.
func (n Network) ChainID() (int64, bool) {
	if id, ok := evmChainIDs[n]; ok {
		return id, true
	}
	if rest, ok := strings.CutPrefix(string(n), caip2Prefix); ok {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	}
	return 0, false
}

// Helper functions for network classification
func (n Network) IsEVM() bool {
	_, ok := n.ChainID()
	return ok
}

func (n Network) IsTestnet() bool {
	return n == NetworkSepolia || n == NetworkBaseSepolia || n == NetworkPolygonAmoy ||
		n == NetworkArbitrumSepolia || n == NetworkAvalancheFuji
}

func (n Network) String() string {
	return string(n)
}

// SupportedNetworks lists the named networks, sorted.
func SupportedNetworks() []Network {
	networks := make([]Network, 0, len(evmChainIDs))
	for n := range evmChainIDs {
		networks = append(networks, n)
	}
	sort.Slice(networks, func(i, j int) bool { return networks[i] < networks[j] })
	return networks
}
