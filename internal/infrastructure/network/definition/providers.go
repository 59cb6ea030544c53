package networkdefinition

import (
	"portfolio_tracker/internal/domain/entity"
)

// Wrapped TON on Ethereum; tonapi has no USD quote for the native coin on DEXScreener.
const wrappedTONOnEthereum = "0x582d872A1B094FC48F5DE31D3B73F2D9bE47def1"

func evmChain(name, rpcURL, symbol, wrappedNative string) entity.Chain {
	id := entity.ChainIDFromName(name)
	return entity.Chain{
		ID:            id,
		Family:        entity.FamilyEVM,
		Name:          name,
		RPCURL:        rpcURL,
		Enabled:       true,
		DEXScreenerID: id,
		Native: entity.NativeCurrency{
			Symbol:       symbol,
			Decimals:     18,
			PriceChainID: id,
			PriceAddress: wrappedNative,
		},
	}
}

// Predefined network definitions
var builtinChains = []entity.Chain{ //nolint:gochecknoglobals // Global for definitions
	{
		ID:            "ton",
		Family:        entity.FamilyTON,
		Name:          "Ton",
		RPCURL:        "https://tonapi.io/v2",
		Enabled:       true,
		DEXScreenerID: "ton",
		Native: entity.NativeCurrency{
			Symbol:       "TON",
			Decimals:     9,
			PriceChainID: "ethereum",
			PriceAddress: wrappedTONOnEthereum,
		},
	},
	{
		ID:            "solana",
		Family:        entity.FamilySolana,
		Name:          "Solana",
		RPCURL:        "https://api.mainnet-beta.solana.com",
		Enabled:       true,
		DEXScreenerID: "solana",
		Native: entity.NativeCurrency{
			Symbol:       "SOL",
			Decimals:     9,
			PriceChainID: "solana",
			PriceAddress: "So11111111111111111111111111111111111111112", // wSOL
		},
	},
	evmChain("Ethereum", "https://eth.llamarpc.com", "ETH", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
	evmChain("Base", "https://base.llamarpc.com", "ETH", "0x4200000000000000000000000000000000000006"),
	evmChain("BSC", "https://binance.llamarpc.com", "BNB", "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"),
	evmChain("Arbitrum", "https://arbitrum.llamarpc.com", "ETH", "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),
	evmChain("Avalanche", "https://avalanche.drpc.org", "AVAX", "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"),
	evmChain("Polygon", "https://polygon.llamarpc.com", "POL", "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),
	evmChain("zkSync", "https://mainnet.era.zksync.io", "ETH", "0x5AEa5775959fBC2557Cc8789bC1bf90A239D9a91"),
	evmChain("Cronos", "https://cronos-evm-rpc.publicnode.com", "CRO", "0x5C7F8A570d578ED84E63fdFA7b1eE72dEae1AE23"),
	evmChain("Fantom", "https://fantom.drpc.org", "FTM", "0x21be370D5312f44cB42ce377BC9b8a0cEF1A4C83"),
	evmChain("Optimism", "https://mainnet.optimism.io", "ETH", "0x4200000000000000000000000000000000000006"),
	evmChain("Linea", "https://linea.drpc.org", "ETH", "0xe5D7C2a44FfDDf6b295A15c148167daaAf5Cf34f"),
	evmChain("Mantle", "https://rpc.mantle.xyz", "MNT", "0x201EBa5CC46D216Ce6DC03F6a759e8E766e956aE"),
	evmChain("Metis", "https://metis.drpc.org", "METIS", "0x75cb093E4D61d2A2e65D8e0BBb01DE8d89b53481"),
	evmChain("Core", "https://core.drpc.org", "CORE", "0x40375C92d9FAf44d2f9db9Bd9ba41a3317a2404f"),
	evmChain("Scroll", "https://rpc.scroll.io", "ETH", "0x5300000000000000000000000000000000000004"),
	evmChain("IoTeX", "https://rpc.ankr.com/iotex", "IOTX", "0xA00744882684C3e4747faEFD68D283eA44099D03"),
	evmChain("Celo", "https://forno.celo.org", "CELO", "0x471EcE3750Da237f93B8E339c536989b8978a438"),
	evmChain("PulseChain", "https://rpc.pulsechain.com", "PLS", "0xA1077a294dDE1B09bB078844df40758a5D0f9a27"),
	evmChain("Polygon zkEVM", "https://polygon-zkevm.drpc.org", "ETH", "0x4F9A0e7FD2Bf6067db6994CF12E4495Df938E6e9"),
	evmChain("Telos", "https://rpc.telos.net", "TLOS", "0xB4B01216a5Bc8F1C8A33CD990A1239030E60C905"),
}

// DefaultChains returns a fresh copy of the built-in catalog, every chain enabled.
func DefaultChains() []entity.Chain {
	defsCopy := make([]entity.Chain, len(builtinChains))
	copy(defsCopy, builtinChains)
	return defsCopy
}

// DefaultChain returns the catalog definition of a chain by its identifier.
func DefaultChain(id string) (entity.Chain, bool) {
	for _, def := range builtinChains {
		if def.ID == id {
			return def, true
		}
	}
	return entity.Chain{}, false
}
