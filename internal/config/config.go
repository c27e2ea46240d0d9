// Package config loads process configuration the way the rest of this
// service expects to find it: a base config.yml, then environment
// overrides. Chain tables and fee floors live here too since they are
// small, static, and needed by nearly every other package.
package config

import "math/big"

// Configuration is the root document decoded from config.yml and then
// overridden field-by-field from the environment.
type Configuration struct {
	Server struct {
		Port         int    `yaml:"port" envconfig:"PORT"`
		AppName      string `yaml:"app_name" envconfig:"APP_NAME"`
		RedisHost    string `yaml:"redis_host"`
		RedisPort    int    `yaml:"redis_port"`
		DatabaseDSN  string `yaml:"database_dsn" envconfig:"DATABASE_DSN"`
		AutoMigrate  bool   `yaml:"auto_migrate"`
	} `yaml:"server"`

	// Sender is the market-maker wallet used to dispatch payouts.
	Sender struct {
		PrivateKey string `yaml:"private_key" envconfig:"SENDER_PRIVATE_KEY"`
	} `yaml:"sender"`

	// RuleConfigPaths are the maker-1..4.json documents (spec.md §6).
	RuleConfigPaths []string `yaml:"rule_config_paths"`

	Cron struct {
		V1SourceSweep string `yaml:"v1_source_sweep"`
		V1DestSweep   string `yaml:"v1_dest_sweep"`
		V2SourceSweep string `yaml:"v2_source_sweep"`
		V2DestSweep   string `yaml:"v2_dest_sweep"`
	} `yaml:"cron"`

	// DirectoryURL is the JSON-RPC endpoint for the out-of-scope
	// rule-graph collaborator (spec.md §1 "mdc"/"manager").
	DirectoryURL string `yaml:"directory_url" envconfig:"DIRECTORY_URL"`

	// ChainList is the yaml-decoded form of Chains; Init() flattens it
	// into the Chains map keyed by chain id.
	ChainList []chainEntry `yaml:"chains"`
}

type chainEntry struct {
	Name                 string   `yaml:"name"`
	ChainID              int64    `yaml:"chain_id"`
	RPCList              []string `yaml:"rpc_list"`
	RouterAddress        string   `yaml:"router_address"`
	MinConfirmations     int      `yaml:"min_confirmations"`
	MinFeePerGasWei      string   `yaml:"min_fee_per_gas_wei"`
	MinPriorityPerGasWei string   `yaml:"min_priority_per_gas_wei"`
}

var Config Configuration

// ChainConfig is the static per-chain RPC/contract table, generalized
// from the teacher's EVMChains map to an arbitrary chain set keyed by
// chain id instead of four hardcoded EVM networks.
type ChainConfig struct {
	Name             string
	ChainID          int64
	RPCList          []string
	RouterAddress    string
	MinConfirmations int
	MinFeePerGas         *big.Int
	MinPriorityPerGas    *big.Int
}

// Chains is populated at startup from config.yml; exported as a map so
// callers can look up by chain id the same way the teacher's EVMChains
// map was indexed.
var Chains = map[int64]ChainConfig{}

// FeeFloor returns the configured minimum fee components for a chain,
// standing in for the out-of-scope environment/config service named in
// spec.md §4.4 and §6.
func FeeFloor(chainID int64) (minFeePerGas, minPriorityPerGas *big.Int, ok bool) {
	c, ok := Chains[chainID]
	if !ok {
		return nil, nil, false
	}
	return c.MinFeePerGas, c.MinPriorityPerGas, true
}
