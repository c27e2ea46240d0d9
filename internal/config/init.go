package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// processError mirrors the teacher's config.processError: reading
// config is the one place a fatal exit on startup is acceptable.
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) {
	f, err := os.Open(path)
	if err != nil {
		processError(err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		processError(err)
	}
}

func readEnv(cfg *Configuration) {
	if err := envconfig.Process("", cfg); err != nil {
		processError(err)
	}
}

// Init loads config.yml (or the path given) then applies environment
// overrides, same two-step sequence as the teacher's config.Init().
func Init(path string) {
	if path == "" {
		path = "config.yml"
	}
	readFile(path, &Config)
	readEnv(&Config)

	if Config.Server.Port == 0 {
		Config.Server.Port = 3000
	}
	if Config.Server.AppName == "" {
		Config.Server.AppName = "arbitration-api"
	}

	loadChains()
}

// loadChains flattens Config.ChainList (decoded from config.yml) into
// the package-level Chains map, mirroring the teacher's EVMChains
// table but built from config instead of hardcoded per-network consts.
func loadChains() {
	for _, c := range Config.ChainList {
		minFee, ok := new(big.Int).SetString(c.MinFeePerGasWei, 10)
		if !ok {
			minFee = big.NewInt(0)
		}
		minPriority, ok := new(big.Int).SetString(c.MinPriorityPerGasWei, 10)
		if !ok {
			minPriority = big.NewInt(0)
		}
		Chains[c.ChainID] = ChainConfig{
			Name:              c.Name,
			ChainID:           c.ChainID,
			RPCList:           c.RPCList,
			RouterAddress:     c.RouterAddress,
			MinConfirmations:  c.MinConfirmations,
			MinFeePerGas:      minFee,
			MinPriorityPerGas: minPriority,
		}
	}
}
