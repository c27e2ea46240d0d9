package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/bridgeswap/settlement-engine/internal/account"
	"github.com/bridgeswap/settlement-engine/internal/adminapi"
	"github.com/bridgeswap/settlement-engine/internal/alert"
	"github.com/bridgeswap/settlement-engine/internal/config"
	"github.com/bridgeswap/settlement-engine/internal/lock"
	"github.com/bridgeswap/settlement-engine/internal/matchcache"
	"github.com/bridgeswap/settlement-engine/internal/matcher"
	"github.com/bridgeswap/settlement-engine/internal/model"
	"github.com/bridgeswap/settlement-engine/internal/ruleengine"
	"github.com/bridgeswap/settlement-engine/internal/ruleprovider"
	"github.com/bridgeswap/settlement-engine/internal/sequencer"
	"github.com/bridgeswap/settlement-engine/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "settlement-engine",
		Usage: "match-and-pay settlement pipeline for cross-chain bridge deposits",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yml", Usage: "path to config.yml"},
			&cli.BoolFlag{Name: "auto-migrate", Usage: "run gorm AutoMigrate on startup"},
			&cli.StringFlag{Name: "admin-addr", Value: ":8080", Usage: "address for the admin HTTP server"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("settlement-engine: %v", err)
	}
}

func run(c *cli.Context) error {
	log.Print("starting settlement engine")

	config.Init(c.String("config"))
	log.Printf("loaded config for %d chain(s)", len(config.Chains))

	db, err := store.Open(config.Config.Server.DatabaseDSN)
	if err != nil {
		return err
	}
	if c.Bool("auto-migrate") || config.Config.Server.AutoMigrate {
		if err := store.AutoMigrate(db); err != nil {
			return err
		}
	}

	redisAddr := fmt.Sprintf("%s:%d", config.Config.Server.RedisHost, config.Config.Server.RedisPort)
	pool := lock.Dial(redisAddr)

	bridgeStore := store.NewBridgeStore(db)
	inFlight := store.NewInFlightSet()
	exclusivity := lock.NewExclusivity(pool)
	serialStore := lock.NewSerialStore(pool)
	cache := matchcache.New()
	alerts := alert.NewLogger()

	table, err := ruleprovider.LoadTable(config.Config.RuleConfigPaths)
	if err != nil {
		return err
	}
	provider := ruleprovider.NewProvider(table, config.Config.DirectoryURL)
	registry := ruleengine.NewRegistry(provider)

	accounts, err := buildAccounts(c.Context)
	if err != nil {
		return err
	}

	reconcileStranded(bridgeStore, serialStore, accounts, alerts)

	seq := &sequencer.Sequencer{
		Store:       sequencer.NewStoreAdapter(bridgeStore, serialStore, inFlight),
		Exclusivity: exclusivity,
		InFlight:    inFlight,
		Alerts:      alerts,
		ResolveAccount: func(chainID string) (sequencer.SenderAccount, error) {
			acct, ok := accounts[chainID]
			if !ok {
				return nil, fmt.Errorf("cmd/server: no account configured for chain %s", chainID)
			}
			return acct, nil
		},
	}

	routers := make(map[string]string, len(config.Chains))
	for chainID, chain := range config.Chains {
		routers[strconv.FormatInt(chainID, 10)] = chain.RouterAddress
	}

	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()
	go sequencer.NewDispatcher(seq, inFlight, routers).Run(dispatchCtx)

	scheduler := matcher.NewScheduler(bridgeStore, cache, registry)
	scheduler.Start()
	defer scheduler.Stop()

	admin := adminapi.NewServer(c.String("admin-addr"), inFlight)
	admin.Start()
	defer admin.Stop()

	log.Print("settlement engine running")
	waitForShutdown()
	log.Print("settlement engine shutting down")
	return nil
}

// buildAccounts constructs one signer per configured chain, keyed by
// the string chain id the rest of the pipeline uses (Transfer/BridgeTransaction
// rows carry chain ids as strings throughout).
func buildAccounts(ctx context.Context) (map[string]*sequencer.AccountAdapter, error) {
	out := make(map[string]*sequencer.AccountAdapter, len(config.Chains))
	for chainID := range config.Chains {
		acct, err := account.NewAccount(chainID, config.Config.Sender.PrivateKey)
		if err != nil {
			return nil, err
		}
		if err := acct.ForceRefreshNonce(ctx); err != nil {
			log.Printf("cmd/server: could not refresh nonce for chain %d at startup: %v", chainID, err)
		}
		out[strconv.FormatInt(chainID, 10)] = sequencer.NewAccountAdapter(acct)
	}
	return out, nil
}

// reconcileStranded implements the spec.md §5 crash-recovery contract
// (scenario S3): any bridge row left at READY_PAID across a restart is
// either rolled back (no SerialRelation entry means the crash happened
// before broadcast) or promoted to PAID_SUCCESS with the recorded hash
// (an entry exists, so the payout may have landed on-chain) and handed
// to the same receipt wait the normal payout path uses, so the dest
// sweep eventually closes it.
func reconcileStranded(bridgeStore *store.BridgeStore, serialStore *lock.SerialStore, accounts map[string]*sequencer.AccountAdapter, alerts *alert.Logger) {
	rows, err := bridgeStore.FindByStatus(model.StatusReadyPaid)
	if err != nil {
		log.Printf("cmd/server: could not scan for stranded payouts: %v", err)
		return
	}
	if len(rows) > 0 {
		log.Printf("cmd/server: reconciling %d bridge tx(es) stranded at READY_PAID", len(rows))
	}

	for i := range rows {
		bt := rows[i]

		hash, found, err := serialStore.Get(bt.SourceID)
		if err != nil {
			log.Printf("cmd/server: could not check serial relation for bridge tx %d: %v", bt.ID, err)
			continue
		}
		if !found {
			if err := bridgeStore.UpdateStatusGuarded(bt.ID, model.StatusReadyPaid, model.StatusCreated, nil); err != nil {
				log.Printf("cmd/server: could not roll back stranded bridge tx %d: %v", bt.ID, err)
			}
			continue
		}

		if err := bridgeStore.UpdateStatusGuarded(bt.ID, model.StatusReadyPaid, model.StatusPaidSuccess, map[string]interface{}{
			"target_id": hash,
		}); err != nil {
			log.Printf("cmd/server: could not reconcile stranded bridge tx %d: %v", bt.ID, err)
			continue
		}
		log.Printf("cmd/server: reconciled bridge tx %d to PAID_SUCCESS with hash %s", bt.ID, hash)

		acct, ok := accounts[bt.TargetChain]
		if !ok {
			continue
		}
		go func(bridgeTxID uint, hash string, acct *sequencer.AccountAdapter) {
			if _, err := acct.WaitForTransactionConfirmation(context.Background(), hash); err != nil {
				alerts.SendMessage("reconciled receipt wait failed for "+hash+": "+err.Error(), []string{"TG"})
				return
			}
			if err := bridgeStore.UpdateStatusGuarded(bridgeTxID, model.StatusPaidSuccess, model.StatusBridgeSuccess, map[string]interface{}{
				"target_maker": acct.Address(),
			}); err != nil {
				log.Printf("cmd/server: could not close reconciled bridge tx %d: %v", bridgeTxID, err)
			}
		}(bt.ID, hash, acct)
	}
}

func waitForShutdown() {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-done
}
