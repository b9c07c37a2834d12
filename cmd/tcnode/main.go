// Command tcnode runs an in-process demo network of consensus validators,
// wired entirely from the deterministic fakes in internal/: no real
// transport or persistence, just enough to watch the round protocol reach
// commits. A urfave/cli app with a handful of flags feeding a single
// Action.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/autonity/tendercore/config"
	"github.com/autonity/tendercore/consensus"
	"github.com/autonity/tendercore/internal/chainfake"
	"github.com/autonity/tendercore/internal/cryptofake"
	"github.com/autonity/tendercore/internal/mempoolfake"
	"github.com/autonity/tendercore/internal/netfake"
	"github.com/autonity/tendercore/internal/validationfake"
	"github.com/autonity/tendercore/log"
	"github.com/autonity/tendercore/message"
	"github.com/autonity/tendercore/queue"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML config file (defaults to config.Defaults)",
	}
	validatorsFlag = cli.IntFlag{
		Name:  "validators",
		Usage: "number of validators in the in-process demo network",
		Value: 4,
	}
	txsFlag = cli.IntFlag{
		Name:  "txs",
		Usage: "number of synthetic transactions seeded into every validator's mempool",
		Value: 3,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "tcnode"
	app.Usage = "run an in-process BFT consensus demo network"
	app.Flags = []cli.Flag{configFlag, validatorsFlag, txsFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "tcnode:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Defaults
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	logger, err := log.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	n := c.Int(validatorsFlag.Name)
	if n < 1 {
		return fmt.Errorf("validators must be >= 1, got %d", n)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	network, err := buildNetwork(ctx, n, c.Int(txsFlag.Name), cfg, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, v := range network {
		engine := v.engine
		name := v.pubKey
		g.Go(func() error {
			if err := engine.Run(gctx); err != nil && gctx.Err() == nil {
				logger.Errorw("engine stopped", "validator", name, "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

type validator struct {
	pubKey message.PubKey
	engine *consensus.Engine
	chain  *chainfake.Chain
}

// buildNetwork wires n validators sharing one logical chain view (each
// gets its own chainfake.Chain instance seeded identically, since Chain is
// explicitly a per-node durable store) and one shared
// netfake.Recorder-per-sender delivering into every validator's queue —
// an in-process stand-in for a gossiping Network.
func buildNetwork(ctx context.Context, n, txCount int, cfg config.Config, logger *log.Logger) ([]*validator, error) {
	pubKeys := make([]message.PubKey, n)
	for i := range pubKeys {
		pubKeys[i] = message.PubKey(fmt.Sprintf("validator-%d", i))
	}

	queues := make([]message.Service, n)
	for i := range queues {
		queues[i] = queue.New(256, queue.DefaultDedupeSize)
	}

	proposer := func(height message.Height, round message.Round) message.PubKey {
		idx := (uint64(height) + uint64(round)) % uint64(n)
		return pubKeys[idx]
	}

	validators := make([]*validator, n)
	for i, pk := range pubKeys {
		chain := chainfake.New(1, pubKeys)
		mempool := mempoolfake.New()
		for tx := 0; tx < txCount; tx++ {
			mempool.Add(message.Transaction{
				Hash:    message.TxHash(fmt.Sprintf("tx-%d-%d", i, tx)),
				Payload: []byte(fmt.Sprintf("payload-%d-%d", i, tx)),
			})
		}
		validation := validationfake.New()
		recorder := netfake.New(ctx, queues...)
		crypto := cryptofake.New(pk)

		sm := consensus.New(crypto, recorder, chain, mempool, validation, proposer, cfg.Timeouts, log.With(logger, 0, 0))
		engine := consensus.NewEngine(sm, queues[i], logger)
		validators[i] = &validator{pubKey: pk, engine: engine, chain: chain}
	}
	return validators, nil
}
