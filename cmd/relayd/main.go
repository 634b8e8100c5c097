// Command relayd is the process entrypoint: plumbing only (spec §1 names
// "the process-supervisor / plugin entrypoint" as out of scope for the
// core). It wires configuration into a store, indices, filter, engine,
// manager, rescan driver, hub, and HTTP/WebSocket server, then serves
// until an interrupt signal arrives.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RelayProject/btcrelay/configuration"
	"github.com/RelayProject/btcrelay/engine"
	"github.com/RelayProject/btcrelay/filter"
	"github.com/RelayProject/btcrelay/hub"
	"github.com/RelayProject/btcrelay/index"
	"github.com/RelayProject/btcrelay/internal/logadapter"
	relayerrors "github.com/RelayProject/btcrelay/relay"
	"github.com/RelayProject/btcrelay/manager"
	"github.com/RelayProject/btcrelay/rescan"
	"github.com/RelayProject/btcrelay/services"
	"github.com/RelayProject/btcrelay/store"
)

func main() {
	storePath := flag.String("store", "", "Badger data directory; empty selects the in-memory backend")
	listenAddr := flag.String("listen", ":8080", "HTTP/WebSocket bind address")
	apiKeyHash := flag.String("apikeyhash", "", "bcrypt hash API requests must satisfy; empty disables auth")
	network := flag.String("network", "mainnet", "mainnet or testnet3")
	flag.Parse()

	base, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer base.Sync()

	net := configuration.MainNetParams
	if *network == "testnet3" {
		net = configuration.TestNetParams
	}
	cfg := &configuration.Config{
		Mode:       configuration.Online,
		Network:    &net,
		StorePath:  *storePath,
		ListenAddr: *listenAddr,
		APIKeyHash: *apiKeyHash,
	}

	wireLoggers(base)

	kv, err := openStore(cfg)
	if err != nil {
		base.Sugar().Fatalf("open store: %v", err)
	}
	defer kv.Close()

	ix := index.New(kv)

	n, p := cfg.BloomParams()
	f, err := filter.Open(ix, n, p)
	if err != nil {
		base.Sugar().Fatalf("open filter: %v", err)
	}

	h := hub.New()

	// One process-wide write-lock shared by every public write entry
	// point (spec §5): Manager's AddRequest/DeleteRequest/Wipe and the
	// Engine's nextout writes on the ingest path.
	writeLock := &sync.Mutex{}
	mgr := manager.New(kv, ix, f, writeLock)

	chain := &unimplementedChain{}
	eng := engine.New(ix, f, h, writeLock)
	rd := rescan.New(chain, eng)

	srv := services.NewServer(ix, mgr, chain, rd, h, cfg.APIKeyHash, cfg.CORSOrigins)

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router()}

	go func() {
		base.Sugar().Infof("relayd listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			base.Sugar().Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	base.Sugar().Infof("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		base.Sugar().Errorf("http shutdown: %v", err)
	}
}

func openStore(cfg *configuration.Config) (store.KV, error) {
	if cfg.StorePath == "" {
		return store.NewMemory(), nil
	}
	return store.OpenBadger(cfg.StorePath)
}

func wireLoggers(base *zap.Logger) {
	filter.UseLogger(logadapter.New(base, "FLTR"))
	index.UseLogger(logadapter.New(base, "INDX"))
	store.UseLogger(logadapter.New(base, "STOR"))
	relayerrors.UseLogger(logadapter.New(base, "RLAY"))
	engine.UseLogger(logadapter.New(base, "ENGN"))
	manager.UseLogger(logadapter.New(base, "MNGR"))
	rescan.UseLogger(logadapter.New(base, "RSCN"))
	hub.UseLogger(logadapter.New(base, "HUB "))
	services.UseLogger(logadapter.New(base, "SRVC"))
}

// unimplementedChain is the placeholder Chain collaborator until relayd is
// wired to a real host node (spec §1: "the Bitcoin node... specified only
// by the interfaces the core consumes" — out of scope for this module).
type unimplementedChain struct{}

func (c *unimplementedChain) Tip() (engine.Tip, error) {
	return engine.Tip{}, relayerrors.NewError("Chain.Tip", relayerrors.KindStorage, errUnimplemented)
}

func (c *unimplementedChain) GetBlock(height uint32) (engine.Block, engine.BlockMeta, error) {
	return nil, engine.BlockMeta{}, relayerrors.NewError("Chain.GetBlock", relayerrors.KindStorage, errUnimplemented)
}

func (c *unimplementedChain) GetEntry(hash relayerrors.ID) (engine.BlockMeta, error) {
	return engine.BlockMeta{}, relayerrors.NewError("Chain.GetEntry", relayerrors.KindStorage, errUnimplemented)
}

func (c *unimplementedChain) GetBlockView(b engine.Block) (engine.View, error) {
	return nil, relayerrors.NewError("Chain.GetBlockView", relayerrors.KindStorage, errUnimplemented)
}

var errUnimplemented = errUnimplementedChain{}

type errUnimplementedChain struct{}

func (errUnimplementedChain) Error() string {
	return "no Chain collaborator wired; relayd was started without a host node"
}
