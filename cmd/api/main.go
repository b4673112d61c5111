package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/provideplatform/bungee/bungee"
	"github.com/provideplatform/bungee/common"
	"github.com/provideplatform/bungee/ledger/providers"
	"github.com/provideplatform/bungee/signer"
	provide "github.com/provideplatform/provide-go/common"
)

const runloopSleepInterval = 250 * time.Millisecond
const runloopTickInterval = 5000 * time.Millisecond
const shutdownTimeout = 10 * time.Second

var (
	cancelF     context.CancelFunc
	closing     uint32
	shutdownCtx context.Context
	sigs        chan os.Signal

	srv *http.Server
	wg  sync.WaitGroup
)

func init() {
	if common.ConsumeNATSStreamingSubscriptions || common.NotificationsEnabled {
		bungee.RequireNatsStream()
	}
}

func main() {
	common.Log.Debugf("starting bungee API...")
	installSignalHandlers()

	o, err := requireOrchestrator()
	if err != nil {
		common.Log.Panicf("failed to initialize bungee; %s", err.Error())
	}

	if common.ConsumeNATSStreamingSubscriptions {
		bungee.RequireMergeConsumers(o, &wg)
	}

	runAPI(o)

	timer := time.NewTicker(runloopTickInterval)
	defer timer.Stop()

	for !shuttingDown() {
		select {
		case <-timer.C:
			// tick... no-op
		case sig := <-sigs:
			common.Log.Debugf("received signal: %s", sig)
			shutdown()
		case <-shutdownCtx.Done():
			close(sigs)
		default:
			time.Sleep(runloopSleepInterval)
		}
	}

	common.Log.Debug("exiting bungee API")
	cancelF()
}

func requireOrchestrator() (*bungee.Orchestrator, error) {
	s, err := signer.InitSigner(common.SignatureScheme, common.PrivateKey)
	if err != nil {
		return nil, err
	}

	var notifier bungee.Notifier
	if common.NotificationsEnabled {
		notifier = &bungee.NatsNotifier{}
	}

	o, err := bungee.NewOrchestrator(common.Log, s, notifier)
	if err != nil {
		return nil, err
	}

	evm, err := providers.InitEVMProvider(common.Log)
	if err != nil {
		return nil, err
	}

	memory, err := providers.InitMemoryProvider()
	if err != nil {
		return nil, err
	}

	strategies := map[string]providers.LedgerStateProvider{
		providers.LedgerStateProviderMemory:    memory,
		providers.LedgerStateProviderConnector: providers.InitConnectorProvider(common.Log, common.ConnectorTimeout, common.ConnectorRetries),
		providers.LedgerStateProviderEVM:       evm,
	}
	for _, id := range common.SortedKeys(strategies) {
		if err := o.AddStrategy(id, strategies[id]); err != nil {
			return nil, err
		}
	}

	common.Log.Debugf("initialized bungee orchestrator; scheme: %s; public key: %s", o.SignatureScheme(), o.PublicKey())
	return o, nil
}

func installSignalHandlers() {
	common.Log.Debug("installing signal handlers for bungee API")
	sigs = make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	shutdownCtx, cancelF = context.WithCancel(context.Background())
}

func shutdown() {
	if atomic.CompareAndSwapUint32(&closing, 0, 1) {
		common.Log.Debug("shutting down bungee API")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				common.Log.Warningf("failed to gracefully shutdown bungee API; %s", err.Error())
			}
		}

		cancelF()
	}
}

func runAPI(o *bungee.Orchestrator) {
	r := gin.Default()

	r.GET("/status", statusHandler)
	bungee.InstallAPI(r, o)

	srv = &http.Server{
		Addr:    common.ListenAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.Log.Panicf("failed to start bungee API on %s; %s", common.ListenAddr, err.Error())
		}
	}()

	common.Log.Debugf("listening on %s", common.ListenAddr)
}

func statusHandler(c *gin.Context) {
	provide.Render(nil, 204, c)
}

func shuttingDown() bool {
	return atomic.LoadUint32(&closing) > 0
}
