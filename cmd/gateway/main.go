// Command gateway runs the unified blockchain explorer HTTP gateway.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blocksetgw/gateway/internal/client"
	"github.com/blocksetgw/gateway/internal/config"
	"github.com/blocksetgw/gateway/internal/feeprovider"
	"github.com/blocksetgw/gateway/internal/httpapi"
	"github.com/blocksetgw/gateway/internal/logging"
	"github.com/blocksetgw/gateway/internal/metrics"
	"github.com/blocksetgw/gateway/internal/provider"
	"github.com/blocksetgw/gateway/internal/provider/blockbook"
	"github.com/blocksetgw/gateway/internal/provider/blockchair"
	"github.com/blocksetgw/gateway/internal/provider/blockcypher"
	"github.com/blocksetgw/gateway/internal/provider/etherscan"
	"github.com/blocksetgw/gateway/internal/provider/ripple"
	"github.com/blocksetgw/gateway/internal/provider/tezos"
	"github.com/blocksetgw/gateway/internal/transport"
)

func main() {
	cfg, warnings, err := config.Load()
	if err != nil {
		logging.NewDefault().Fatal().Err(err).Msg("failed to load config")
	}

	log := logging.New(os.Stderr, cfg.LogLevel)
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)

	httpClient := transport.NewClient(nil, log, m)
	routing := buildRouting(httpClient, cfg)

	core := client.New(routing)
	router := httpapi.NewRouter(core, log)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ServerAddr).Msg("gateway listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildRouting wires the fixed chain-id-to-provider table of spec.md
// §4.1, plus bitcoin-testnet routed to BlockChair.
func buildRouting(httpClient *transport.Client, cfg config.Config) map[string]provider.Provider {
	bitgoFees := feeprovider.NewBitGoFeeProvider(httpClient)

	blockcypherAdapter := blockcypher.New(httpClient, bitgoFees, cfg.BlockCypherToken, cfg.BlockCypherGate)
	blockbookAdapter := blockbook.New(httpClient, bitgoFees)

	etherscanGate := transport.NewGate(cfg.EtherscanGate)
	etherscanFees := feeprovider.NewEtherscanFeeProvider(httpClient, etherscanGate, cfg.EtherscanToken)
	etherscanAdapter := etherscan.New(httpClient, etherscanFees, cfg.EtherscanToken, etherscanGate)

	blockchairAdapter := blockchair.New(httpClient, bitgoFees, cfg.BlockChairToken)
	rippleAdapter := ripple.New(httpClient)
	tezosAdapter := tezos.New(httpClient)

	return map[string]provider.Provider{
		"bitcoin-mainnet":     blockcypherAdapter,
		"litecoin-mainnet":    blockcypherAdapter,
		"dogecoin-mainnet":    blockcypherAdapter,
		"bitcoincash-mainnet": blockbookAdapter,
		"bitcoin-testnet":     blockchairAdapter,
		"ethereum-mainnet":    etherscanAdapter,
		"ripple-mainnet":      rippleAdapter,
		"tezos-mainnet":       tezosAdapter,
	}
}
