// mlscored is a thin HTTP host for the mlscore session layer: it boots
// structured logging, ensures the data directory exists with a
// restrictive umask, and serves the JSON-RPC façade.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/sys/unix"

	"github.com/luxfi/log"

	"github.com/cairnmsg/mlscore"
	"github.com/cairnmsg/mlscore/internal/config"
	"github.com/cairnmsg/mlscore/internal/rpcserver"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a JSON config file")
		dataDir    = flag.String("datadir", "", "override the configured data directory")
		rpcAddr    = flag.String("rpc-addr", "", "override the configured RPC listen address")
		logLevel   = flag.String("log-level", "", "override the configured log level")
		logFile    = flag.String("log-file", "", "write access logs to this file instead of stdout (mirrored to stdout when it is a terminal)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath, &config.Options{
		DataDir:  *dataDir,
		RPCAddr:  *rpcAddr,
		LogLevel: *logLevel,
		LogFile:  *logFile,
		LogToTTY: isatty.IsTerminal(os.Stdout.Fd()),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := log.New("component", "mlscored", "level", cfg.Log.Level)
	mlscore.SetLogger(logger)

	// 0077 so anything mlscored creates from here on (the access log
	// file, anything under DataDir) isn't group/world-readable.
	oldUmask := unix.Umask(0o077)
	defer unix.Umask(oldUmask)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		logger.Error("failed to create data directory", "error", err, "path", cfg.DataDir)
		os.Exit(1)
	}

	handler, accessLog, err := rpcserver.NewHandler(cfg)
	if err != nil {
		logger.Error("failed to build rpc handler", "error", err)
		os.Exit(1)
	}
	defer accessLog.Close()

	logger.Info("starting mlscored", "addr", cfg.RPC.Addr, "path", cfg.RPC.Path, "datadir", cfg.DataDir)
	if err := http.ListenAndServe(cfg.RPC.Addr, handler); err != nil {
		logger.Error("rpc server exited", "error", err)
		os.Exit(1)
	}
}
