package rpcserver

import (
	"io"
	"net/http"

	"github.com/gorilla/rpc"
	"github.com/gorilla/rpc/json2"

	"github.com/cairnmsg/mlscore/internal/config"
)

// NewHandler builds an http.Handler serving MLSService as JSON-RPC 2.0
// at cfg.RPC.Path, the way a gorilla/rpc-based service is conventionally
// wired: one codec, one registered receiver. The returned closer must
// be closed on shutdown to flush and release the access log sink.
func NewHandler(cfg *config.Config) (http.Handler, io.Closer, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	if err := server.RegisterService(new(MLSService), ""); err != nil {
		return nil, nil, err
	}

	access := newAccessLogger(cfg)
	mux := http.NewServeMux()
	mux.Handle(cfg.RPC.Path, access.wrap(server))
	return mux, access, nil
}
