package config

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.RPC.Addr != "127.0.0.1:8765" {
		t.Errorf("expected default rpc addr 127.0.0.1:8765, got %s", cfg.RPC.Addr)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Log.Level)
	}
}

func TestLoadWithOptions(t *testing.T) {
	opts := &Options{
		DataDir:  "/tmp/test-mlscored",
		RPCAddr:  "0.0.0.0:9090",
		LogLevel: "debug",
		LogToTTY: false,
	}

	cfg, err := Load("", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DataDir != "/tmp/test-mlscored" {
		t.Errorf("expected datadir /tmp/test-mlscored, got %s", cfg.DataDir)
	}
	if cfg.RPC.Addr != "0.0.0.0:9090" {
		t.Errorf("expected rpc addr 0.0.0.0:9090, got %s", cfg.RPC.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.ToTTY {
		t.Error("expected log-to-tty disabled")
	}
}

func TestExpandPath(t *testing.T) {
	cfg, err := Load("", &Options{DataDir: "~/mlscore-data"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DataDir == "~/mlscore-data" {
		t.Error("expected ~ to be expanded to the home directory")
	}
}
