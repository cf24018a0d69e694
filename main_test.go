package main

import (
	"errors"
	"image/color"
	"testing"

	"pongview/config"
)

func TestPalette(t *testing.T) {
	pal, err := palette(config.Default().Colors)
	if err != nil {
		t.Fatal(err)
	}
	if pal.Player1 != (color.NRGBA{G: 0xff, B: 0x88, A: 255}) {
		t.Fatalf("player1 = %v", pal.Player1)
	}
	if pal.Online.G != 255 || pal.Offline.R != 255 {
		t.Fatalf("indicator colors = %v %v", pal.Online, pal.Offline)
	}

	bad := config.Default().Colors
	bad.Ball = "nope"
	if _, err := palette(bad); err == nil {
		t.Fatal("expected error")
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	if err := applyFlags(&cfg, flags{addr: "wss://example.com/ws/game", admin: ":9090", log: "x.log"}); err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "wss://example.com/ws/game" || cfg.Admin.Addr != ":9090" || cfg.Log.File != "x.log" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if err := applyFlags(&cfg, flags{addr: "http://example.com"}); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v", err)
	}
}
