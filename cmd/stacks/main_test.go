package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	appcfg "github.com/park285/deathstacks/internal/config"
)

const fiveEach = "rrrrr,,,,,/,,,,,/,,,,,/,,,,,/,,,,,/bbbbb,,,,,"

func testConfig() *appcfg.AppConfig {
	return &appcfg.AppConfig{GameTTL: time.Hour, RenderSquareSize: 32}
}

func runCLI(t *testing.T, cfg *appcfg.AppConfig, opts options, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), cfg, opts, strings.NewReader(input), &out); err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	return out.String()
}

func TestRun_LocalHotSeat(t *testing.T) {
	out := runCLI(t, testConfig(), options{}, strings.Join([]string{
		"# opening",
		"blue a1-1-a2",
		"red d6-1-d4",
		"red a6-1-a5",
		"help",
		"bogus",
		"quit",
		"red a5-1-a4",
	}, "\n"))

	for _, want := range []string{
		"It is not your turn.",
		"d6-1-d4 does not reach its destination.",
		"red: a6-1-a5",
		"Death Stacks (hot seat)",
		"Unknown command.",
		"status: Started",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "a5-1-a4") {
		t.Fatalf("input after quit was processed:\n%s", out)
	}
	if !strings.Contains(out, "6  r     rr") {
		t.Fatalf("board not reprinted after move:\n%s", out)
	}
}

func TestRun_LocalWinAndPNG(t *testing.T) {
	png := filepath.Join(t.TempDir(), "final.png")
	out := runCLI(t, testConfig(), options{board: fiveEach, pngPath: png}, "red a6-5-a1\nblue a1-1-a2\n")
	if !strings.Contains(out, "red won.") || !strings.Contains(out, "status: Finished (red won)") {
		t.Fatalf("expected red win:\n%s", out)
	}
	if strings.Contains(out, "blue: a1-1-a2") {
		t.Fatalf("game continued after the win:\n%s", out)
	}
	raw, err := os.ReadFile(png)
	if err != nil || !bytes.HasPrefix(raw, []byte("\x89PNG")) {
		t.Fatalf("png not written: %v", err)
	}
}

func TestRun_LocalResignAndDraw(t *testing.T) {
	out := runCLI(t, testConfig(), options{}, "blue resign\n")
	if !strings.Contains(out, "blue gave up. red won.") || !strings.Contains(out, "status: Surrendered (blue gave up)") {
		t.Fatalf("resign output:\n%s", out)
	}

	out = runCLI(t, testConfig(), options{}, "red draw\nred draw\nblue draw\n")
	for _, want := range []string{"red called draw.", "You already called draw. Waiting for blue.", "Draw game by agreement.", "status: Draw (draw game)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_BadBoard(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), testConfig(), options{board: "r,,/"}, strings.NewReader(""), &out)
	if err == nil {
		t.Fatalf("expected error for malformed board")
	}
}

func TestRun_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"
	out := runCLI(t, cfg, options{useRedis: true, board: fiveEach}, "red a6-5-f1\nred f1-1-f2\nblue a1-5-f6\nred resign\n")
	for _, want := range []string{
		"red: a6-5-f1",
		"It is not your turn.",
		"blue: a1-5-f6",
		"red gave up. blue won.",
		"status: Surrendered (red gave up)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if len(mr.Keys()) == 0 {
		t.Fatalf("no game stored in redis")
	}
}
