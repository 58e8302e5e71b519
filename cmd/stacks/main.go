package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	appcfg "github.com/park285/deathstacks/internal/config"
	"github.com/park285/deathstacks/internal/msgcat"
	"github.com/park285/deathstacks/internal/obslog"
	"github.com/park285/deathstacks/internal/render"
	"github.com/park285/deathstacks/internal/stacks"
)

type options struct {
	board    string
	pngPath  string
	useRedis bool
}

func main() {
	var opts options
	flag.StringVar(&opts.board, "board", "", "start from this board notation")
	flag.StringVar(&opts.pngPath, "png", "", "write the final board image to this file")
	flag.BoolVar(&opts.useRedis, "redis", false, "play through the redis-backed manager (REDIS_URL)")
	flag.Parse()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if _, err := obslog.Init(obslog.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Stdout: os.Stderr,
	}); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, os.Stdin, os.Stdout); err != nil {
		obslog.L().Error("stacks_cli_exit", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appcfg.AppConfig, opts options, in io.Reader, out io.Writer) error {
	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages: %w", err)
	}

	var t table
	if opts.useRedis {
		t, err = newRedisTable(ctx, cfg, cat)
	} else {
		t = newLocalTable(cat)
	}
	if err != nil {
		return err
	}
	defer func() { _ = t.Close() }()

	if opts.board != "" {
		if err := t.Load(ctx, opts.board); err != nil {
			return fmt.Errorf("load board: %w", err)
		}
	}
	if err := printBoard(ctx, out, t); err != nil {
		return err
	}

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quit, err := handleLine(ctx, out, t, line)
		if err != nil {
			return err
		}
		if quit {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	status, info := t.Status(ctx)
	if info != "" {
		fmt.Fprintf(out, "status: %s (%s)\n", status, info)
	} else {
		fmt.Fprintf(out, "status: %s\n", status)
	}

	if opts.pngPath != "" {
		if err := writePNG(ctx, cfg, t, opts.pngPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "board image written to %s\n", opts.pngPath)
	}
	return nil
}

// handleLine runs one input command and reports whether the session should stop.
func handleLine(ctx context.Context, out io.Writer, t table, line string) (bool, error) {
	parts := strings.Fields(line)
	cmd := strings.ToLower(parts[0])
	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(out, helpText())
		return false, nil
	case "board":
		return false, printBoard(ctx, out, t)
	case "status":
		status, info := t.Status(ctx)
		fmt.Fprintf(out, "%s %s\n", status, info)
		return false, nil
	}

	side, ok := stacks.ParseColor(cmd)
	if !ok || len(parts) != 2 {
		fmt.Fprintln(out, "Unknown command. Try 'help'.")
		return false, nil
	}

	var (
		msg      string
		accepted bool
		err      error
	)
	switch strings.ToLower(parts[1]) {
	case "resign":
		msg, err = t.Resign(ctx, side)
	case "draw":
		msg, err = t.OfferDraw(ctx, side)
	default:
		msg, accepted, err = t.Play(ctx, side, parts[1])
	}
	if err != nil {
		return false, err
	}
	fmt.Fprintln(out, msg)
	if accepted {
		if err := printBoard(ctx, out, t); err != nil {
			return false, err
		}
	}
	return t.Finished(ctx), nil
}

func helpText() string {
	return strings.Join([]string{
		"Death Stacks (hot seat)",
		"",
		"• <red|blue> <start>-<count>-<end>  move, e.g. red a6-1-a5",
		"• <red|blue> resign                 give up",
		"• <red|blue> draw                   call draw (both sides must)",
		"• board | status | quit",
	}, "\n")
}

// printBoard writes rows 6 to 1 with each stack top-first.
func printBoard(ctx context.Context, out io.Writer, t table) error {
	b, err := t.Board(ctx)
	if err != nil {
		return err
	}
	var sb strings.Builder
	for row := stacks.BoardSize; row >= 1; row-- {
		fmt.Fprintf(&sb, "%d ", row)
		for col := 1; col <= stacks.BoardSize; col++ {
			cell := b.Square(stacks.Coord{Col: col, Row: row}).Serialize()
			if cell == "" {
				cell = "."
			}
			fmt.Fprintf(&sb, " %-5s", cell)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  ")
	for col := 0; col < stacks.BoardSize; col++ {
		fmt.Fprintf(&sb, " %-5c", 'a'+col)
	}
	sb.WriteString("\n")
	_, err = io.WriteString(out, sb.String())
	return err
}

func writePNG(ctx context.Context, cfg *appcfg.AppConfig, t table, path string) error {
	b, err := t.Board(ctx)
	if err != nil {
		return err
	}
	r := render.NewSVGBoardRenderer(cfg.RenderSquareSize)
	img, err := r.RenderPNG(ctx, b, render.RenderOptions{Highlight: t.LastMove(ctx)})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	obslog.L().Info("stacks_png_written", zap.String("path", path), zap.Int("bytes", len(img)))
	return nil
}
