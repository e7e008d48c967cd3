// pgnvault streams a PGN file into compressed, deduplicated storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/contextx"
	"github.com/seekerror/stdlib/pkg/util/iox"

	"github.com/chesscompress/pgnvault/pkg/ingesterr"
	"github.com/chesscompress/pgnvault/pkg/pgnscan"
	"github.com/chesscompress/pgnvault/pkg/visitor"
	"github.com/chesscompress/pgnvault/pkg/writer"
)

var (
	batchSize = flag.Int("batch_size", 1000, "Games per batch")
	maxPlies  = flag.Int("max_plies", 50, "Max persisted plies per game")
	consumers = flag.Int("consumers", 1, "Number of concurrent batch consumers")
	queueSize = flag.Int("queue_size", 10, "Bounded batch queue capacity")
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: pgnvault [options] <pgn-file>

pgnvault streams games out of a PGN file, compresses their move lists and
positions, and persists them to Postgres with position deduplication across
the whole run. DATABASE_URL must be set to a Postgres connection string.

Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx := context.Background()

	if flag.NArg() != 1 {
		flag.Usage()
		logw.Exitf(ctx, "Exactly one PGN file path is required")
	}
	path := flag.Arg(0)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logw.Exitf(ctx, "DATABASE_URL must be set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logw.Exitf(ctx, "Failed to connect to database: %v", err)
	}
	defer pool.Close()

	f, err := os.Open(path)
	if err != nil {
		logw.Exitf(ctx, "Failed to open %v: %v", path, err)
	}
	defer f.Close()

	quit := iox.NewAsyncCloser()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		logw.Infof(ctx, "pgnvault: interrupted, draining in-flight batches")
		quit.Close()
	}()

	wctx, cancel := contextx.WithQuitCancel(ctx, quit.Closed())
	defer cancel()

	w := writer.New(pool, *maxPlies)
	batches := make(chan []visitor.Game, *queueSize)

	var wg sync.WaitGroup
	for i := 0; i < *consumers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for batch := range batches {
				if err := w.WriteBatch(wctx, batch); err != nil {
					var ierr *ingesterr.Error
					if errors.As(err, &ierr) && ierr.Kind.AbortsProcess() {
						logw.Exitf(wctx, "pgnvault: consumer %d: batch failed: %v", id, err)
					}
					logw.Errorf(wctx, "pgnvault: consumer %d: batch failed, continuing: %v", id, err)
				}
			}
		}(i)
	}

	rec := visitor.NewRecord(*batchSize, func(b []visitor.Game) {
		select {
		case batches <- b:
		case <-wctx.Done():
		}
	})

	if err := pgnscan.NewScanner(f).ReadAll(rec); err != nil {
		logw.Errorf(ctx, "pgnvault: PGN scan stopped early: %v", err)
	}
	rec.Flush()

	close(batches)
	wg.Wait()

	logw.Infof(ctx, "pgnvault: import of %v complete", path)
}
