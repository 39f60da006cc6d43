// mattersim-import: copies connectivity JSON files into a SQLite graph store,
// or with -export writes stored graphs back out as connectivity files
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslashibe/go-mattersim/internal/config"
	"github.com/teslashibe/go-mattersim/internal/log"
	"github.com/teslashibe/go-mattersim/pkg/connectivity"
	"github.com/teslashibe/go-mattersim/pkg/connectivity/store"
)

var (
	connectivityDir = flag.String("connectivity", config.ConnectivityDir(), "Directory of <scan>_connectivity.json files")
	dbPath          = flag.String("db", config.Env(config.EnvGraphDB, "graphs.db"), "SQLite graph database")
	scans           = flag.String("scans", "", "Comma-separated scan ids; default is every scan in scans.txt (or the db with -export)")
	export          = flag.Bool("export", false, "Write graphs from the db into the connectivity directory instead")
	logLevel        = flag.String("log-level", config.LogLevel(), "Log level")
)

func main() {
	flag.Parse()
	log.Init(*logLevel)

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Error("open db failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	ids := splitScans(*scans)
	if *export {
		err = exportGraphs(ctx, db, *connectivityDir, ids)
	} else {
		err = importGraphs(ctx, db, connectivity.NewDirSource(*connectivityDir), ids)
	}
	if err != nil {
		log.Error("import failed", "error", err)
		db.Close()
		os.Exit(1)
	}
}

func splitScans(list string) []string {
	var ids []string
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// importGraphs loads ids (all of scans.txt when empty) from src into db.
func importGraphs(ctx context.Context, db *store.Store, src *connectivity.DirSource, ids []string) error {
	logger := log.With("db", *dbPath, "dir", src.Dir())
	if len(ids) == 0 {
		var err error
		if ids, err = src.ScanIDs(); err != nil {
			return err
		}
	}

	start := time.Now()
	viewpoints := 0
	for _, id := range ids {
		g, err := src.LoadGraph(ctx, id)
		if err != nil {
			return err
		}
		if err := db.Import(ctx, g); err != nil {
			return fmt.Errorf("import %s: %w", id, err)
		}
		viewpoints += g.Len()
		logger.Debug("imported scan", "scan", id, "viewpoints", g.Len())
	}

	logger.Info("import complete",
		"scans", len(ids),
		"viewpoints", viewpoints,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// exportGraphs writes ids (every stored scan when empty) to dir as
// <scan>_connectivity.json plus a scans.txt listing them.
func exportGraphs(ctx context.Context, db *store.Store, dir string, ids []string) error {
	logger := log.With("db", *dbPath, "dir", dir)
	if len(ids) == 0 {
		var err error
		if ids, err = db.ScanIDs(ctx); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	dst := connectivity.NewDirSource(dir)
	for _, id := range ids {
		g, err := db.LoadGraph(ctx, id)
		if err != nil {
			return err
		}
		data, err := json.Marshal(g.Records())
		if err != nil {
			return fmt.Errorf("encode %s: %w", id, err)
		}
		if err := os.WriteFile(dst.GraphPath(id), data, 0o644); err != nil {
			return err
		}
		logger.Debug("exported scan", "scan", id, "viewpoints", g.Len())
	}

	list := strings.Join(ids, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, connectivity.ScansFile), []byte(list), 0o644); err != nil {
		return err
	}
	logger.Info("export complete", "scans", len(ids))
	return nil
}
