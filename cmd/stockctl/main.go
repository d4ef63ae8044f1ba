// Command stockctl управляет каталогом остатков по странам через настроенное хранилище.
//
//	stockctl set USA US 120 4.50
//	stockctl reduce US 3
//	stockctl page 2
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/smmstore/internal/app"
	"github.com/vladislavdragonenkov/smmstore/internal/datastore"
	"github.com/vladislavdragonenkov/smmstore/internal/domain"
	"github.com/vladislavdragonenkov/smmstore/internal/service/stats"
	"github.com/vladislavdragonenkov/smmstore/internal/version"
)

const defaultTimeout = 30 * time.Second

var errUsage = errors.New("usage: stockctl [-json] set|get|list|page|pages|reduce|stats|version [args]")

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fail("%v", err)
	}
}

// run разбирает флаги, открывает хранилище из SMM_* окружения и выполняет команду.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("stockctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	asJSON := fs.Bool("json", false, "print results as JSON")
	timeout := fs.Duration("timeout", defaultTimeout, "command timeout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	if rest[0] == "version" {
		_, err := fmt.Fprintln(out, version.String())
		return err
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	log.SetLevel(cfg.Level())

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	logger := log.WithField("component", "stockctl")
	if cfg.StorageDriver == app.StorageDriverMemory {
		logger.Warn("stockctl is running on the memory driver: changes are lost when the command exits, set SMM_STORAGE_DRIVER to postgres or mongo")
	}

	store, err := app.OpenDatastore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open datastore: %w", err)
	}
	defer func() {
		_ = store.Close(context.Background())
	}()

	return execute(ctx, store, rest, out, *asJSON)
}

// execute выполняет одну команду над открытым хранилищем.
func execute(ctx context.Context, store *datastore.Store, args []string, out io.Writer, asJSON bool) error {
	if len(args) == 0 {
		return errUsage
	}
	p := printer{out: out, json: asJSON}

	switch cmd, params := args[0], args[1:]; cmd {
	case "set":
		if len(params) != 4 {
			return errors.New("usage: stockctl set COUNTRY CODE STOCK PRICE")
		}
		stock, err := strconv.ParseInt(params[2], 10, 64)
		if err != nil {
			return fmt.Errorf("parse stock %q: %w", params[2], err)
		}
		price, err := decimal.NewFromString(params[3])
		if err != nil {
			return fmt.Errorf("parse price %q: %w", params[3], err)
		}
		if err := store.UpsertCountryStock(ctx, params[0], params[1], stock, price); err != nil {
			return err
		}
		entry, err := store.GetCountryStock(ctx, params[1])
		if err != nil {
			return err
		}
		return p.entries([]domain.StockEntry{entry})

	case "get":
		if len(params) != 1 {
			return errors.New("usage: stockctl get CODE")
		}
		entry, err := store.GetCountryStock(ctx, params[0])
		if err != nil {
			return err
		}
		return p.entries([]domain.StockEntry{entry})

	case "list":
		entries, err := store.ListCountriesSorted(ctx)
		if err != nil {
			return err
		}
		return p.entries(entries)

	case "page":
		if len(params) != 1 {
			return errors.New("usage: stockctl page N")
		}
		page, err := strconv.Atoi(params[0])
		if err != nil {
			return fmt.Errorf("parse page %q: %w", params[0], err)
		}
		entries, err := store.ListCountriesPage(ctx, page)
		if err != nil {
			return err
		}
		return p.entries(entries)

	case "pages":
		pages, err := store.CountCountryPages(ctx)
		if err != nil {
			return err
		}
		return p.value("pages", pages)

	case "reduce":
		if len(params) != 2 {
			return errors.New("usage: stockctl reduce CODE QTY")
		}
		qty, err := strconv.ParseInt(params[1], 10, 64)
		if err != nil {
			return fmt.Errorf("parse qty %q: %w", params[1], err)
		}
		res, err := store.ReduceCountryStock(ctx, params[0], qty)
		if err != nil {
			return err
		}
		return p.value("applied", res.Applied)

	case "stats":
		snapshot, err := stats.NewCollector(store).Collect(ctx)
		if err != nil {
			return err
		}
		if p.json {
			return p.encode(snapshot)
		}
		_, err = fmt.Fprintf(out, "users=%d orders=%d countries=%d pages=%d\n",
			snapshot.Users, snapshot.Orders, snapshot.Countries, snapshot.Pages)
		return err

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

type stockJSON struct {
	Code      string          `json:"code"`
	Country   string          `json:"country"`
	Stock     int64           `json:"stock"`
	Price     decimal.Decimal `json:"price"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type printer struct {
	out  io.Writer
	json bool
}

func (p printer) encode(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) value(name string, v interface{}) error {
	if p.json {
		return p.encode(map[string]interface{}{name: v})
	}
	_, err := fmt.Fprintf(p.out, "%s=%v\n", name, v)
	return err
}

func (p printer) entries(entries []domain.StockEntry) error {
	if p.json {
		items := make([]stockJSON, 0, len(entries))
		for _, e := range entries {
			items = append(items, stockJSON{
				Code:      e.Code,
				Country:   e.Country,
				Stock:     e.Stock,
				Price:     e.Price,
				UpdatedAt: e.UpdatedAt,
			})
		}
		return p.encode(items)
	}

	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tCOUNTRY\tSTOCK\tPRICE")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Code, e.Country, e.Stock, e.Price.String())
	}
	return w.Flush()
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
