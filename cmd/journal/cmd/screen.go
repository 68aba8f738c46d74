package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/screener"
	"github.com/spf13/cobra"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Screen the latest candle of every symbol with a query",
	Long: `Screen evaluates a query against the latest candle of each symbol and prints
the matches ranked by an indicator or candle field.

The query is either a saved query (--query-id) or a JSON document (--query-file).
A malformed query matches every symbol.

Examples:
  journal screen --query-id high-rvol
  journal screen --query-file rvol.json --period W --order-by rvol_20 --limit 10
  journal screen --query-file rvol.json --order-by '#close' --sort asc --json`,
	Args: cobra.NoArgs,
	RunE: runScreen,
}

var (
	screenQueryID   string
	screenQueryFile string
	screenPeriod    string
	screenOrderBy   string
	screenSort      string
	screenLimit     int
	screenSymbols   []string
	screenJSON      bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().StringVarP(&screenQueryID, "query-id", "q", "", "saved query ID")
	screenCmd.Flags().StringVarP(&screenQueryFile, "query-file", "f", "", "path to a JSON query document")
	screenCmd.Flags().StringVarP(&screenPeriod, "period", "p", "", "period type (default: the saved query's, or the base period type)")
	screenCmd.Flags().StringVar(&screenOrderBy, "order-by", "", "indicator key or #field to rank by")
	screenCmd.Flags().StringVar(&screenSort, "sort", "", "asc or desc (default desc)")
	screenCmd.Flags().IntVarP(&screenLimit, "limit", "n", 0, "maximum number of results (0 = unlimited)")
	screenCmd.Flags().StringSliceVarP(&screenSymbols, "symbols", "s", nil, "restrict screening to these symbols")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "print results as JSON")
	screenCmd.MarkFlagsMutuallyExclusive("query-id", "query-file")
	screenCmd.MarkFlagsOneRequired("query-id", "query-file")
}

func runScreen(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openCandleStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	pt := cfg.Analysis.BasePeriodType
	var opts screener.ScreenOptions
	var query *screener.Query

	if screenQueryID != "" {
		redis, err := openRedis(cfg.Analysis.QueryStoreType == "redis")
		if err != nil {
			return err
		}
		if redis != nil {
			defer redis.Close()
		}
		queries, err := openQueryStore(redis)
		if err != nil {
			return err
		}
		saved, q, err := screener.LoadSaved(ctx, queries, screenQueryID)
		if err != nil {
			return fmt.Errorf("load query %s: %w", screenQueryID, err)
		}
		query = q
		pt = saved.PeriodType
		opts = screener.ScreenOptions{OrderBy: saved.OrderBy, SortOrder: saved.SortOrder, Limit: saved.Limit}
	} else {
		data, err := os.ReadFile(screenQueryFile)
		if err != nil {
			return fmt.Errorf("read query file: %w", err)
		}
		query = screener.LoadQuery(data)
	}

	if screenPeriod != "" {
		if pt, err = models.ParsePeriodType(screenPeriod); err != nil {
			return err
		}
	}
	if screenOrderBy != "" {
		opts.OrderBy = screenOrderBy
	}
	if screenSort != "" {
		if opts.SortOrder, err = models.ParseSortOrder(screenSort); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("limit") {
		opts.Limit = screenLimit
	}

	results, err := screener.NewScreener(store).Screen(ctx, query, splitSymbols(screenSymbols), pt, opts)
	if err != nil {
		return err
	}

	if screenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	printResults(results, opts.OrderBy)
	return nil
}

func printResults(results []models.ScreenResult, orderBy string) {
	if len(results) == 0 {
		fmt.Println("no matches")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	header := "RANK\tSYMBOL\tPERIOD\tCLOSE\tVOLUME"
	if orderBy != "" {
		header += "\t" + strings.ToUpper(orderBy)
	}
	fmt.Fprintln(w, header)

	for _, r := range results {
		line := fmt.Sprintf("%d\t%s\t%s\t%.2f\t%d", r.Rank, r.Symbol,
			r.Candle.Period.Format("2006-01-02"), r.Candle.Close, r.Candle.Volume)
		if orderBy != "" {
			if r.Value.Valid {
				line += fmt.Sprintf("\t%.4f", r.Value.Float64)
			} else {
				line += "\t-"
			}
		}
		fmt.Fprintln(w, line)
	}
}
