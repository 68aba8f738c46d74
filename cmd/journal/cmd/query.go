package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mohamedkhairy/trade-journal/internal/models"
	"github.com/mohamedkhairy/trade-journal/internal/screener"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Manage saved screener queries",
	Long: `Manage the saved screener queries used by 'journal screen' and the HTTP API.

Subcommands:
  save    - Create or replace a query from a JSON definition file
  list    - List saved queries
  show    - Print a saved query
  delete  - Delete a saved query

Examples:
  journal query save high-rvol --name "High RVol" --file rvol.json --order-by rvol_20
  journal query list
  journal query delete high-rvol`,
}

var querySaveCmd = &cobra.Command{
	Use:   "save <id>",
	Short: "Create or replace a saved query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuerySave,
}

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queries",
	Args:  cobra.NoArgs,
	RunE:  runQueryList,
}

var queryShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a saved query as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryShow,
}

var queryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryDelete,
}

var (
	queryName        string
	queryDescription string
	queryFile        string
	queryPeriod      string
	queryOrderBy     string
	querySort        string
	queryLimit       int
)

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(querySaveCmd)
	queryCmd.AddCommand(queryListCmd)
	queryCmd.AddCommand(queryShowCmd)
	queryCmd.AddCommand(queryDeleteCmd)

	querySaveCmd.Flags().StringVar(&queryName, "name", "", "display name (required)")
	querySaveCmd.Flags().StringVar(&queryDescription, "description", "", "free-form description")
	querySaveCmd.Flags().StringVarP(&queryFile, "file", "f", "", "path to the JSON query definition (required)")
	querySaveCmd.Flags().StringVarP(&queryPeriod, "period", "p", "", "period type to screen (default: the base period type)")
	querySaveCmd.Flags().StringVar(&queryOrderBy, "order-by", "", "indicator key or #field to rank by")
	querySaveCmd.Flags().StringVar(&querySort, "sort", string(models.SortOrderDesc), "asc or desc")
	querySaveCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "default result limit (0 = unlimited)")
	querySaveCmd.MarkFlagRequired("name")
	querySaveCmd.MarkFlagRequired("file")
}

// withQueryStore opens the configured query store for the duration of fn
func withQueryStore(fn func(ctx context.Context, store screener.QueryStore) error) error {
	redis, err := openRedis(cfg.Analysis.QueryStoreType == "redis")
	if err != nil {
		return err
	}
	if redis != nil {
		defer redis.Close()
	}
	store, err := openQueryStore(redis)
	if err != nil {
		return err
	}
	return fn(context.Background(), store)
}

func runQuerySave(cmd *cobra.Command, args []string) error {
	definition, err := os.ReadFile(queryFile)
	if err != nil {
		return fmt.Errorf("read definition: %w", err)
	}
	// Saved definitions must parse even though evaluation tolerates bad ones
	if _, err := screener.ParseQuery(definition); err != nil {
		return err
	}

	pt := cfg.Analysis.BasePeriodType
	if queryPeriod != "" {
		if pt, err = models.ParsePeriodType(queryPeriod); err != nil {
			return err
		}
	}

	order, err := models.ParseSortOrder(querySort)
	if err != nil {
		return err
	}

	q := &models.SavedQuery{
		ID:          args[0],
		Name:        queryName,
		Description: queryDescription,
		PeriodType:  pt,
		OrderBy:     queryOrderBy,
		SortOrder:   order,
		Limit:       queryLimit,
		Definition:  json.RawMessage(definition),
	}

	return withQueryStore(func(ctx context.Context, store screener.QueryStore) error {
		if err := store.SaveQuery(ctx, q); err != nil {
			return fmt.Errorf("save query: %w", err)
		}
		fmt.Printf("saved query %s\n", q.ID)
		return nil
	})
}

func runQueryList(cmd *cobra.Command, args []string) error {
	return withQueryStore(func(ctx context.Context, store screener.QueryStore) error {
		queries, err := store.ListQueries(ctx)
		if err != nil {
			return fmt.Errorf("list queries: %w", err)
		}
		if len(queries) == 0 {
			fmt.Println("no saved queries")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "ID\tNAME\tPERIOD\tORDER BY\tUPDATED")
		for _, q := range queries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", q.ID, q.Name, q.PeriodType, q.OrderBy,
				q.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	})
}

func runQueryShow(cmd *cobra.Command, args []string) error {
	return withQueryStore(func(ctx context.Context, store screener.QueryStore) error {
		q, err := store.GetQuery(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get query: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(q)
	})
}

func runQueryDelete(cmd *cobra.Command, args []string) error {
	return withQueryStore(func(ctx context.Context, store screener.QueryStore) error {
		if err := store.DeleteQuery(ctx, args[0]); err != nil {
			return fmt.Errorf("delete query: %w", err)
		}
		fmt.Printf("deleted query %s\n", args[0])
		return nil
	})
}
