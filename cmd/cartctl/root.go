package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/ledger"
	"storefront/internal/logging"
	"storefront/internal/repository/cartstate"
)

type rootOptions struct {
	store    string
	dir      string
	dbPath   string
	session  string
	logLevel string
}

// session is one opened ledger plus the resources behind it.
type session struct {
	ledger *ledger.Ledger
	close  func() error
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	defaults := config.Defaults()
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "cartctl",
		Short: "Manage a local shopping cart",
		Long: `cartctl keeps a single cart on this machine and persists it after every change.

The cart lives under the key "cart-storage" (or "cart-storage:<session>")
in a JSON file directory or a SQLite database.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.store, "store", config.CartStoreFile, "snapshot backend: file, sqlite or memory")
	flags.StringVar(&opts.dir, "dir", defaults.CartFileDir, "directory for the file backend")
	flags.StringVar(&opts.dbPath, "db", defaults.CartSQLitePath, "database path for the sqlite backend")
	flags.StringVar(&opts.session, "session", "", "cart session id (empty uses the default key)")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newAddCmd(opts),
		newUpdateCmd(opts),
		newRemoveCmd(opts),
		newClearCmd(opts),
		newShowCmd(opts),
	)
	return root
}

func (o *rootOptions) open(ctx context.Context) (*session, error) {
	if o.store == config.CartStorePostgres {
		return nil, fmt.Errorf("store %q is not available locally", o.store)
	}
	logger, err := logging.New(logging.Options{Service: "cartctl", Env: "dev", Level: o.logLevel})
	if err != nil {
		return nil, err
	}
	cfg := config.Defaults()
	cfg.CartStore = o.store
	cfg.CartFileDir = o.dir
	cfg.CartSQLitePath = o.dbPath

	store, closeFn, err := cartstate.Open(cfg, nil, logger)
	if err != nil {
		return nil, err
	}
	key := ledger.DefaultKey
	if o.session != "" {
		key = ledger.SessionKey(o.session)
	}
	return &session{
		ledger: ledger.Open(ctx, store, key, ledger.WithLogger(logger)),
		close:  closeFn,
		logger: logger,
	}, nil
}

// withLedger opens the cart, runs fn and prints the resulting cart.
func (o *rootOptions) withLedger(cmd *cobra.Command, fn func(ctx context.Context, l *ledger.Ledger) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = s.close()
		_ = s.logger.Sync()
	}()
	if err := fn(ctx, s.ledger); err != nil {
		return err
	}
	return printCart(cmd.OutOrStdout(), s.ledger)
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var (
		quantity int
		product  domain.Product
	)
	cmd := &cobra.Command{
		Use:   "add <product-id> <name> <price>",
		Short: "Add a product to the cart, merging with an existing line",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := domain.ParsePrice(args[2])
			if err != nil {
				return err
			}
			if p.IsNegative() {
				return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidPrice)
			}
			if quantity <= 0 {
				return fmt.Errorf("quantity must be positive, got %d", quantity)
			}
			product.ID = id
			product.DisplayName = args[1]
			product.Price = p
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				l.AddItem(ctx, product, quantity)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity to add")
	cmd.Flags().StringVar(&product.Gender, "gender", "", "product gender")
	cmd.Flags().StringVar(&product.ArticleType, "article-type", "", "product article type")
	cmd.Flags().StringVar(&product.BaseColour, "colour", "", "product base colour")
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update <product-id> <quantity>",
		Short: "Set a line's quantity; zero or less removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				l.UpdateQuantity(ctx, id, qty)
				return nil
			})
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				l.RemoveItem(ctx, id)
				return nil
			})
		},
	}
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withLedger(cmd, func(ctx context.Context, l *ledger.Ledger) error {
				l.ClearCart(ctx)
				return nil
			})
		},
	}
}

func newShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !asJSON {
				return opts.withLedger(cmd, func(context.Context, *ledger.Ledger) error { return nil })
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = s.close() }()
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"items":     s.ledger.Items(),
				"total":     s.ledger.Total(),
				"itemCount": s.ledger.ItemCount(),
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the cart as JSON")
	return cmd
}

func printCart(w io.Writer, l *ledger.Ledger) error {
	items := l.Items()
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "cart is empty")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tPRICE\tSUBTOTAL")
	for _, item := range items {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			item.Product.ID, item.Product.DisplayName, item.Quantity,
			item.Product.Price.StringFixed(), item.Subtotal().StringFixed())
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s\n", l.ItemCount(), l.Total().StringFixed())
	return tw.Flush()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", raw)
	}
	return id, nil
}
