package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/events/ws"
	"storefront/internal/orders"
	"storefront/internal/security/secretbox"
	"storefront/internal/store"
	filestore "storefront/internal/store/file"
	"storefront/internal/store/memory"
	redisstore "storefront/internal/store/redis"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: storefront <command> [args]

commands:
  signin <email> <password>
  signup <first> <last> <email> <password>
  logout
  menu [-page N] [-limit N] [-category C]
  cart add <menu-id> | cart reduce <menu-id> | cart show | cart clear
  checkout [-notes TEXT]
  orders [-page N] [-status CSV] [-sort KEY] [-all]
  watch`)
	os.Exit(2)
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()
	if len(os.Args) < 2 {
		usage()
	}

	ctx := context.Background()
	state := openState(cfg)
	creds := auth.NewCredentialStore(state)
	if err := creds.Load(ctx); err != nil {
		log.Fatalf("load credential: %v", err)
	}
	client := api.NewClient(cfg.APIBaseURL, creds, state, &http.Client{Timeout: cfg.HTTPTimeout}, cfg.RefreshSkew)
	if err := client.RefreshIfExpiring(ctx); err != nil {
		log.Printf("proactive refresh failed: %v", err)
	}

	var err error
	switch os.Args[1] {
	case "signin":
		err = runSignIn(ctx, client, os.Args[2:])
	case "signup":
		err = runSignUp(ctx, client, os.Args[2:])
	case "logout":
		err = client.Logout(ctx)
	case "menu":
		err = runMenu(ctx, client, cfg, os.Args[2:])
	case "cart":
		err = runCart(ctx, client, state, os.Args[2:])
	case "checkout":
		err = runCheckout(ctx, client, state, os.Args[2:])
	case "orders":
		err = runOrders(ctx, client, creds, cfg, os.Args[2:])
	case "watch":
		err = runWatch(ctx, client, cfg)
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// openState picks the persistence backend the way the config asks,
// falling back to an in-memory store when the backend is unreachable.
func openState(cfg config.Config) store.ClientState {
	switch cfg.StoreMode {
	case "redis":
		if cfg.RedisAddr != "" {
			client := goredis.NewClient(&goredis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err == nil {
				return redisstore.NewStore(client, cfg.RedisKeyPrefix)
			}
			log.Printf("redis unavailable at %s, falling back to file store", cfg.RedisAddr)
		}
		fallthrough
	case "file":
		var box *secretbox.Box
		if cfg.StateEncryptionKey != "" {
			var err error
			box, err = secretbox.New(cfg.StateEncryptionKey)
			if err != nil {
				log.Fatalf("state encryption key: %v", err)
			}
		}
		return filestore.NewStore(cfg.StateFile, box)
	default:
		return memory.NewStore()
	}
}

func runSignIn(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 2 {
		usage()
	}
	cred, err := client.SignIn(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s %s (%s)\n", cred.User.FirstName, cred.User.LastName, cred.User.Role)
	return nil
}

func runSignUp(ctx context.Context, client *api.Client, args []string) error {
	if len(args) != 4 {
		usage()
	}
	err := client.SignUp(ctx, api.SignUpInput{
		FirstName: args[0],
		LastName:  args[1],
		Email:     args[2],
		Password:  args[3],
	})
	if err != nil {
		return err
	}
	fmt.Println("account created, you can sign in now")
	return nil
}

func runMenu(ctx context.Context, client *api.Client, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("menu", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", cfg.PageSize, "page size")
	category := fs.String("category", "", "category filter")
	_ = fs.Parse(args)

	items, total, err := client.Menu(ctx, api.MenuQuery{Page: *page, Limit: *limit, Category: *category})
	if err != nil {
		return err
	}
	for _, item := range items {
		marker := " "
		if !item.Availability || item.Stock < 1 {
			marker = "x"
		}
		fmt.Printf("[%s] #%-4d %-24s ₹%-8.2f stock %d\n", marker, item.ID, item.Name, item.Price, item.Stock)
	}
	fmt.Printf("page %d, %d item(s) total\n", *page, total)
	return nil
}

func runCart(ctx context.Context, client *api.Client, state store.ClientState, args []string) error {
	if len(args) < 1 {
		usage()
	}
	ledger, err := cart.NewLedger(ctx, state)
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		if len(args) != 2 {
			usage()
		}
		item, err := findMenuItem(ctx, client, args[1])
		if err != nil {
			return err
		}
		if err := ledger.Add(ctx, item); err != nil {
			return err
		}
		fmt.Printf("%s added to cart\n", item.Name)
	case "reduce":
		if len(args) != 2 {
			usage()
		}
		var id int64
		if _, err := fmt.Sscanf(args[1], "%d", &id); err != nil {
			return fmt.Errorf("bad menu id %q", args[1])
		}
		if err := ledger.Reduce(ctx, id); err != nil {
			return err
		}
		fmt.Println("cart updated")
	case "clear":
		if err := ledger.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("cart cleared")
	case "show":
		items := ledger.Items()
		if len(items) == 0 {
			fmt.Println("cart is empty")
			return nil
		}
		for _, item := range items {
			fmt.Printf("#%-4d %-24s x%d  ₹%.2f\n", item.ID, item.Name, item.Quantity, item.Price*float64(item.Quantity))
		}
		fmt.Printf("total ₹%.2f\n", ledger.Total())
	default:
		usage()
	}
	return nil
}

func findMenuItem(ctx context.Context, client *api.Client, rawID string) (domain.MenuItem, error) {
	var id int64
	if _, err := fmt.Sscanf(rawID, "%d", &id); err != nil {
		return domain.MenuItem{}, fmt.Errorf("bad menu id %q", rawID)
	}
	items, _, err := client.Menu(ctx, api.MenuQuery{Page: 1, Limit: 500})
	if err != nil {
		return domain.MenuItem{}, err
	}
	for _, item := range items {
		if item.ID == id {
			return item, nil
		}
	}
	return domain.MenuItem{}, fmt.Errorf("menu item %d not found", id)
}

// terminalProvider stands in for the real checkout widget: it asks for
// confirmation on the terminal and reports an approved payment.
type terminalProvider struct{}

func (terminalProvider) Pay(_ context.Context, amount float64, orderRef string) (checkout.PaymentResult, error) {
	fmt.Printf("pay ₹%.2f for order %s? [y/N] ", amount, orderRef)
	var answer string
	fmt.Scanln(&answer)
	if answer != "y" && answer != "Y" {
		return checkout.PaymentResult{Success: false}, nil
	}
	return checkout.PaymentResult{
		PaymentID: fmt.Sprintf("cli-%d", time.Now().UnixNano()),
		Signature: "terminal",
		Success:   true,
	}, nil
}

func runCheckout(ctx context.Context, client *api.Client, state store.ClientState, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	notes := fs.String("notes", "", "order notes")
	_ = fs.Parse(args)

	ledger, err := cart.NewLedger(ctx, state)
	if err != nil {
		return err
	}
	flow := checkout.NewFlow(client, ledger, terminalProvider{})
	receipt, err := flow.PlaceOrder(ctx, *notes)
	if err != nil {
		return err
	}
	fmt.Printf("payment confirmed, order %s for ₹%.2f placed\n", receipt.OrderID, receipt.Amount)
	return nil
}

func runOrders(ctx context.Context, client *api.Client, creds *auth.CredentialStore, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	page := fs.Int("page", 1, "page number")
	status := fs.String("status", "", "status filter (CSV)")
	sortKey := fs.String("sort", "created_at", "sort key")
	all := fs.Bool("all", false, "all orders (admin)")
	_ = fs.Parse(args)

	if user, ok := creds.User(); ok && user.Role == domain.RoleAdmin {
		*all = true
	}
	reconciler := orders.NewReconciler(client, *all)
	snapshot, err := reconciler.LoadPage(ctx, domain.OrderQuery{
		Page:   *page,
		Limit:  cfg.PageSize,
		Status: *status,
		Sort:   *sortKey,
		All:    *all,
	})
	if err != nil {
		return err
	}
	printOrders(snapshot)
	return nil
}

func runWatch(ctx context.Context, client *api.Client, cfg config.Config) error {
	reconciler := orders.NewReconciler(client, true)
	channel := ws.NewChannel(cfg.EventsURL, nil)
	reconciler.Bind(channel)

	if err := channel.Connect(ctx); err != nil {
		return fmt.Errorf("connect push channel: %w", err)
	}
	defer channel.Disconnect()
	if err := channel.Emit(domain.EventJoinKitchen, map[string]string{}); err != nil {
		return fmt.Errorf("join kitchen: %w", err)
	}

	if _, err := reconciler.LoadPage(ctx, domain.OrderQuery{Page: 1, Limit: cfg.PageSize, All: true}); err != nil {
		log.Printf("initial pull failed, waiting on pushes: %v", err)
	}

	fmt.Println("kitchen view connected, Ctrl-C to stop")
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastShown string
	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			page, ok := reconciler.Page()
			if !ok {
				continue
			}
			rendered := renderOrders(page)
			if rendered != lastShown {
				fmt.Print("\n" + rendered)
				lastShown = rendered
			}
		}
	}
}

func printOrders(page domain.OrderPage) {
	fmt.Print(renderOrders(page))
}

func renderOrders(page domain.OrderPage) string {
	if len(page.Items) == 0 {
		return "no orders\n"
	}
	out := ""
	for _, o := range page.Items {
		out += fmt.Sprintf("#%-5d %-10s %-8s ₹%-8.2f %s\n",
			o.ID, o.Status, o.PaymentStatus, o.TotalAmount, o.CreatedAt.Local().Format("15:04:05"))
	}
	out += fmt.Sprintf("page %d of %d order(s)\n", page.Page, page.Total)
	return out
}
