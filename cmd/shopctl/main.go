// shopctl is the terminal storefront client: it browses the catalog,
// mutates the persistent cart, manages the login session, and runs the
// checkout flow against the backend API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/voltworks/storefront/internal/authapi"
	"github.com/voltworks/storefront/internal/cart"
	"github.com/voltworks/storefront/internal/catalog"
	"github.com/voltworks/storefront/internal/checkout"
	"github.com/voltworks/storefront/internal/config"
	"github.com/voltworks/storefront/internal/notify"
	"github.com/voltworks/storefront/internal/session"
	"github.com/voltworks/storefront/internal/storage"
)

const usage = `usage: shopctl <command> [args]

commands:
  products                      list the catalog
  cart                          show the cart
  add <product-id> [qty]        add a product to the cart
  update <product-id> <qty>     change a line's quantity (0 removes)
  remove <product-id>           remove a line
  clear                         empty the cart
  login <email> <password>      log in
  register <name> <email> <phone> <password>
  logout                        log out
  checkout [-name] [-email] [-phone] [-notes]
  orders                        show your order history
`

// terminalNotifier renders notifications the way the web client toasts.
type terminalNotifier struct{}

func (terminalNotifier) Notify(n notify.Notification) {
	fmt.Printf("** %s: %s\n", n.Title, n.Message)
}

// terminalNav just tells the user where the flow wants them to go.
type terminalNav struct{}

func (terminalNav) Navigate(path string) {
	fmt.Printf("-> continue at %s (run: shopctl login <email> <password>)\n", path)
}

type app struct {
	cfg      config.Config
	state    storage.Store
	cart     *cart.Store
	sessions *session.Manager
	catalog  *catalog.Client
	auth     *authapi.Client
	orders   *checkout.Client
	orch     *checkout.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	var state storage.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		state = storage.NewRedisStore(client, cfg.RedisNamespace)
	} else {
		state = storage.NewFileStore(cfg.StateFile)
	}

	nav := terminalNav{}
	notifier := terminalNotifier{}
	cartStore := cart.NewStore(ctx, state)
	sessions := session.NewManager(ctx, state, nav, session.Config{
		UserTTL:  cfg.UserSessionTTL,
		AdminTTL: cfg.AdminSessionTTL,
	})
	orders := checkout.NewClient(cfg.APIBaseURL, nil)

	return &app{
		cfg:      cfg,
		state:    state,
		cart:     cartStore,
		sessions: sessions,
		catalog:  catalog.NewClient(cfg.APIBaseURL, nil),
		auth:     authapi.NewClient(cfg.APIBaseURL, nil),
		orders:   orders,
		orch:     checkout.NewOrchestrator(cartStore, sessions, orders, nav, notifier),
	}, nil
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(2)
	}

	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		log.Fatalf("shopctl: %v", err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if err := a.run(ctx, cmd, args); err != nil {
		log.Fatalf("shopctl: %v", err)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "products":
		return a.listProducts(ctx)
	case "cart":
		return a.showCart()
	case "add":
		return a.addToCart(ctx, args)
	case "update":
		return a.updateQuantity(ctx, args)
	case "remove":
		return a.removeFromCart(ctx, args)
	case "clear":
		_, err := a.cart.Clear(ctx)
		if err == nil {
			fmt.Println("cart cleared")
		}
		return err
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		a.sessions.Logout(ctx)
		fmt.Println("logged out")
		return nil
	case "checkout":
		return a.checkout(ctx, args)
	case "orders":
		return a.orderHistory(ctx)
	default:
		fmt.Print(usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) listProducts(ctx context.Context) error {
	products, err := a.catalog.ListProducts(ctx)
	if err != nil {
		return err
	}
	for _, p := range products {
		availability := fmt.Sprintf("%d in stock", p.Stock)
		if !p.Purchasable() {
			availability = "unavailable"
		}
		fmt.Printf("%4d  %-28s KES %9.2f  %s\n", p.ID, p.Name, p.Price, availability)
	}
	return nil
}

func (a *app) showCart() error {
	items := a.cart.Items()
	if len(items) == 0 {
		fmt.Println("your cart is empty")
		return nil
	}
	for _, line := range items {
		fmt.Printf("%4d  %-28s x%-3d KES %9.2f\n", line.ID, line.Name, line.Quantity, line.Subtotal())
	}
	fmt.Printf("      %d items, total KES %s\n", a.cart.ItemCount(), a.cart.Total())
	return nil
}

// findProduct refreshes the catalog snapshot for one product.
func (a *app) findProduct(ctx context.Context, id int) (catalog.Product, error) {
	products, err := a.catalog.ListProducts(ctx)
	if err != nil {
		return catalog.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return catalog.Product{}, fmt.Errorf("no product with id %d", id)
}

func (a *app) addToCart(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: shopctl add <product-id> [qty]")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}
	qty := 1
	if len(args) > 1 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("bad quantity %q", args[1])
		}
	}

	product, err := a.findProduct(ctx, id)
	if err != nil {
		return err
	}

	res, err := a.cart.AddItem(ctx, product, qty)
	if err != nil {
		return err
	}
	a.reportCartResult(res)
	return a.showCart()
}

func (a *app) updateQuantity(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: shopctl update <product-id> <qty>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad quantity %q", args[1])
	}

	res, err := a.cart.UpdateQuantity(ctx, id, qty)
	if err != nil {
		return err
	}
	a.reportCartResult(res)
	return a.showCart()
}

func (a *app) removeFromCart(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: shopctl remove <product-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("bad product id %q", args[0])
	}
	res, err := a.cart.RemoveItem(ctx, id)
	if err != nil {
		return err
	}
	a.reportCartResult(res)
	return a.showCart()
}

// reportCartResult is the presentation of cart.Result: the store stays
// silent, the CLI words the outcome.
func (a *app) reportCartResult(res cart.Result) {
	switch res.Status {
	case cart.Added, cart.Merged:
		fmt.Printf("** added %s (now x%d)\n", res.Product.Name, res.Quantity)
	case cart.Capped:
		fmt.Printf("** only %d of %s available; quantity capped\n", res.Limit, res.Product.Name)
	case cart.Rejected:
		fmt.Printf("** cannot add %s: only %d in stock\n", res.Product.Name, res.Limit)
	case cart.Updated:
		fmt.Printf("** %s set to x%d\n", res.Product.Name, res.Quantity)
	case cart.Removed:
		fmt.Printf("** removed %s\n", res.Product.Name)
	case cart.Noop:
		fmt.Println("** nothing to do")
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: shopctl login <email> <password>")
	}
	identity, token, err := a.auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if err := a.sessions.Login(ctx, identity, token); err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", identity.Name)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: shopctl register <name> <email> <phone> <password>")
	}
	identity, token, err := a.auth.Register(ctx, args[0], args[1], args[2], args[3])
	if err != nil {
		return err
	}
	if err := a.sessions.Login(ctx, identity, token); err != nil {
		return err
	}
	fmt.Printf("registered and logged in as %s\n", identity.Name)
	return nil
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	name := fs.String("name", "", "customer name (defaults to your account name)")
	email := fs.String("email", "", "customer email")
	phone := fs.String("phone", "", "customer phone")
	notes := fs.String("notes", "", "delivery notes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	state := a.orch.ProceedToCheckout(ctx)
	if state == checkout.AwaitingAuth {
		return nil // the navigator already pointed at the login surface
	}

	form := a.orch.Form()
	if *name != "" {
		form.Name = *name
	}
	if *email != "" {
		form.Email = *email
	}
	if *phone != "" {
		form.Phone = *phone
	}
	form.Notes = *notes

	err := a.orch.Submit(ctx, form)
	switch a.orch.State() {
	case checkout.Succeeded:
		fmt.Println("-> see your order under: shopctl orders")
	case checkout.PartiallyFailed:
		fmt.Println("-> your cart still holds the items that could not be ordered")
	}
	return err
}

func (a *app) orderHistory(ctx context.Context) error {
	s, ok := a.sessions.Current(ctx)
	if !ok {
		return fmt.Errorf("log in to see your orders")
	}
	orders, err := a.orders.OrderHistory(ctx, s.Token)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		fmt.Println("no orders yet")
		return nil
	}
	for _, o := range orders {
		fmt.Printf("%s  %s  %d lines  KES %9.2f  %s\n",
			o.PlacedAt.Format("2006-01-02 15:04"), o.OrderID, len(o.Items), o.Total, o.Status)
	}
	return nil
}
