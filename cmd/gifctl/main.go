package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dom/gifbox/internal/client"
	"github.com/dom/gifbox/internal/rpc"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "register":
		err = registerCmd(apiURL, args)
	case "login":
		err = loginCmd(apiURL, args)
	case "search":
		err = searchCmd(apiURL, args)
	case "save":
		err = saveCmd(apiURL, args)
	case "list":
		err = listCmd(apiURL, args)
	case "categorize":
		err = categorizeCmd(apiURL, args)
	case "seed":
		err = seedCmd(apiURL, args)
	case "logout":
		err = removeToken()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gifctl - command line client for gifbox

USAGE:
  gifctl <command> [options]

COMMANDS:
  register    Create an account and log in
  login       Log in and store the session token
  search      Search for GIFs
  save        Save a GIF to your library
  list        List your saved GIFs, newest first
  categorize  Set the category of a saved GIF
  seed        Register demo users and fill their libraries
  logout      Forget the stored session token
  help        Show this help message

ENVIRONMENT:
  API_URL     Backend URL (default: http://localhost:8080)

EXAMPLES:
  gifctl register --handle=alice
  gifctl login --handle=alice --read-only
  gifctl search --page=1 cats typing
  gifctl save --id=abc123 --url=https://media.giphy.com/media/abc123/giphy.gif --title="Cat"
  gifctl categorize --id=abc123 reactions
  gifctl seed --users=3 --query=dogs`)
}

func newClient(apiURL string) *client.Client {
	token, _ := loadToken()
	return client.New(apiURL, client.WithToken(token))
}

func timeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func registerCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	handle := fs.String("handle", "", "Account handle (3-64 characters)")
	fs.Parse(args)

	if *handle == "" {
		return errors.New("--handle is required")
	}
	secret, err := promptSecret("Secret: ")
	if err != nil {
		return err
	}
	confirm, err := promptSecret("Repeat secret: ")
	if err != nil {
		return err
	}
	if secret != confirm {
		return errors.New("secrets do not match")
	}

	ctx, cancel := timeout()
	defer cancel()

	c := newClient(apiURL)
	session, err := c.Register(ctx, *handle, secret)
	if err != nil {
		return err
	}
	if err := saveToken(session.Token); err != nil {
		return err
	}
	fmt.Printf("Registered %s (session valid until %s)\n", session.User.Handle, session.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func loginCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	handle := fs.String("handle", "", "Account handle")
	readOnly := fs.Bool("read-only", false, "Request a token that can only search and list")
	fs.Parse(args)

	if *handle == "" {
		return errors.New("--handle is required")
	}
	secret, err := promptSecret("Secret: ")
	if err != nil {
		return err
	}

	var scope []rpc.Scope
	if *readOnly {
		scope = []rpc.Scope{rpc.ScopeRead}
	}

	ctx, cancel := timeout()
	defer cancel()

	c := newClient(apiURL)
	session, err := c.Login(ctx, *handle, secret, scope...)
	if err != nil {
		return err
	}
	if err := saveToken(session.Token); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s with scope %v\n", session.User.Handle, session.Scope)
	return nil
}

func searchCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	page := fs.Int("page", 0, "Result page, starting at 0")
	fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return errors.New("a search query is required")
	}

	ctx, cancel := timeout()
	defer cancel()

	results, err := newClient(apiURL).SearchGifs(ctx, query, *page)
	if err != nil {
		return err
	}
	if len(results.Gifs) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for _, g := range results.Gifs {
		fmt.Printf("%-20s  %-40s  %s\n", g.ProviderItemID, truncate(g.Title, 40), g.URL)
	}
	return nil
}

func saveCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("save", flag.ExitOnError)
	id := fs.String("id", "", "Provider item id (from search)")
	url := fs.String("url", "", "Media URL")
	title := fs.String("title", "", "Title")
	fs.Parse(args)

	ctx, cancel := timeout()
	defer cancel()

	saved, err := newClient(apiURL).SaveGif(ctx, rpc.GifResult{ProviderItemID: *id, Title: *title, URL: *url})
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s at %s\n", saved.ProviderItemID, saved.SavedAt.Local().Format(time.RFC1123))
	return nil
}

func listCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	category := fs.String("category", "", "Only show GIFs in this category")
	fs.Parse(args)

	ctx, cancel := timeout()
	defer cancel()

	gifs, err := newClient(apiURL).ListSaved(ctx)
	if err != nil {
		return err
	}

	shown := 0
	for _, g := range gifs {
		cat := "-"
		if g.Category != nil {
			cat = *g.Category
		}
		if *category != "" && cat != *category {
			continue
		}
		fmt.Printf("%-20s  %-12s  %-40s  %s\n", g.ProviderItemID, truncate(cat, 12), truncate(g.Title, 40), g.URL)
		shown++
	}
	if shown == 0 {
		fmt.Println("Library is empty.")
	}
	return nil
}

func categorizeCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("categorize", flag.ExitOnError)
	id := fs.String("id", "", "Provider item id of a saved GIF")
	fs.Parse(args)

	category := strings.Join(fs.Args(), " ")

	ctx, cancel := timeout()
	defer cancel()

	gif, err := newClient(apiURL).SetCategory(ctx, *id, category)
	if err != nil {
		return err
	}
	fmt.Printf("%s is now in %q\n", gif.ProviderItemID, *gif.Category)
	return nil
}

// seedCmd registers throwaway users and saves the first results of a search
// for each of them. It is a development aid for populating a local server.
func seedCmd(apiURL string, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	users := fs.Int("users", 3, "Number of demo users to create (1-20)")
	query := fs.String("query", "cats", "Search used to pick GIFs")
	perUser := fs.Int("per-user", 5, "GIFs to save per user")
	fs.Parse(args)

	if *users < 1 || *users > 20 {
		return errors.New("--users must be between 1 and 20")
	}

	fmt.Println("=== gifbox seed ===")
	for i := 0; i < *users; i++ {
		ctx, cancel := timeout()
		err := seedUser(ctx, apiURL, i, *query, *perUser)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func seedUser(ctx context.Context, apiURL string, n int, query string, perUser int) error {
	c := client.New(apiURL)
	handle := fmt.Sprintf("demo_%d_%d", n, time.Now().UnixNano()%100000)

	fmt.Printf("[%d] registering %s... ", n+1, handle)
	if _, err := c.Register(ctx, handle, "demosecret"); err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Println("OK")

	results, err := c.SearchGifs(ctx, query, n)
	if err != nil {
		return err
	}
	saved := 0
	for _, g := range results.Gifs {
		if saved == perUser {
			break
		}
		if _, err := c.SaveGif(ctx, g); err != nil {
			fmt.Printf("    skip %s: %s\n", g.ProviderItemID, describe(err))
			continue
		}
		saved++
	}
	fmt.Printf("    saved %d GIFs for %q (secret: demosecret)\n", saved, query)
	return nil
}

func describe(err error) string {
	var rerr *rpc.Error
	if !errors.As(err, &rerr) {
		return err.Error()
	}
	switch rerr.Kind {
	case rpc.KindUnauthenticated:
		return "not logged in or session expired; run gifctl login"
	case rpc.KindUnauthorized:
		return "this session is read-only; log in again without --read-only"
	}
	if rerr.Retryable {
		return rerr.Message + " (try again)"
	}
	return rerr.Message
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
