package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-lending/config"
	"library-lending/httpapi"
	"library-lending/library"
)

var rootCmd = &cobra.Command{
	Use:   "library",
	Short: "library - lending desk for a small book collection",
	Long: `library runs the lending HTTP API and offers a few maintenance commands
against the same SQLite database:
- serve the API
- search the catalog
- create accounts, including administrators
- list a reader's loans

Settings come from the environment or a .env file in the working directory.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, searchCmd, userCmd, loansCmd)
	userCmd.AddCommand(userAddCmd)

	userAddCmd.Flags().String("name", "", "display name")
	userAddCmd.Flags().String("email", "", "email address used to sign in")
	userAddCmd.Flags().Bool("admin", false, "create an administrator")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("email")

	loansCmd.Flags().Int64("user-id", 0, "reader whose loans to list")
	_ = loansCmd.MarkFlagRequired("user-id")
}

// app is what every subcommand needs: settings, the process logger and the
// open library.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	mgr    *library.LibraryManager
}

// openApp loads the configuration and opens the database it names.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cfg.NewLogger()
	mgr, err := library.NewLibraryManager(cfg.Database.Path, cfg.ManagerOptions(logger))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, mgr: mgr}, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.mgr.Close()

		tokens, err := httpapi.NewTokenIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("JWT_SECRET: %w", err)
		}
		router, err := httpapi.NewRouter(httpapi.NewHandler(a.mgr, tokens, a.logger), a.cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return httpapi.Serve(ctx, router, a.cfg, a.logger)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog by title, author or category",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.mgr.Close()

		books, err := a.mgr.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Println("No books found.")
			return nil
		}
		for _, b := range books {
			fmt.Println(library.PrettyBook(b))
		}
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account, prompting for its password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		admin, _ := cmd.Flags().GetBool("admin")

		password, err := readPassword("Password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.mgr.Close()

		role := library.RoleUser
		if admin {
			role = library.RoleAdmin
		}
		u, err := a.mgr.Register(cmd.Context(), library.Registration{
			Name: name, Email: email, Password: password, Role: role,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Created %s %q with ID %d\n", u.Role, u.Name, u.ID)
		return nil
	},
}

var loansCmd = &cobra.Command{
	Use:   "loans",
	Short: "List a reader's active loans, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user-id")

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.mgr.Close()

		u, err := a.mgr.GetUser(cmd.Context(), userID)
		if err != nil {
			return err
		}
		loans, err := a.mgr.ActiveLoans(cmd.Context(), library.RequestContext{UserID: u.ID, Role: u.Role})
		if err != nil {
			return err
		}
		if len(loans) == 0 {
			fmt.Println("No active loans.")
			return nil
		}
		fmt.Printf("%-6s %-40s %-12s %-12s\n", "LOAN", "TITLE", "BORROWED", "DUE")
		for _, l := range loans {
			fmt.Printf("%-6d %-40s %-12s %-12s\n", l.ID, l.BookTitle,
				l.BorrowedAt.Format("2006-01-02"), l.DueAt.Format("2006-01-02"))
		}
		return nil
	},
}

// readPassword reads a password without echo when stdin is a terminal and
// falls back to a plain line read when it is piped.
func readPassword(prompt string) (string, error) {
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}

	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}
