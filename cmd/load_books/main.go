package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"library-lending/config"
	"library-lending/library"
)

var rootCmd = &cobra.Command{
	Use:   "load_books <catalog.json>",
	Short: "Load categories and books from a JSON document into the library database",
	Long: `load_books reads a document of the form

  {"categories": [{"id": 1, "category_name": "Fiction"}],
   "books": [{"book_name": "Dune", "author": "Frank Herbert", "quantity": 2, "categories": [1]}]}

and creates whatever is missing. Existing categories and books are matched by
name and title, so running it twice changes nothing. Category ids only link
books to categories inside the document.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		mgr, err := library.NewLibraryManager(cfg.Database.Path, cfg.ManagerOptions(cfg.NewLogger()))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer mgr.Close()

		fmt.Printf("Loading %s into %s...\n", args[0], cfg.Database.Path)
		summary, err := mgr.LoadCatalogFrom(cmd.Context(), f)
		if err != nil {
			return err
		}

		fmt.Println("Load complete:")
		fmt.Printf("  Categories created: %d\n", summary.CategoriesCreated)
		fmt.Printf("  Books created:      %d\n", summary.BooksCreated)
		fmt.Printf("  Category links:     %d\n", summary.LinksCreated)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
