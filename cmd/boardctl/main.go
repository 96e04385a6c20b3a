package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/Bushidonj/kanban-board/internal/board"
	"github.com/Bushidonj/kanban-board/internal/config"
	"github.com/Bushidonj/kanban-board/internal/kanban"
	"github.com/Bushidonj/kanban-board/internal/session"
	"github.com/Bushidonj/kanban-board/internal/tasks"
	"github.com/Bushidonj/kanban-board/internal/transport"
)

// app holds the wired client stack shared by all commands.
type app struct {
	manager *session.Manager
	client  *transport.Client
	repo    *tasks.Repository
	store   *board.Store
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if os.Getenv("KANBAN_DEBUG") != "" {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	storage, err := session.NewFileStorage(cfg.Client.SessionFile)
	if err != nil {
		return nil, fmt.Errorf("opening session file: %w", err)
	}
	manager := session.NewManager(storage, logger)

	client := transport.NewClient(cfg.Client.BaseURL, manager, logger,
		transport.WithLogoutHook(func() {
			fmt.Fprintln(os.Stderr, "session expired, run `boardctl login` again")
		}),
	)
	repo := tasks.NewRepository(client, logger)

	return &app{
		manager: manager,
		client:  client,
		repo:    repo,
		store:   board.NewStore(repo, logger),
	}, nil
}

func (a *app) requireLogin() error {
	if !a.manager.IsAuthenticated() {
		return fmt.Errorf("not logged in, run `boardctl login` first")
	}
	return nil
}

// resolveCard accepts a full card id, an id prefix, or a fuzzy title
// match, in that order.
func (a *app) resolveCard(ctx context.Context, ref string) (kanban.Card, error) {
	if err := a.store.Refresh(ctx); err != nil {
		return kanban.Card{}, err
	}
	cards := a.store.Cards()

	for _, c := range cards {
		if c.ID == ref {
			return c, nil
		}
	}

	var prefixed []kanban.Card
	for _, c := range cards {
		if strings.HasPrefix(c.ID, ref) {
			prefixed = append(prefixed, c)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], nil
	}
	if len(prefixed) > 1 {
		return kanban.Card{}, fmt.Errorf("id prefix %q is ambiguous", ref)
	}

	titles := make([]string, len(cards))
	for i, c := range cards {
		titles[i] = c.Title
	}
	matches := fuzzy.Find(ref, titles)
	if len(matches) == 0 {
		return kanban.Card{}, fmt.Errorf("no card matches %q", ref)
	}
	return cards[matches[0].Index], nil
}

// resolveStatus matches a column by exact name or unique prefix,
// case-insensitively.
func resolveStatus(name string) (kanban.Status, error) {
	lower := strings.ToLower(name)
	var hits []kanban.Status
	for _, col := range kanban.Columns() {
		title := strings.ToLower(string(col.ID))
		if title == lower {
			return col.ID, nil
		}
		if strings.HasPrefix(title, lower) {
			hits = append(hits, col.ID)
		}
	}
	switch len(hits) {
	case 1:
		return hits[0], nil
	case 0:
		return "", fmt.Errorf("unknown column %q", name)
	default:
		return "", fmt.Errorf("column %q is ambiguous", name)
	}
}

var rootCmd = &cobra.Command{
	Use:           "boardctl",
	Short:         "Work the kanban board from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Authenticate and store the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		password := os.Getenv("KANBAN_PASSWORD")
		if password == "" {
			fmt.Fprint(os.Stderr, "password: ")
			if _, err := fmt.Scanln(&password); err != nil {
				return fmt.Errorf("reading password: %w", err)
			}
		}

		var resp struct {
			User struct {
				Email string `json:"email"`
				Name  string `json:"name"`
				Role  string `json:"role"`
			} `json:"user"`
			SessionToken string `json:"sessionToken"`
			RefreshToken string `json:"refreshToken"`
		}
		err = a.client.Post(cmd.Context(), "/auth/login", map[string]string{
			"email":    args[0],
			"password": password,
		}, &resp)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		err = a.manager.SaveLogin(session.Session{
			User: session.User{
				Email: resp.User.Email,
				Name:  resp.User.Name,
				Role:  session.Role(resp.User.Role),
			},
			SessionToken: resp.SessionToken,
			RefreshToken: resp.RefreshToken,
		})
		if err != nil {
			return err
		}

		fmt.Printf("logged in as %s (%s)\n", resp.User.Name, resp.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.manager.Clear(); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	},
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the board",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		if err := a.store.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("loading board: %w", err)
		}

		hideEmpty, _ := cmd.Flags().GetBool("hide-empty")
		fmt.Print(renderBoard(a.store.Cards(), hideEmpty))
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Create a card",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}

		statusName, _ := cmd.Flags().GetString("status")
		status, err := resolveStatus(statusName)
		if err != nil {
			return err
		}
		priority, _ := cmd.Flags().GetString("priority")
		if !kanban.ValidPriority(kanban.Priority(priority)) {
			return fmt.Errorf("invalid --priority %q, want Baixa, Média or Urgente", priority)
		}
		due, _ := cmd.Flags().GetString("due")
		if due != "" {
			if _, err := kanban.ParseLocalDate(due); err != nil {
				return fmt.Errorf("invalid --due: %w", err)
			}
		}
		description, _ := cmd.Flags().GetString("description")

		card, err := a.store.Create(cmd.Context(), kanban.Card{
			Title:       strings.Join(args, " "),
			Description: description,
			Status:      status,
			Priority:    kanban.Priority(priority),
			Deadline:    due,
		})
		if err != nil {
			return fmt.Errorf("creating card: %w", err)
		}
		a.store.Wait()

		fmt.Printf("created %s in %s\n", card.ID, card.Status)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <card> <column>",
	Short: "Move a card to another column",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}

		card, err := a.resolveCard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		status, err := resolveStatus(args[1])
		if err != nil {
			return err
		}
		if card.Status == status {
			fmt.Printf("%q is already in %s\n", card.Title, status)
			return nil
		}

		if err := a.store.Move(cmd.Context(), card.ID, status); err != nil {
			return fmt.Errorf("moving card: %w", err)
		}
		a.store.Wait()

		fmt.Printf("moved %q to %s\n", card.Title, status)
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <card>",
	Short: "Delete a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}

		card, err := a.resolveCard(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := a.store.Delete(cmd.Context(), card.ID); err != nil {
			return fmt.Errorf("deleting card: %w", err)
		}
		a.store.Wait()

		fmt.Printf("deleted %q\n", card.Title)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Fuzzy-find cards by title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.requireLogin(); err != nil {
			return err
		}
		if err := a.store.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("loading board: %w", err)
		}

		cards := a.store.Cards()
		titles := make([]string, len(cards))
		for i, c := range cards {
			titles[i] = c.Title
		}

		matches := fuzzy.Find(strings.Join(args, " "), titles)
		if len(matches) == 0 {
			fmt.Println("no matches")
			return nil
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
		for _, m := range matches {
			card := cards[m.Index]
			fmt.Println(renderSearchHit(card))
		}
		return nil
	},
}

func init() {
	boardCmd.Flags().Bool("hide-empty", false, "skip columns with no cards")

	addCmd.Flags().String("status", string(kanban.StatusBacklog), "column for the new card")
	addCmd.Flags().String("priority", string(kanban.PriorityBaixa), "Baixa, Média or Urgente")
	addCmd.Flags().String("due", "", "deadline as YYYY-MM-DD")
	addCmd.Flags().String("description", "", "card description")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
