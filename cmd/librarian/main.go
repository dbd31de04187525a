package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/getlibrarian/librarian/internal/config"
	"github.com/getlibrarian/librarian/internal/dashboard"
	"github.com/getlibrarian/librarian/internal/domain"
	"github.com/getlibrarian/librarian/internal/events"
	"github.com/getlibrarian/librarian/internal/feeds"
	"github.com/getlibrarian/librarian/internal/graphql"
	"github.com/getlibrarian/librarian/internal/librarian"
	"github.com/getlibrarian/librarian/internal/log"
	"github.com/getlibrarian/librarian/internal/search"
	"github.com/getlibrarian/librarian/internal/store"
	"github.com/getlibrarian/librarian/internal/tui"
	"github.com/getlibrarian/librarian/internal/tui/styles"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

func main() {
	var showVersion bool
	var checkFeed string
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&checkFeed, "check-feed", "", "preview a release RSS feed URL and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("librarian %s\n", Version)
		return
	}

	if checkFeed != "" {
		if err := runFeedCheck(checkFeed); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runFeedCheck previews a release feed so the URL can be verified before
// handing it to the server's RSS monitor
func runFeedCheck(feedURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	preview := feeds.NewPreview(log.NullLogger())
	info, err := preview.Fetch(ctx, feedURL)
	if err != nil {
		return err
	}

	fmt.Printf("%s — %d items\n", info.Title, len(info.Items))
	for _, item := range info.Items {
		line := "  " + item.Title
		if !item.Published.IsZero() {
			line += "  (" + item.Published.Format("2006-01-02 15:04") + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting librarian", "version", Version)

	if !cfg.IsConfigured() {
		return runSetupFlow(cfg, logger)
	}

	gql, err := graphql.New(cfg.Server.URL, cfg.Server.APIKey, logger)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}
	client := librarian.NewClient(gql, logger)

	snapshots := store.NewSnapshotStore(config.GetCachePath(), gql.BaseURL(), logger)

	loader := dashboard.NewLoader(client, client, dashboard.LoaderOptions{
		UpcomingDays:      cfg.Dashboard.UpcomingDays,
		CalendarDays:      cfg.Dashboard.CalendarDays,
		SeriesLibraryCap:  cfg.Dashboard.SeriesLibraryLimit,
		RecentSeriesLimit: cfg.Dashboard.RecentSeriesLimit,
	}, logger)

	cache := dashboard.New(loader, snapshots, dashboard.Options{
		FreshTTL:  cfg.FreshTTL(),
		ExpiryTTL: cfg.ExpiryTTL(),
	}, logger)

	stream := events.NewStream(gql.BaseURL(), cfg.Server.APIKey, logger)
	searchSvc := search.NewService(client, logger)

	model := tui.NewModel(
		cache,
		client,
		searchSvc,
		stream,
		snapshots,
		cfg.Server.UserID,
		cfg.Server.Username,
		gql.BaseURL(),
		logger,
	)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
	)

	logger.Info("starting TUI")

	_, runErr := p.Run()
	if runErr != nil {
		logger.Error("TUI error", "error", runErr)
		runErr = fmt.Errorf("TUI error: %w", runErr)
	}

	cache.Close()
	closeErr := snapshots.Close()

	logger.Info("shutting down")
	return errors.Join(runErr, closeErr)
}

// runSetupFlow handles the initial setup when not configured
func runSetupFlow(cfg *config.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to Librarian!")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)

	// Loop until a server answers
	var gql *graphql.Client
	var client *librarian.Client
	for {
		fmt.Print("Enter your server URL (e.g., http://192.168.1.100:9090): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		serverURL := strings.TrimSpace(input)

		if serverURL == "" {
			fmt.Println("Server URL cannot be empty. Please try again.")
			continue
		}

		gql, err = graphql.New(serverURL, "", logger)
		if err != nil {
			fmt.Printf("Invalid server URL: %v\n", err)
			continue
		}
		client = librarian.NewClient(gql, logger)

		fmt.Println()
		status, err := verifyServerWithSpinner(client)
		if err != nil {
			fmt.Printf("\n✗ Could not reach server: %v\n", err)
			fmt.Println("Please check the URL and try again.")
			fmt.Println()
			continue
		}

		fmt.Printf("✓ Found %s %s\n", status.AppName, status.Version)
		break
	}

	// Credentials
	fmt.Println()
	fmt.Print("Username: ")
	input, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	username := strings.TrimSpace(input)

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, user, err := client.Login(ctx, username, string(password))
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	if err := config.SaveCredentials(gql.BaseURL(), token, user.Username, user.ID); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run librarian again to start the application.")

	return nil
}

// verifyServerWithSpinner checks the server answers the status query,
// animating a spinner while waiting
func verifyServerWithSpinner(client *librarian.Client) (domain.SystemStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	type result struct {
		status domain.SystemStatus
		err    error
	}
	resultCh := make(chan result, 1)

	go func() {
		status, err := client.SystemStatus(ctx)
		resultCh <- result{status, err}
	}()

	frame := 0
	fmt.Printf("\r%s Checking server...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case res := <-resultCh:
			fmt.Print(clearSpinnerLine)
			return res.status, res.err

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Checking server...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return domain.SystemStatus{}, fmt.Errorf("server check timed out")
		}
	}
}
