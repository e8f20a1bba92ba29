package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/ssrobins/bot-o-clock"
	"github.com/ssrobins/bot-o-clock/config"
	"github.com/ssrobins/bot-o-clock/logging"
	"github.com/ssrobins/bot-o-clock/memory"
	"github.com/ssrobins/bot-o-clock/memory/sqlite"
	"github.com/ssrobins/bot-o-clock/model"
	anthropicmodel "github.com/ssrobins/bot-o-clock/model/anthropic"
	ollamamodel "github.com/ssrobins/bot-o-clock/model/ollama"
	openaimodel "github.com/ssrobins/bot-o-clock/model/openai"
	"github.com/ssrobins/bot-o-clock/persona"
)

var (
	configPath   string
	dbPath       string
	provider     string
	modelName    string
	verbose      bool
	personaFiles []string
)

var rootCmd = &cobra.Command{
	Use:   "botoclock",
	Short: "bot-o-clock - voice-driven multi-persona assistant",
	Long: `bot-o-clock hosts a roster of LLM-backed persona agents behind a
natural-language command interpreter. Utterances are either control
commands ("create a new agent alice", "let alice and bob talk about go")
or chat, which is routed to the active agent with persistent memory.

Run without arguments to start the interactive session.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the memory store contents per agent",
	RunE:  runStatus,
}

var createPersonaCmd = &cobra.Command{
	Use:   "create-persona [name] [file]",
	Short: "Write a persona config file from a template",
	Long: `Writes a YAML persona config seeded from a named template
(default, assistant or creative) that can later be passed to --persona.`,
	Args: cobra.ExactArgs(2),
	RunE: runCreatePersona,
}

var createPersonaTemplate string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the memory database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().StringVar(&provider, "provider", "", "model provider: ollama, openai or anthropic")
	rootCmd.Flags().StringVar(&modelName, "model", "", "override the default model id")
	rootCmd.Flags().StringArrayVar(&personaFiles, "persona", nil, "persona config file to load (repeatable)")

	createPersonaCmd.Flags().StringVar(&createPersonaTemplate, "template", persona.TemplateDefault, "template to seed from")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(createPersonaCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadSettings() (config.Settings, error) {
	settings, err := config.Load(configPath)
	if err != nil {
		return settings, err
	}
	if dbPath != "" {
		settings.Memory.DBPath = dbPath
	}
	if provider != "" {
		settings.Model.Provider = provider
	}
	if modelName != "" {
		settings.Model.Model = modelName
	}
	if verbose {
		settings.Logging.Level = "debug"
	}
	return settings, nil
}

func openStore(settings config.Settings) (memory.Store, error) {
	if settings.Memory.DBPath == "" {
		return memory.NewInMemoryStore(), nil
	}
	return sqlite.NewStore(settings.Memory.DBPath)
}

func newModelClient(settings config.Settings) (model.Client, error) {
	switch settings.Model.Provider {
	case "ollama":
		return ollamamodel.NewClient(func(o *ollamamodel.Options) {
			o.Host = settings.Model.Host
			o.DefaultModel = settings.Model.Model
			o.Timeout = settings.Model.Timeout
		}), nil
	case "openai":
		return openaimodel.NewClient(func(o *openaimodel.Options) {
			if settings.Model.Model != "" {
				o.Model = settings.Model.Model
			}
		}), nil
	case "anthropic":
		return anthropicmodel.NewClient(func(o *anthropicmodel.Options) {
			if settings.Model.Model != "" {
				o.Model = anthropic.Model(settings.Model.Model)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", settings.Model.Provider)
	}
}

func runInteractive(ctx context.Context) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(settings.Logging.Level), settings.Logging.Format, false)

	store, err := openStore(settings)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}

	client, err := newModelClient(settings)
	if err != nil {
		return err
	}

	bot := botoclock.New(func(o *botoclock.Options) {
		o.Store = store
		o.Client = client
		o.MaxAgents = settings.Orchestrator.MaxAgents
		o.MaxContextMessages = settings.Orchestrator.MaxContextMessages
		o.Logger = logger
	})
	defer func() {
		if err := bot.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	if err := loadPersonas(bot); err != nil {
		return err
	}

	fmt.Println("bot-o-clock interactive session. Type 'help' for commands, 'exit' to quit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		res, err := bot.Dispatch(ctx, line)
		if err != nil {
			fmt.Println("Error:", err)
			continue
		}
		fmt.Println(res.DisplayText)
		if res.Exit {
			break
		}
	}
	return scanner.Err()
}

// loadPersonas registers the agents named on the command line, or the
// default persona when none are given. The first agent becomes active.
func loadPersonas(bot *botoclock.BotOClock) error {
	if len(personaFiles) == 0 {
		_, err := bot.CreateAgentFromTemplate("Steve", persona.TemplateDefault)
		return err
	}
	for _, path := range personaFiles {
		cfg, err := persona.FromYAMLFile(path)
		if err != nil {
			return fmt.Errorf("load persona %s: %w", path, err)
		}
		if _, err := bot.CreateAgent(cfg); err != nil {
			return fmt.Errorf("register persona %s: %w", cfg.Name, err)
		}
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	conversations, err := store.Conversations(ctx, "", 0)
	if err != nil {
		return err
	}

	fmt.Printf("Memory store: %s\n", displayDBPath(settings))
	if len(conversations) == 0 {
		fmt.Println("No conversations recorded.")
		return nil
	}

	fmt.Printf("Conversations: %d\n", len(conversations))
	for _, conv := range conversations {
		state := "closed"
		if conv.Open() {
			state = "open"
		}
		msgs, err := store.Messages(ctx, conv.ID)
		if err != nil {
			return err
		}
		fmt.Printf("  %s  agent=%s  messages=%d  started=%s  %s\n",
			conv.ID, conv.AgentName, len(msgs), conv.StartedAt.Format("2006-01-02 15:04:05"), state)
	}
	return nil
}

func displayDBPath(settings config.Settings) string {
	if settings.Memory.DBPath == "" {
		return "(in-memory)"
	}
	return settings.Memory.DBPath
}

func runCreatePersona(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	cfg := persona.FromTemplate(name, createPersonaTemplate)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ToYAMLFile(path); err != nil {
		return err
	}
	fmt.Printf("Wrote persona %q to %s\n", name, path)
	return nil
}
