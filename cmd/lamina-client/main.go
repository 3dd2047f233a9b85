package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"github.com/lamina-mem/lamina/pkg/config"
	"github.com/lamina-mem/lamina/pkg/convo"
	"github.com/lamina-mem/lamina/pkg/engine"
	"github.com/lamina-mem/lamina/pkg/lamina"
	"github.com/lamina-mem/lamina/pkg/log"
	"github.com/lamina-mem/lamina/pkg/mem/ltm"
	"github.com/lamina-mem/lamina/pkg/mem/wm"
	"github.com/lamina-mem/lamina/pkg/session"
)

// Constants for the command-line interface
const (
	cmdHelp        = "!help"
	cmdQuit        = "!quit"
	cmdUser        = "!user"
	cmdSession     = "!session"
	cmdRemember    = "!remember"
	cmdSearch      = "!search"
	cmdContext     = "!context"
	cmdWM          = "!wm"
	cmdWMSet       = "!wmset"
	cmdWMClear     = "!wmclear"
	cmdConsolidate = "!consolidate"
	cmdSay         = "!say"
	cmdExtract     = "!extract"
	cmdReindex     = "!reindex"
	cmdAccess      = "!access"
	cmdConfig      = "!config"
)

// Command-line help text
const helpText = `
Lamina Client - Command Reference:
-----------------------------------------
!help                 - Show this help message
!user <id>            - Set the current user ID
!session <id>         - Set the current session ID
!remember <text>      - Store a memory in long-term storage
!search <query>       - Retrieve memories by semantic (vector) search
!context <query>      - Build a relevant-memories context block
!wm                   - Show the current session's working memory
!wmset <key> <value>  - Merge a key/value pair into working memory
!wmclear              - Deactivate the current session's working memory
!consolidate          - Promote salient working memory into long-term storage
!say <role> <text>    - Record a conversation turn (role: user/assistant)
!extract              - Mine the current conversation for memories
!reindex              - Rebuild the vector index from stored records
!access <id>          - Record an access against a memory by ID
!config               - Show current configuration
!quit                 - Exit the application

Notes:
- Regular text input is treated as a !context query
- Tab completion is available for commands
- Use up/down arrows for command history`

// historyFile is the file where command history is stored
const historyFile = ".lamina_history"

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	stdinMode := flag.Bool("s", false, "Read from stdin and exit when complete")
	flag.Parse()

	// Load .env if present so OPENAI_API_KEY and friends reach the config
	// layer's environment overrides.
	_ = godotenv.Load()

	log.Setup(log.Config{
		Level:  log.InfoLevel,
		Format: log.TextFormat,
	})

	log.Info("Starting Lamina client")

	ctx := context.Background()

	client, err := lamina.NewClientFromConfig(ctx, *configPath)
	if err != nil {
		log.Error("Failed to initialize Lamina client", "error", err)
		os.Exit(1)
	}

	// Load config again for CLI display purposes only.
	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		log.Error("Failed to load configuration for CLI", "error", err)
		os.Exit(1)
	}

	runCLI(client, cfg, *stdinMode)
}

// cliState carries the identifiers every command operates against.
type cliState struct {
	userID    string
	sessionID session.ID
}

// runCLI starts the command-line interface for user interaction
func runCLI(client *lamina.Client, cfg *config.Config, stdinMode bool) {
	state := &cliState{
		userID:    "default-user",
		sessionID: session.ID("default-session"),
	}

	if stdinMode {
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("\n=== Lamina Client (stdin mode) ===")
		printBackends(cfg)
		fmt.Printf("Current User: %s | Current Session: %s\n", state.userID, state.sessionID)

		for scanner.Scan() {
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			// Skip comments for stdin-based scripting
			if strings.HasPrefix(input, "#") || strings.HasPrefix(input, "//") {
				continue
			}

			if input == cmdQuit {
				fmt.Println("Goodbye!")
				return
			}

			prompt := fmt.Sprintf("lamina::%s@%s> ", state.userID, state.sessionID)
			fmt.Print(prompt, input, "\n")

			processCommand(input, client, cfg, state)
		}

		if err := scanner.Err(); err != nil {
			fmt.Printf("Error reading stdin: %v\n", err)
		}
		fmt.Println("Goodbye!")
		return
	}

	// Interactive mode
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)

	line.SetCompleter(func(line string) (c []string) {
		commands := []string{
			cmdHelp, cmdQuit, cmdUser, cmdSession, cmdRemember, cmdSearch,
			cmdContext, cmdWM, cmdWMSet, cmdWMClear, cmdConsolidate, cmdSay,
			cmdExtract, cmdReindex, cmdAccess, cmdConfig,
		}
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, line) {
				c = append(c, cmd)
			}
		}
		return
	})

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Println("\n=== Lamina Client ===")
	printBackends(cfg)
	fmt.Printf("Current User: %s | Current Session: %s\n", state.userID, state.sessionID)
	fmt.Println("Type !help for available commands.")

	for {
		prompt := fmt.Sprintf("lamina::%s@%s> ", state.userID, state.sessionID)
		input, err := line.Prompt(prompt)

		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nGoodbye!")
				break
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		line.AppendHistory(input)

		if input == cmdQuit {
			fmt.Println("Goodbye!")
			break
		}

		processCommand(input, client, cfg, state)
	}
}

// printBackends summarizes the configured backends for the welcome banner.
func printBackends(cfg *config.Config) {
	fmt.Println("Storage:", cfg.Storage.Type)
	fmt.Println("Working Memory:", cfg.WorkingMemory.Type)
	fmt.Println("Index:", cfg.Index.Type)
	fmt.Println("Provider:", cfg.Provider.Type)
}

// processCommand handles a single command line.
func processCommand(input string, client *lamina.Client, cfg *config.Config, state *cliState) {
	ctx := log.ScopedContext(context.Background(), session.NewScope(state.sessionID, state.userID))

	if !strings.HasPrefix(input, "!") {
		// Free text is a context query.
		showContext(ctx, client, state, input)
		return
	}

	parts := strings.SplitN(input, " ", 2)
	cmd := parts[0]
	arg := ""
	if len(parts) == 2 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case cmdHelp:
		fmt.Println(helpText)

	case cmdUser:
		if arg == "" {
			fmt.Printf("Current user: %s\n", state.userID)
			return
		}
		state.userID = arg
		fmt.Printf("User set to: %s\n", state.userID)

	case cmdSession:
		if arg == "" {
			fmt.Printf("Current session: %s\n", state.sessionID)
			return
		}
		state.sessionID = session.ID(arg)
		fmt.Printf("Session set to: %s\n", state.sessionID)

	case cmdRemember:
		if arg == "" {
			fmt.Println("Memory content required")
			return
		}
		record, err := client.CreateMemory(ctx, engine.CreateMemoryRequest{
			Content:    arg,
			MemoryType: ltm.MemoryTypeSemantic,
			UserID:     state.userID,
		})
		if err != nil {
			fmt.Printf("Error storing memory: %v\n", err)
			return
		}
		fmt.Printf("Stored memory %s (importance %.2f, tags %v)\n",
			record.ID, record.ImportanceScore, record.Tags)

	case cmdSearch:
		if arg == "" {
			fmt.Println("Search query required")
			return
		}
		records := client.Search(ctx, engine.SearchRequest{
			Query:  arg,
			UserID: state.userID,
		})
		if len(records) == 0 {
			fmt.Println("No matching memories found.")
			return
		}
		for _, record := range records {
			fmt.Printf("- %s [%s] %s (importance %.2f)\n",
				record.ID, record.MemoryType, record.Content, record.ImportanceScore)
		}

	case cmdContext:
		if arg == "" {
			fmt.Println("Context query required")
			return
		}
		showContext(ctx, client, state, arg)

	case cmdWM:
		wmState, found, err := client.GetWorkingMemory(ctx, state.sessionID)
		if err != nil {
			fmt.Printf("Error reading working memory: %v\n", err)
			return
		}
		if !found {
			fmt.Println("No active working memory for this session.")
			return
		}
		fmt.Println("Context data:")
		for key, value := range wmState.ContextData {
			fmt.Printf("  %s: %v\n", key, value)
		}
		fmt.Println("Short-term memory:")
		for key, value := range wmState.ShortTermMemory {
			fmt.Printf("  %s: %v\n", key, value)
		}
		if wmState.ExpiresAt != nil {
			fmt.Printf("Expires at: %s\n", wmState.ExpiresAt.Format(time.RFC3339))
		}

	case cmdWMSet:
		kv := strings.SplitN(arg, " ", 2)
		if len(kv) != 2 {
			fmt.Println("Usage: !wmset <key> <value>")
			return
		}
		_, err := client.UpdateWorkingMemory(ctx, state.sessionID, wm.Patch{
			ContextData:     map[string]interface{}{"user_id": state.userID},
			ShortTermMemory: map[string]interface{}{kv[0]: kv[1]},
		})
		if err != nil {
			fmt.Printf("Error updating working memory: %v\n", err)
			return
		}
		fmt.Printf("Set %s in working memory\n", kv[0])

	case cmdWMClear:
		if err := client.ClearWorkingMemory(ctx, state.sessionID); err != nil {
			fmt.Printf("Error clearing working memory: %v\n", err)
			return
		}
		fmt.Println("Working memory cleared.")

	case cmdConsolidate:
		report, err := client.Consolidate(ctx, state.userID)
		if err != nil {
			fmt.Printf("Error consolidating: %v\n", err)
			return
		}
		fmt.Printf("Scanned %d entries, processed %d, promoted %d memories\n",
			report.EntriesScanned, report.EntriesProcessed, report.Promoted)

	case cmdSay:
		rc := strings.SplitN(arg, " ", 2)
		if len(rc) != 2 {
			fmt.Println("Usage: !say <role> <text>")
			return
		}
		_, err := client.AppendMessage(ctx, convo.Message{
			ConversationID: string(state.sessionID),
			Role:           rc[0],
			Content:        rc[1],
		})
		if err != nil {
			fmt.Printf("Error recording message: %v\n", err)
			return
		}
		fmt.Println("Recorded.")

	case cmdExtract:
		records, err := client.ExtractFromConversation(ctx, string(state.sessionID), state.userID)
		if err != nil {
			fmt.Printf("Error extracting memories: %v\n", err)
			return
		}
		if len(records) == 0 {
			fmt.Println("No memories extracted.")
			return
		}
		for _, record := range records {
			fmt.Printf("- %s [%s] %s\n", record.ID, record.MemoryType, record.Content)
		}

	case cmdReindex:
		count, err := client.Reindex(ctx, state.userID)
		if err != nil {
			fmt.Printf("Error reindexing: %v\n", err)
			return
		}
		fmt.Printf("Reindexed %d records\n", count)

	case cmdAccess:
		if arg == "" {
			fmt.Println("Memory ID required")
			return
		}
		if err := client.RecordAccess(ctx, arg); err != nil {
			fmt.Printf("Error recording access: %v\n", err)
			return
		}
		fmt.Println("Access recorded.")

	case cmdConfig:
		fmt.Println("\nCurrent Configuration:")
		fmt.Println("======================")
		fmt.Printf("Storage Type: %s\n", cfg.Storage.Type)
		if cfg.Storage.Type == "sqlite" {
			fmt.Printf("SQLite Path: %s\n", cfg.Storage.SQLite.Path)
		}
		fmt.Printf("Working Memory Type: %s\n", cfg.WorkingMemory.Type)
		fmt.Printf("Index Type: %s\n", cfg.Index.Type)
		if cfg.Index.Type == "chromem" {
			fmt.Printf("Chromem Collection: %s\n", cfg.Index.Chromem.Collection)
		} else if cfg.Index.Type == "pgvector" {
			fmt.Printf("PgVector Table: %s\n", cfg.Index.PgVector.TableName)
		}
		fmt.Printf("Provider: %s\n", cfg.Provider.Type)
		if cfg.Provider.Type == "openai" {
			fmt.Printf("OpenAI Model: %s\n", cfg.Provider.OpenAI.Model)
			fmt.Printf("OpenAI Embedding Model: %s\n", cfg.Provider.OpenAI.EmbeddingModel)
		}
		fmt.Printf("Context Limit: %d\n", cfg.Retrieval.ContextLimit)
		fmt.Printf("Context Threshold: %.2f\n", cfg.Retrieval.ContextThreshold)
		fmt.Printf("Log Level: %s\n", cfg.Logging.Level)
		fmt.Printf("User: %s\n", state.userID)
		fmt.Printf("Session: %s\n", state.sessionID)

	default:
		fmt.Printf("Unknown command: %s\nType !help for available commands.\n", cmd)
	}
}

// showContext prints the relevant-memories block for a query.
func showContext(ctx context.Context, client *lamina.Client, state *cliState, query string) {
	block, records := client.RelevantContext(ctx, query, state.userID)
	if len(records) == 0 {
		fmt.Println("No relevant memories found.")
		return
	}
	fmt.Println(block)
}