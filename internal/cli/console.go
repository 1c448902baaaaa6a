package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	Version = "0.1.0"

	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// callTimeout bounds a single tool call made from the console
const callTimeout = 30 * time.Second

// CommandKind classifies a console input line
type CommandKind int

const (
	CommandEmpty CommandKind = iota
	CommandTool
	CommandTools
	CommandHelp
	CommandExit
)

// Command is a parsed console input line
type Command struct {
	Kind  CommandKind
	Tool  string
	Query string
}

// ParseLine parses "<tool> [SQL]" or a slash command
func ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: CommandEmpty}, nil
	}

	if strings.HasPrefix(line, "/") {
		switch strings.ToLower(strings.Fields(line)[0]) {
		case "/tools":
			return Command{Kind: CommandTools}, nil
		case "/help":
			return Command{Kind: CommandHelp}, nil
		case "/exit", "/quit", "/q":
			return Command{Kind: CommandExit}, nil
		default:
			return Command{}, fmt.Errorf("unknown command: %s", line)
		}
	}

	name, query, _ := strings.Cut(line, " ")
	return Command{
		Kind:  CommandTool,
		Tool:  name,
		Query: strings.TrimSpace(query),
	}, nil
}

// Console invokes tools on a remote server from an interactive prompt
type Console struct {
	client *client.Client
	tools  []mcp.Tool
	out    io.Writer
}

// NewConsole wraps an initialized client. tools is the list shown by /tools.
func NewConsole(c *client.Client, tools []mcp.Tool, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{client: c, tools: tools, out: out}
}

// Run connects to the SSE endpoint at url and starts the prompt loop
func Run(ctx context.Context, url string) error {
	c, err := client.NewSSEMCPClient(url)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer c.Close()

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "sqlitemcp-console", Version: Version}
	info, err := c.Initialize(ctx, initReq)
	if err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}

	listed, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list tools: %w", err)
	}

	console := NewConsole(c, listed.Tools, os.Stdout)
	fmt.Printf("\n%s🔧 Connected to %s %s%s\n", colorCyan, info.ServerInfo.Name, info.ServerInfo.Version, colorReset)
	console.printTools()
	fmt.Printf("%sType /help for help, /exit to quit%s\n\n", colorGray, colorReset)

	p := prompt.New(
		console.Execute,
		console.Complete,
		prompt.OptionPrefix("sqlite> "),
		prompt.OptionTitle("sqlitemcp console"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			cmd, err := ParseLine(in)
			return breakline && err == nil && cmd.Kind == CommandExit
		}),
	)
	p.Run()
	return nil
}

// Execute handles one input line
func (c *Console) Execute(line string) {
	cmd, err := ParseLine(line)
	if err != nil {
		fmt.Fprintf(c.out, "%s❓ %v%s\n", colorYellow, err, colorReset)
		fmt.Fprintln(c.out, "Type /help for available commands")
		return
	}

	switch cmd.Kind {
	case CommandEmpty:
	case CommandTools:
		c.printTools()
	case CommandHelp:
		c.printHelp()
	case CommandExit:
		fmt.Fprintf(c.out, "%sGoodbye! 👋%s\n", colorCyan, colorReset)
	case CommandTool:
		c.callTool(cmd)
	}
}

func (c *Console) callTool(cmd Command) {
	args := map[string]any{}
	if cmd.Query != "" {
		args["query"] = cmd.Query
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = cmd.Tool
	req.Params.Arguments = args

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	result, err := c.client.CallTool(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("no response within %s", callTimeout)
		}
		fmt.Fprintf(c.out, "%s❌ %s failed: %v%s\n", colorRed, cmd.Tool, err, colorReset)
		return
	}

	if result.IsError {
		fmt.Fprintf(c.out, "%s❌ %s%s\n", colorRed, FormatResult(result), colorReset)
		return
	}
	fmt.Fprintf(c.out, "%s%s%s\n", colorGreen, FormatResult(result), colorReset)
}

// FormatResult joins the text content of a tool result
func FormatResult(result *mcp.CallToolResult) string {
	parts := make([]string, 0, len(result.Content))
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Complete suggests tool names and slash commands for the first word
func (c *Console) Complete(d prompt.Document) []prompt.Suggest {
	return c.suggestions(d.TextBeforeCursor())
}

func (c *Console) suggestions(before string) []prompt.Suggest {
	if strings.Contains(before, " ") {
		return nil
	}

	suggests := make([]prompt.Suggest, 0, len(c.tools)+3)
	for _, tool := range c.tools {
		suggests = append(suggests, prompt.Suggest{
			Text:        tool.Name,
			Description: truncateForDisplay(tool.Description, 50),
		})
	}
	suggests = append(suggests,
		prompt.Suggest{Text: "/tools", Description: "List available tools"},
		prompt.Suggest{Text: "/help", Description: "Show help"},
		prompt.Suggest{Text: "/exit", Description: "Exit console"},
	)

	return prompt.FilterHasPrefix(suggests, before, true)
}

func (c *Console) printTools() {
	fmt.Fprintf(c.out, "\n%sAvailable tools:%s\n", colorYellow, colorReset)
	for _, tool := range c.tools {
		fmt.Fprintf(c.out, "  • %-10s - %s\n", tool.Name, truncateForDisplay(tool.Description, 60))
	}
	fmt.Fprintln(c.out)
}

func (c *Console) printHelp() {
	fmt.Fprintf(c.out, `
%s📚 sqlitemcp console%s

%sUsage:%s
  <tool> [SQL]    - Call a tool with the SQL as its query argument
  /tools          - List available tools
  /help           - Show this help message
  /exit           - Exit console

%sExamples:%s
  add_data INSERT INTO people (name, age, profession) VALUES ('Jon Doe', 45, 'Bus Driver')
  read_data
  read_data SELECT name FROM people ORDER BY id DESC LIMIT 1

`, colorCyan, colorReset, colorYellow, colorReset, colorYellow, colorReset)
}

// truncateForDisplay flattens text to one line of at most maxLen bytes
func truncateForDisplay(text string, maxLen int) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSpace(text)

	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
