package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	_ "github.com/joho/godotenv/autoload"

	"github.com/orbitha/orbitha/internal/chatclient"
)

var (
	apiURL      = flag.String("api", envOr("API_BASE_URL", "http://localhost:8080"), "Orbitha API base URL")
	agentSlug   = flag.String("agent", envOr("CHAT_AGENT_SLUG", "orbitha-fitness"), "Agent slug")
	userID      = flag.String("user", envOr("CHAT_USER_ID", "local-user"), "User id for dev sign-in")
	displayName = flag.String("name", envOr("CHAT_DISPLAY_NAME", ""), "Display name for dev sign-in")
	token       = flag.String("token", os.Getenv("ORBITHA_TOKEN"), "Bearer token; skips dev sign-in")
	resume      = flag.Bool("resume", false, "Resume the most recent conversation instead of starting a new one")
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
)

const help = `Comandos:
  /novo                 nova conversa
  /conversas            lista as conversas
  /abrir <n>            abre a conversa n da lista
  /apagar               apaga a conversa atual
  /estilo <estilo>      normal, aprendizado, conciso, explicativo ou formal
  /foto <arquivo> [txt] envia uma foto de refeição
  /resumo               mostra o resumo do dia
  /sair                 encerra`

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := chatclient.NewHTTPBackend(*apiURL, *token)
	if *token == "" {
		if err := backend.SignInDev(ctx, *userID, *displayName); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", red("Falha ao entrar:"), err)
			os.Exit(1)
		}
	}

	printer := &streamPrinter{}
	client := chatclient.New(backend, chatclient.Options{
		AgentSlug:          *agentSlug,
		ResumeLatestOnLoad: *resume,
		OnChange:           printer.onChange,
	})

	if err := client.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("Não foi possível carregar o agente:"), err)
		os.Exit(1)
	}

	v := client.View()
	fmt.Println(boldGreen("🏋️  " + v.Agent.Name))
	if v.Agent.Description != "" {
		fmt.Println(v.Agent.Description)
	}
	fmt.Println(faint("Digite /ajuda para ver os comandos."))
	printSummary(v.Summary)
	printTranscript(v.Messages)
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for {
		fmt.Print(boldGreen("Você: "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := runCommand(ctx, client, printer, line); quit {
				break
			}
			continue
		}
		send(ctx, client, printer, line, "")
	}
}

func send(ctx context.Context, client *chatclient.Client, printer *streamPrinter, text, image string) {
	printer.begin()
	err := client.Send(ctx, text, image)
	printer.end(client.View())
	if err != nil {
		var apiErr *chatclient.APIError
		if errors.As(err, &apiErr) {
			fmt.Println(red(apiErr.Message))
		} else {
			fmt.Println(red(err.Error()))
		}
		return
	}
	printSummary(client.View().Summary)
	fmt.Println()
}

func runCommand(ctx context.Context, client *chatclient.Client, printer *streamPrinter, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "/sair", "/exit":
		return true
	case "/ajuda", "/help":
		fmt.Println(help)
	case "/novo":
		_, err = client.CreateConversation(ctx)
		if err == nil {
			fmt.Println(faint("Nova conversa iniciada."))
		}
	case "/conversas":
		printConversations(client.View())
	case "/abrir":
		var n int
		n, err = strconv.Atoi(arg)
		convs := client.View().Conversations
		if err != nil || n < 1 || n > len(convs) {
			fmt.Println(red("Número de conversa inválido."))
			return false
		}
		if err = client.SelectConversation(ctx, convs[n-1].ID); err == nil {
			printTranscript(client.View().Messages)
		}
	case "/apagar":
		active := client.View().Active
		if active == nil {
			fmt.Println(red("Nenhuma conversa ativa."))
			return false
		}
		if err = client.DeleteConversation(ctx, active.ID); err == nil {
			fmt.Println(faint("Conversa apagada."))
		}
	case "/estilo":
		err = client.ChangeStyle(ctx, arg)
		if errors.Is(err, chatclient.ErrUnknownStyle) {
			fmt.Printf("%s %s\n", red("Estilo desconhecido. Opções:"), strings.Join(chatclient.Styles, ", "))
			return false
		}
		if err == nil {
			fmt.Println(faint("Estilo: " + arg))
		}
	case "/foto":
		path, caption, _ := strings.Cut(arg, " ")
		var image string
		image, err = readImage(path)
		if err == nil {
			send(ctx, client, printer, strings.TrimSpace(caption), image)
			return false
		}
	case "/resumo":
		client.RefreshSummary(ctx)
		printSummary(client.View().Summary)
	default:
		fmt.Println(red("Comando desconhecido.") + " " + faint("/ajuda"))
	}

	if err != nil {
		fmt.Println(red(err.Error()))
	}
	return false
}

func readImage(path string) (string, error) {
	if path == "" {
		return "", errors.New("informe o caminho da foto")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func printSummary(s *chatclient.DailySummary) {
	if s == nil {
		return
	}
	p := chatclient.NewProgress(s)
	fmt.Println(yellow(p.Headline()))
	if bar := p.Bar(24); bar != "" {
		fmt.Printf("%s %s\n", bar, faint(p.Status()))
	}
}

func printTranscript(msgs []chatclient.Message) {
	for _, m := range msgs {
		if m.Role == "user" {
			fmt.Printf("%s%s\n", boldGreen("Você: "), m.Content)
		} else {
			fmt.Printf("%s%s\n", boldCyan("Orbitha: "), m.Content)
		}
	}
}

func printConversations(v chatclient.View) {
	if len(v.Conversations) == 0 {
		fmt.Println(faint("Nenhuma conversa."))
		return
	}
	for i, c := range v.Conversations {
		title := "Nova conversa"
		if c.Title != nil {
			title = *c.Title
		}
		marker := " "
		if v.Active != nil && v.Active.ID == c.ID {
			marker = "*"
		}
		fmt.Printf("%s %2d. %s %s\n", marker, i+1, title, faint(c.UpdatedAt.Local().Format("02/01 15:04")))
	}
}

// streamPrinter writes the assistant reply as it grows. The client already
// strips action blocks from LiveText; trailing backticks are held back so a
// fence that is still arriving never reaches the terminal.
type streamPrinter struct {
	mu       sync.Mutex
	active   bool
	thinking bool
	printed  string
}

func (p *streamPrinter) begin() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	p.thinking = false
	p.printed = ""
	fmt.Print(boldCyan("Orbitha: "))
}

func (p *streamPrinter) onChange(v chatclient.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	if v.Thinking && !p.thinking && p.printed == "" {
		p.thinking = true
		fmt.Print(faint("pensando..."))
		return
	}
	p.write(strings.TrimRight(v.LiveText, "`"))
}

func (p *streamPrinter) end(v chatclient.View) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(v.Messages); n > 0 && v.Messages[n-1].Role == "assistant" {
		p.write(v.Messages[n-1].Content)
	}
	p.active = false
	fmt.Println()
}

func (p *streamPrinter) write(text string) {
	if text == "" || !strings.HasPrefix(text, p.printed) {
		return
	}
	if p.thinking {
		// Erase "pensando...".
		fmt.Print("\r\033[K" + boldCyan("Orbitha: "))
		p.thinking = false
	}
	fmt.Print(text[len(p.printed):])
	p.printed = text
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
