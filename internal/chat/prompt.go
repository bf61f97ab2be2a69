package chat

import (
	_ "embed"
	"fmt"
	"strings"
	"time"
)

//go:embed prompts/fitness_system.md
var fitnessSystemPrompt string

//go:embed prompts/demo_system.md
var demoSystemPrompt string

var styleFragments = map[string]string{
	StyleNormal: "",
	StyleAprendizado: "## Estilo de comunicação: aprendizado\n" +
		"Explique o porquê de cada recomendação, como um professor paciente. " +
		"Traga um conceito de nutrição ou treino por resposta e termine com uma pergunta curta para checar o entendimento.",
	StyleConciso: "## Estilo de comunicação: conciso\n" +
		"Responda em no máximo 3 frases curtas ou uma lista de até 4 itens. Sem introduções nem despedidas.",
	StyleExplicativo: "## Estilo de comunicação: explicativo\n" +
		"Dê respostas completas e detalhadas, com números, porções e alternativas. Use subtítulos quando ajudar a leitura.",
	StyleFormal: "## Estilo de comunicação: formal\n" +
		"Use linguagem formal, trate o usuário por \"você\" sem gírias nem emojis e mantenha tom profissional.",
}

var weekdays = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

// promptContext is everything interpolated into the system prompt.
type promptContext struct {
	Domain      string
	Style       string
	DisplayName string
	LocalTime   time.Time
	MealSlot    string
	DaySummary  string
}

func buildSystemPrompt(pc promptContext) string {
	domain := strings.TrimSpace(pc.Domain)
	if domain == "" {
		domain = strings.TrimSpace(fitnessSystemPrompt)
	}

	var b strings.Builder
	b.WriteString(domain)

	if fragment := styleFragments[pc.Style]; fragment != "" {
		b.WriteString("\n\n")
		b.WriteString(fragment)
	}

	name := strings.TrimSpace(pc.DisplayName)
	if name == "" {
		name = "usuário"
	}
	b.WriteString("\n\n## Contexto atual\n")
	fmt.Fprintf(&b, "- Nome do usuário: %s\n", name)
	fmt.Fprintf(&b, "- Data e hora local: %s, %s\n", weekdays[pc.LocalTime.Weekday()], pc.LocalTime.Format("02/01/2006 15:04"))
	fmt.Fprintf(&b, "- Refeição provável neste horário: %s\n", pc.MealSlot)

	b.WriteString("\n## Resumo nutricional do dia\n")
	b.WriteString(pc.DaySummary)
	return b.String()
}

// titleFromMessage keeps the first 50 characters, without word-boundary trimming.
func titleFromMessage(message string, hasImage bool) string {
	message = strings.TrimSpace(message)
	if message == "" {
		if hasImage {
			return "Foto de refeição"
		}
		return "Nova conversa"
	}
	runes := []rune(message)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	return string(runes)
}
