package usecase

import "strings"

// localeDefaults carries the language-dependent copy used across the
// workflow: the manager agent persona, the crawl briefing, and the web
// chat widget texts.
type localeDefaults struct {
	ManagerRole        string
	ManagerGoal        string
	ManagerPersonality string
	CrawlInstructions  string
	WWCTitle           string
	WWCPlaceholder     string
}

const defaultLanguage = "en"

var localeTable = map[string]localeDefaults{
	"en": {
		ManagerRole:        "Store manager",
		ManagerGoal:        "Answer customer questions about the store, its products, services and policies",
		ManagerPersonality: "Friendly, helpful and objective",
		CrawlInstructions:  "Extract product, service, shipping, payment and support information from the store website so the assistant can answer customer questions.",
		WWCTitle:           "How can we help you?",
		WWCPlaceholder:     "Type your message...",
	},
	"pt": {
		ManagerRole:        "Gerente da loja",
		ManagerGoal:        "Responder as perguntas dos clientes sobre a loja, seus produtos, servicos e politicas",
		ManagerPersonality: "Amigavel, prestativo e objetivo",
		CrawlInstructions:  "Extraia informacoes de produtos, servicos, envio, pagamento e suporte do site da loja para que o assistente possa responder as perguntas dos clientes.",
		WWCTitle:           "Como podemos ajudar?",
		WWCPlaceholder:     "Digite sua mensagem...",
	},
	"es": {
		ManagerRole:        "Gerente de la tienda",
		ManagerGoal:        "Responder las preguntas de los clientes sobre la tienda, sus productos, servicios y politicas",
		ManagerPersonality: "Amigable, servicial y objetivo",
		CrawlInstructions:  "Extrae informacion de productos, servicios, envios, pagos y soporte del sitio de la tienda para que el asistente pueda responder las preguntas de los clientes.",
		WWCTitle:           "¿Como podemos ayudarte?",
		WWCPlaceholder:     "Escribe tu mensaje...",
	},
}

// resolveLocale picks the defaults for a BCP 47 language tag by its
// primary subtag ("pt-BR" resolves to "pt"). Unknown or empty languages
// fall back to English.
func resolveLocale(language string) localeDefaults {
	prefix := strings.ToLower(strings.SplitN(language, "-", 2)[0])
	if loc, ok := localeTable[prefix]; ok {
		return loc
	}
	return localeTable[defaultLanguage]
}
