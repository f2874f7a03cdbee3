package service

import (
	"fmt"
	"sort"

	"github.com/nrenier/ICorNet-sub000/model"
)

// DomainLabels holds the user-facing texts of one domain page.
type DomainLabels struct {
	Title          string
	Submitted      string // %s = company name
	NoEntity       string
	NotReady       string
	EmptySelection string
	Deleted        string // %d = number of deleted reports
	GraphError     string
}

// ReportDomain configures one report page: which dataset it lists, which
// pipeline it triggers and how it labels things.
type ReportDomain struct {
	Tag               string
	ReportType        string
	HistoryType       string
	CompaniesPath     string
	DetailPath        string
	RelationshipsPath string
	FilterFields      []string
	// FilieraName is the synthetic company name of the whole-supply-chain
	// report. Empty when the domain has none.
	FilieraName string
	Labels      DomainLabels
}

var defaultLabels = DomainLabels{
	Submitted:      "Generazione del report avviata per %s",
	NoEntity:       "Seleziona un'azienda prima di generare il report",
	NotReady:       "Il report non è ancora pronto",
	EmptySelection: "Seleziona almeno un report da eliminare",
	Deleted:        "%d report eliminati",
	GraphError:     "Errore nel caricamento delle relazioni",
}

func labels(title string) DomainLabels {
	l := defaultLabels
	l.Title = title
	return l
}

var (
	GenericDomain = ReportDomain{
		Tag:               "suk",
		ReportType:        model.ReportTypeDefault,
		CompaniesPath:     "/reports/companies",
		DetailPath:        "/reports/company",
		RelationshipsPath: "/reports/relationships",
		FilterFields:      []string{"sector", "settore", "classificazione"},
		Labels:            labels("Report SUK"),
	}

	StartupDomain = ReportDomain{
		Tag:               "startup",
		ReportType:        model.ReportTypeStartup,
		HistoryType:       model.ReportTypeStartup,
		CompaniesPath:     "/reports/startup-companies",
		RelationshipsPath: "/reports/startup-relationships",
		FilterFields:      []string{"sector", "settore", "tecnologie"},
		Labels:            labels("Report Startup"),
	}

	FederterziarioDomain = ReportDomain{
		Tag:               "federterziario",
		ReportType:        model.ReportTypeFederterziario,
		HistoryType:       model.ReportTypeFederterziario,
		CompaniesPath:     "/reports/federterziario-companies",
		RelationshipsPath: "/reports/federterziario-relationships",
		FilterFields:      []string{"sector", "settore", "categoria"},
		FilieraName:       "Filiera Federterziario",
		Labels:            labels("Report Federterziario"),
	}
)

var reportDomains = map[string]ReportDomain{
	GenericDomain.Tag:        GenericDomain,
	StartupDomain.Tag:        StartupDomain,
	FederterziarioDomain.Tag: FederterziarioDomain,
}

// ReportDomainByTag looks up a built-in report domain.
func ReportDomainByTag(tag string) (ReportDomain, error) {
	d, ok := reportDomains[tag]
	if !ok {
		return ReportDomain{}, fmt.Errorf("unknown domain %q (known: %v)", tag, ReportDomainTags())
	}
	return d, nil
}

// ReportDomainTags lists the built-in report domains.
func ReportDomainTags() []string {
	tags := make([]string, 0, len(reportDomains))
	for t := range reportDomains {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// ChatDomain configures one conversational recommendation endpoint.
type ChatDomain struct {
	Tag      string
	BasePath string
	// ResultKeys lists the keys of a well-formed recommendation; a response
	// is accepted when at least one is present.
	ResultKeys []string
	// DeletePath is the ranged-delete endpoint. Empty means conversations are
	// only removed locally.
	DeletePath   string
	SendLocation bool
	// FallbackMessage is shown when the response is not a recommendation.
	FallbackMessage string
}

// SendPath is the endpoint messages are posted to.
func (d ChatDomain) SendPath() string {
	return d.BasePath + "/send-message"
}

// HistoryPath is the endpoint the message log is read from.
func (d ChatDomain) HistoryPath() string {
	return d.BasePath + "/chat-history"
}

const chatFallbackMessage = "Si è verificato un errore durante l'elaborazione della richiesta. Riprova più tardi."

var (
	SUKChat = ChatDomain{
		Tag:             "suk",
		BasePath:        "/suk-chat",
		ResultKeys:      []string{"potenziali_fornitori", "potenziali_clienti", "analisi"},
		FallbackMessage: chatFallbackMessage,
	}

	StartupChat = ChatDomain{
		Tag:             "startup",
		BasePath:        "/startup-chat",
		ResultKeys:      []string{"startup_consigliate", "raccomandazioni", "analisi"},
		DeletePath:      "/startup-chat/delete-conversation",
		SendLocation:    true,
		FallbackMessage: chatFallbackMessage,
	}
)

// ChatDomainByTag looks up a built-in chat domain.
func ChatDomainByTag(tag string) (ChatDomain, error) {
	switch tag {
	case SUKChat.Tag:
		return SUKChat, nil
	case StartupChat.Tag:
		return StartupChat, nil
	}
	return ChatDomain{}, fmt.Errorf("unknown chat domain %q (known: [%s %s])", tag, SUKChat.Tag, StartupChat.Tag)
}
