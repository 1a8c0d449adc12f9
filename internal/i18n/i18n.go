// Package i18n translates phoque's terminal output.
//
// Messages are keyed by their English text and printed through a
// golang.org/x/text message.Printer chosen from the user's locale.
package i18n

import (
	"os"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultLang is the fallback language
var DefaultLang = language.English

// SupportedLangs are the languages we support
var SupportedLangs = []language.Tag{
	language.English,
	language.French,
}

var matcher = language.NewMatcher(SupportedLangs)

// Message keys. Each is the English text.
const (
	MsgNoRules           = "No rules.\n"
	MsgRuleAdded         = "Added rule %s: %s\n"
	MsgRuleStaged        = "Staged rule %s: %s (inactive)\n"
	MsgRuleUpdated       = "Updated rule %s: %s\n"
	MsgRuleRemoved       = "Removed rule %s\n"
	MsgRuleNotFound      = "No rule matches %q\n"
	MsgRuleNowActive     = "Rule %s is now active\n"
	MsgRuleNowInactive   = "Rule %s is now inactive\n"
	MsgToggleDeactivated = "All rules deactivated\n"
	MsgToggleActivated   = "All rules activated\n"
	MsgToggleRemaining   = "Remaining rules activated\n"
	MsgToggleNone        = "No rules to toggle\n"
	MsgApplied           = "Applied %d rule(s) with %s\n"
	MsgDryRun            = "Dry run: %d command(s) would be executed\n"
	MsgApplyFailed       = "Apply stopped after %d command(s)\n"
	MsgInSync            = "Filter is in sync with the rule list\n"
	MsgConfirmRemove     = "Remove rule %s?"
	MsgCancelled         = "Cancelled\n"
	MsgConfigOK          = "Configuration OK: %s store at %s, backend %s\n"
	MsgUsageID           = "usage: %s %s <id>\n"
	MsgHeaderID          = "ID"
	MsgHeaderDirection   = "Direction"
	MsgHeaderProtocol    = "Protocol"
	MsgHeaderPort        = "Port"
	MsgHeaderAction      = "Action"
	MsgHeaderActive      = "Active"
	MsgYes               = "yes"
	MsgNo                = "no"
	MsgFormTitleAdd      = "New rule"
	MsgFormTitleEdit     = "Edit rule %s"
	MsgFormStage         = "Create inactive?"
	MsgFormPortHint      = "80, 1000-2000 or * (ignored for ICMP)"
)

var french = map[string]string{
	MsgNoRules:           "Aucune règle.\n",
	MsgRuleAdded:         "Règle %s ajoutée : %s\n",
	MsgRuleStaged:        "Règle %s préparée : %s (inactive)\n",
	MsgRuleUpdated:       "Règle %s modifiée : %s\n",
	MsgRuleRemoved:       "Règle %s supprimée\n",
	MsgRuleNotFound:      "Aucune règle ne correspond à %q\n",
	MsgRuleNowActive:     "La règle %s est maintenant active\n",
	MsgRuleNowInactive:   "La règle %s est maintenant inactive\n",
	MsgToggleDeactivated: "Toutes les règles sont désactivées\n",
	MsgToggleActivated:   "Toutes les règles sont activées\n",
	MsgToggleRemaining:   "Les règles restantes sont activées\n",
	MsgToggleNone:        "Aucune règle à basculer\n",
	MsgApplied:           "%d règle(s) appliquée(s) avec %s\n",
	MsgDryRun:            "Simulation : %d commande(s) seraient exécutées\n",
	MsgApplyFailed:       "Application interrompue après %d commande(s)\n",
	MsgInSync:            "Le pare-feu correspond à la liste des règles\n",
	MsgConfirmRemove:     "Supprimer la règle %s ?",
	MsgCancelled:         "Annulé\n",
	MsgConfigOK:          "Configuration valide : stockage %s dans %s, moteur %s\n",
	MsgUsageID:           "usage : %s %s <id>\n",
	MsgHeaderID:          "ID",
	MsgHeaderDirection:   "Sens",
	MsgHeaderProtocol:    "Protocole",
	MsgHeaderPort:        "Port",
	MsgHeaderAction:      "Action",
	MsgHeaderActive:      "Active",
	MsgYes:               "oui",
	MsgNo:                "non",
	MsgFormTitleAdd:      "Nouvelle règle",
	MsgFormTitleEdit:     "Modifier la règle %s",
	MsgFormStage:         "Créer inactive ?",
	MsgFormPortHint:      "80, 1000-2000 ou * (ignoré pour ICMP)",
}

func init() {
	for key, msg := range french {
		_ = message.SetString(language.French, key, msg)
	}
}

// MatchLanguage returns the best supported language for a locale string
// such as "fr_FR.UTF-8" or an Accept-Language style list.
func MatchLanguage(locale string) language.Tag {
	if i := strings.Index(locale, "."); i != -1 {
		locale = locale[:i]
	}
	locale = strings.ReplaceAll(locale, "_", "-")

	tag, err := language.Parse(locale)
	if err != nil {
		tags, _, _ := language.ParseAcceptLanguage(locale)
		tag, _, _ = matcher.Match(tags...)
		return base(tag)
	}
	tag, _, _ = matcher.Match(tag)
	return base(tag)
}

// base strips the matcher's -u-rg extension so printers find the catalog.
func base(tag language.Tag) language.Tag {
	b, _ := tag.Base()
	t, err := language.Compose(b)
	if err != nil {
		return DefaultLang
	}
	return t
}

// NewPrinter returns a message printer for the given language
func NewPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// NewCLIPrinter returns a printer for the system's locale (LC_ALL, then
// LC_MESSAGES, then LANG).
func NewCLIPrinter() *message.Printer {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if lang := os.Getenv(key); lang != "" && lang != "C" && lang != "POSIX" {
			return message.NewPrinter(MatchLanguage(lang))
		}
	}
	return message.NewPrinter(DefaultLang)
}
