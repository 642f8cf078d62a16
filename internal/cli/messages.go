package cli

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// 輸出訊息以英文原文為 key，葡文翻譯註冊在 message 預設目錄

const (
	msgLunchOn          = "Lunch on %s: %s\n"
	msgNobodyOn         = "No lunch duty on %s\n"
	msgRestaurant       = "Restaurant: %s\n"
	msgPassed           = "Turn passed. Lunch today is with %s\n"
	msgSkipped          = "Today skipped. Next business day goes to %s\n"
	msgExchanged        = "Exchanged: today %s, next business day %s\n"
	msgOverrideSet      = "Override set: %s -> %s\n"
	msgOverrideCleared  = "Override cleared for %s\n"
	msgOverrideNone     = "No override on %s\n"
	msgRosterAdded      = "Added %s to the roster\n"
	msgRosterRemoved    = "Removed %s from the roster\n"
	msgRosterMoved      = "Moved %s to position %d\n"
	msgRosterSwapped    = "Swapped %s and %s\n"
	msgPreferencesSet   = "%s avoids: %s\n"
	msgPreferencesClear = "%s has no weekday preferences\n"
	msgRestaurantSet    = "Restaurant on %s: %s\n"
	msgRestaurantClear  = "Restaurant cleared for %s\n"
	msgPersistWarning   = "warning: %v\n"
	msgBlock            = "Block %d"
	msgAnnouncement     = "[announce] %s: %s\n"

	colDate       = "Date"
	colPerson     = "Person"
	colNote       = "Note"
	colRestaurant = "Restaurant"
	colPosition   = "#"
	colAvoids     = "Avoids"
	colTime       = "Time"
	colAction     = "Action"
	colDetails    = "Details"

	noteToday    = "today"
	noteOverride = "override"
	noteCarried  = "carried"
	noteNewBlock = "new block"
)

var portuguese = map[string]string{
	msgLunchOn:          "Almoço em %s: %s\n",
	msgNobodyOn:         "Sem responsável pelo almoço em %s\n",
	msgRestaurant:       "Restaurante: %s\n",
	msgPassed:           "Vez passada. Hoje o almoço fica com %s\n",
	msgSkipped:          "Dia pulado. O próximo dia útil fica com %s\n",
	msgExchanged:        "Troca feita: hoje %s, próximo dia útil %s\n",
	msgOverrideSet:      "Escala manual: %s -> %s\n",
	msgOverrideCleared:  "Escala manual removida em %s\n",
	msgOverrideNone:     "Nenhuma escala manual em %s\n",
	msgRosterAdded:      "%s entrou na lista\n",
	msgRosterRemoved:    "%s saiu da lista\n",
	msgRosterMoved:      "%s agora está na posição %d\n",
	msgRosterSwapped:    "%s e %s trocaram de posição\n",
	msgPreferencesSet:   "%s evita: %s\n",
	msgPreferencesClear: "%s não tem dias a evitar\n",
	msgRestaurantSet:    "Restaurante em %s: %s\n",
	msgRestaurantClear:  "Restaurante removido em %s\n",
	msgPersistWarning:   "aviso: %v\n",
	msgBlock:            "Bloco %d",
	msgAnnouncement:     "[aviso] %s: %s\n",

	colDate:       "Data",
	colPerson:     "Pessoa",
	colNote:       "Observação",
	colRestaurant: "Restaurante",
	colAvoids:     "Evita",
	colTime:       "Hora",
	colAction:     "Ação",
	colDetails:    "Detalhes",

	noteToday:    "hoje",
	noteOverride: "manual",
	noteCarried:  "adiado",
	noteNewBlock: "novo bloco",
}

func init() {
	for key, msg := range portuguese {
		for _, tag := range []language.Tag{language.BrazilianPortuguese, language.Portuguese} {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("cli: register %s message %q: %v", tag, key, err))
			}
		}
	}
}

// newPrinter 依語系建立訊息印表機
func newPrinter(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
